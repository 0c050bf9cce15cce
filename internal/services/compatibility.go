package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
)

// ComputeAPI is the compute-host collaborator: the destination-side
// live-migration precheck and the source-side trigger.
type ComputeAPI interface {
	CheckTarget(ctx context.Context, instance *models.Instance, destination string, blockMigration, diskOverCommit bool) (models.MigrateData, error)
	TriggerMigration(ctx context.Context, source, destination string, instance *models.Instance, blockMigration bool, data models.MigrateData) error
}

// CompatibilityChecker evaluates whether a destination host can accept the
// instance: identity, liveness, oversubscribed memory capacity, hypervisor
// compatibility, and finally the destination's own precheck.
type CompatibilityChecker struct {
	registry      HostRegistry
	compute       ComputeAPI
	preconditions *PreconditionValidator
	logger        *zap.SugaredLogger
}

func NewCompatibilityChecker(registry HostRegistry, compute ComputeAPI, preconditions *PreconditionValidator) *CompatibilityChecker {
	return &CompatibilityChecker{
		registry:      registry,
		compute:       compute,
		preconditions: preconditions,
		logger:        zap.S().Named("compatibility"),
	}
}

// Check runs all compatibility checks against destination and, on success,
// returns the MigrateData produced by the destination's precheck.
//
// candidate marks a scheduler-provided destination: its capacity, liveness,
// hypervisor, and precheck rejections become retryable so the selector can
// exclude the host and move on. An explicitly requested destination always
// fails terminally. Host facts are fetched fresh for every check.
func (c *CompatibilityChecker) Check(ctx context.Context, request models.MigrationRequest, instance *models.Instance, destination string, candidate bool) (models.MigrateData, error) {
	if destination == instance.Host {
		return nil, srvErrors.NewUnableToMigrateToSelfError(instance.ID, destination)
	}

	if err := c.preconditions.ValidateHostLive(ctx, destination); err != nil {
		return nil, c.classify(err, candidate)
	}

	if err := c.checkMemory(ctx, instance, destination); err != nil {
		return nil, c.classify(err, candidate)
	}

	if err := c.checkHypervisor(ctx, instance.Host, destination); err != nil {
		return nil, c.classify(err, candidate)
	}

	data, err := c.compute.CheckTarget(ctx, instance, destination, request.BlockMigration, request.DiskOverCommit)
	if err != nil {
		return nil, c.classify(err, candidate)
	}

	return data, nil
}

// checkMemory validates the destination's oversubscribed memory capacity.
// The host must belong to exactly one aggregate; its ram allocation ratio
// scales the physical total. The boundary is inclusive: a host with exactly
// the instance's memory left is already full.
func (c *CompatibilityChecker) checkMemory(ctx context.Context, instance *models.Instance, destination string) error {
	facts, err := c.registry.GetHostFacts(ctx, destination)
	if err != nil {
		return err
	}

	switch {
	case len(facts.Aggregates) == 0:
		return srvErrors.NewHostNotInAggregateError(instance.ID, destination)
	case len(facts.Aggregates) > 1:
		names := make([]string, 0, len(facts.Aggregates))
		for _, aggregate := range facts.Aggregates {
			names = append(names, aggregate.Name)
		}
		return srvErrors.NewHostInMultipleAggregatesError(instance.ID, destination, names)
	}

	ratio := facts.Aggregates[0].RAMAllocationRatio
	realTotal := float64(facts.MemoryMB) * ratio
	available := realTotal - float64(facts.MemoryMBUsed)

	c.logger.Debugw("memory check",
		"host", destination,
		"total_mb", facts.MemoryMB,
		"ram_allocation_ratio", ratio,
		"available_mb", available,
		"instance_mb", instance.MemoryMB,
	)

	if instance.MemoryMB == 0 || available <= float64(instance.MemoryMB) {
		return srvErrors.NewInsufficientMemoryError(instance.ID, destination, available, instance.MemoryMB)
	}
	return nil
}

// checkHypervisor requires identical hypervisor types and a destination
// version at least as new as the source's.
func (c *CompatibilityChecker) checkHypervisor(ctx context.Context, source, destination string) error {
	sourceFacts, err := c.registry.GetHostFacts(ctx, source)
	if err != nil {
		return err
	}
	destinationFacts, err := c.registry.GetHostFacts(ctx, destination)
	if err != nil {
		return err
	}

	if sourceFacts.HypervisorType != destinationFacts.HypervisorType {
		return srvErrors.NewInvalidHypervisorTypeError(sourceFacts.HypervisorType, destinationFacts.HypervisorType)
	}
	if sourceFacts.HypervisorVersion > destinationFacts.HypervisorVersion {
		return srvErrors.NewDestinationHypervisorTooOldError(sourceFacts.HypervisorVersion, destinationFacts.HypervisorVersion)
	}
	return nil
}

func (c *CompatibilityChecker) classify(err error, candidate bool) error {
	if candidate {
		return srvErrors.MarkCandidate(err)
	}
	return err
}
