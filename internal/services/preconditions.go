package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
)

// HostRegistry resolves a host to its liveness and resource facts. Facts are
// fetched fresh on every call; implementations must not cache.
type HostRegistry interface {
	GetHostFacts(ctx context.Context, host string) (*models.HostFacts, error)
}

// InstanceLookup resolves an instance id to its current snapshot.
type InstanceLookup interface {
	GetInstance(ctx context.Context, instanceID string) (*models.Instance, error)
}

// PreconditionValidator confirms the instance and named hosts are in a
// migratable state before any scheduling work begins. Checks are pure and
// never retried; a failure is terminal for the enclosing workflow step.
type PreconditionValidator struct {
	registry HostRegistry
	logger   *zap.SugaredLogger
}

func NewPreconditionValidator(registry HostRegistry) *PreconditionValidator {
	return &PreconditionValidator{
		registry: registry,
		logger:   zap.S().Named("preconditions"),
	}
}

// ValidateRunning fails unless the instance power state is "running".
func (v *PreconditionValidator) ValidateRunning(instance *models.Instance) error {
	if !instance.IsRunning() {
		return srvErrors.NewInstanceNotRunningError(instance.ID)
	}
	return nil
}

// ValidateHostLive fails when the host record is missing from the registry
// or its compute service is reported down.
func (v *PreconditionValidator) ValidateHostLive(ctx context.Context, host string) error {
	facts, err := v.registry.GetHostFacts(ctx, host)
	if err != nil {
		if srvErrors.IsHostNotFoundError(err) {
			return srvErrors.NewComputeServiceUnavailableError(host)
		}
		return err
	}

	if !facts.Up {
		v.logger.Debugw("host reported down", "host", host)
		return srvErrors.NewComputeServiceUnavailableError(host)
	}
	return nil
}
