package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
)

// MigrationDispatcher issues the final migration trigger to the source
// compute host. The workflow's synchronous responsibility ends once the
// trigger call returns; the hypervisor-level transfer runs on its own.
type MigrationDispatcher struct {
	compute ComputeAPI
	logger  *zap.SugaredLogger
}

func NewMigrationDispatcher(compute ComputeAPI) *MigrationDispatcher {
	return &MigrationDispatcher{
		compute: compute,
		logger:  zap.S().Named("dispatcher"),
	}
}

// Dispatch triggers the live migration with the MigrateData obtained from
// the destination's precheck, passed through unmodified.
func (d *MigrationDispatcher) Dispatch(ctx context.Context, request models.MigrationRequest, instance *models.Instance, destination string, data models.MigrateData) error {
	err := d.compute.TriggerMigration(ctx, instance.Host, destination, instance, request.BlockMigration, data)
	if err != nil {
		return fmt.Errorf("failed to dispatch migration of instance %s to %s: %w", instance.ID, destination, err)
	}

	d.logger.Infow("migration dispatched",
		"instance_id", instance.ID,
		"source", instance.Host,
		"destination", destination,
		"block_migration", request.BlockMigration,
	)
	return nil
}
