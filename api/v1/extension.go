package v1

import (
	"github.com/kubev2v/live-migration-orchestrator/internal/models"
)

// NewMigration converts a workflow record to its API shape.
func NewMigration(m models.Migration) Migration {
	out := Migration{
		Id:                   m.ID.String(),
		InstanceId:           m.InstanceID,
		SourceHost:           m.SourceHost,
		Destination:          m.Destination,
		RequestedDestination: m.Requested,
		BlockMigration:       m.BlockMigration,
		DiskOverCommit:       m.DiskOverCommit,
		State:                string(m.State),
		FailureKind:          string(m.FailureKind),
		AttemptedHosts:       m.AttemptedHosts,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}

	if m.Error != "" {
		e := m.Error
		out.Error = &e
	}

	return out
}

func NewMigrationList(migrations []models.Migration, total int) MigrationList {
	items := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		items = append(items, NewMigration(m))
	}
	return MigrationList{Items: items, Total: total}
}

// ToModel converts the start request to the workflow's immutable input.
func (r MigrationStartRequest) ToModel() models.MigrationRequest {
	return models.MigrationRequest{
		InstanceID:     r.InstanceId,
		Destination:    r.Destination,
		BlockMigration: r.BlockMigration,
		DiskOverCommit: r.DiskOverCommit,
	}
}
