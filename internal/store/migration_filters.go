package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
)

type MigrationFilterFunc func(sq.SelectBuilder) sq.SelectBuilder

// MigrationQueryFilter builds up WHERE/ORDER/LIMIT clauses for migration
// listings. Where-only filters are separated so Count can reuse them without
// pagination.
type MigrationQueryFilter struct {
	where []MigrationFilterFunc
	shape []MigrationFilterFunc
}

func NewMigrationQueryFilter() *MigrationQueryFilter {
	return &MigrationQueryFilter{
		where: make([]MigrationFilterFunc, 0),
		shape: make([]MigrationFilterFunc, 0),
	}
}

func (f *MigrationQueryFilter) ByInstanceID(instanceID string) *MigrationQueryFilter {
	if instanceID == "" {
		return f
	}
	f.where = append(f.where, func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{migrationColInstanceID: instanceID})
	})
	return f
}

func (f *MigrationQueryFilter) ByStates(states ...models.MigrationStateType) *MigrationQueryFilter {
	if len(states) == 0 {
		return f
	}
	stateStrings := make([]string, len(states))
	for i, s := range states {
		stateStrings[i] = string(s)
	}
	f.where = append(f.where, func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{migrationColState: stateStrings})
	})
	return f
}

func (f *MigrationQueryFilter) BySourceHost(host string) *MigrationQueryFilter {
	if host == "" {
		return f
	}
	f.where = append(f.where, func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{migrationColSourceHost: host})
	})
	return f
}

func (f *MigrationQueryFilter) Limit(limit int) *MigrationQueryFilter {
	f.shape = append(f.shape, func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(uint64(limit))
	})
	return f
}

func (f *MigrationQueryFilter) Offset(offset int) *MigrationQueryFilter {
	f.shape = append(f.shape, func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(uint64(offset))
	})
	return f
}

func (f *MigrationQueryFilter) OrderByNewest() *MigrationQueryFilter {
	f.shape = append(f.shape, func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy(migrationColCreatedAt + " DESC")
	})
	return f
}

func (f *MigrationQueryFilter) Apply(builder sq.SelectBuilder) sq.SelectBuilder {
	builder = f.ApplyWhere(builder)
	for _, filter := range f.shape {
		builder = filter(builder)
	}
	return builder
}

func (f *MigrationQueryFilter) ApplyWhere(builder sq.SelectBuilder) sq.SelectBuilder {
	for _, filter := range f.where {
		builder = filter(builder)
	}
	return builder
}
