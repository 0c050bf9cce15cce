package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/kubev2v/live-migration-orchestrator/internal/models"
	srvErrors "github.com/kubev2v/live-migration-orchestrator/pkg/errors"
)

const (
	migrationColID             = "id"
	migrationColInstanceID     = "instance_id"
	migrationColSourceHost     = "source_host"
	migrationColDestination    = "destination"
	migrationColRequested      = "requested_destination"
	migrationColBlockMigration = "block_migration"
	migrationColDiskOverCommit = "disk_over_commit"
	migrationColState          = "state"
	migrationColFailureKind    = "failure_kind"
	migrationColError          = "error"
	migrationColAttemptedHosts = "attempted_hosts"
	migrationColCreatedAt      = "created_at"
	migrationColUpdatedAt      = "updated_at"
)

var migrationColumns = []string{
	migrationColID,
	migrationColInstanceID,
	migrationColSourceHost,
	migrationColDestination,
	migrationColRequested,
	migrationColBlockMigration,
	migrationColDiskOverCommit,
	migrationColState,
	migrationColFailureKind,
	migrationColError,
	migrationColAttemptedHosts,
	migrationColCreatedAt,
	migrationColUpdatedAt,
}

// MigrationStore persists workflow records. Records are audit state only:
// the orchestrator never reads them back to make placement decisions.
type MigrationStore struct {
	db QueryInterceptor
}

func NewMigrationStore(db QueryInterceptor) *MigrationStore {
	return &MigrationStore{db: db}
}

func (s *MigrationStore) Create(ctx context.Context, m *models.Migration) error {
	attempted, err := json.Marshal(m.AttemptedHosts)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert("migrations").
		Columns(migrationColumns...).
		Values(
			m.ID.String(),
			m.InstanceID,
			m.SourceHost,
			m.Destination,
			m.Requested,
			m.BlockMigration,
			m.DiskOverCommit,
			string(m.State),
			string(m.FailureKind),
			m.Error,
			string(attempted),
			m.CreatedAt,
			m.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Update rewrites the mutable part of a record: destination, state, failure
// data, and the attempted-hosts list.
func (s *MigrationStore) Update(ctx context.Context, m *models.Migration) error {
	attempted, err := json.Marshal(m.AttemptedHosts)
	if err != nil {
		return err
	}

	query, args, err := sq.Update("migrations").
		Set(migrationColDestination, m.Destination).
		Set(migrationColState, string(m.State)).
		Set(migrationColFailureKind, string(m.FailureKind)).
		Set(migrationColError, m.Error).
		Set(migrationColAttemptedHosts, string(attempted)).
		Set(migrationColUpdatedAt, m.UpdatedAt).
		Where(sq.Eq{migrationColID: m.ID.String()}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *MigrationStore) Get(ctx context.Context, id uuid.UUID) (*models.Migration, error) {
	query, args, err := sq.Select(migrationColumns...).
		From("migrations").
		Where(sq.Eq{migrationColID: id.String()}).
		ToSql()
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	m, err := scanMigration(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewMigrationNotFoundError(id.String())
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MigrationStore) List(ctx context.Context, filter *MigrationQueryFilter) ([]models.Migration, error) {
	builder := sq.Select(migrationColumns...).From("migrations")
	if filter != nil {
		builder = filter.Apply(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var migrations []models.Migration
	for rows.Next() {
		m, err := scanMigration(rows.Scan)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, *m)
	}

	return migrations, rows.Err()
}

// Count returns the number of records matching the filter, ignoring
// pagination.
func (s *MigrationStore) Count(ctx context.Context, filter *MigrationQueryFilter) (int, error) {
	builder := sq.Select("COUNT(*)").From("migrations")
	if filter != nil {
		builder = filter.ApplyWhere(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func scanMigration(scan func(dest ...any) error) (*models.Migration, error) {
	var (
		m         models.Migration
		id        string
		state     string
		kind      string
		attempted string
	)

	err := scan(
		&id,
		&m.InstanceID,
		&m.SourceHost,
		&m.Destination,
		&m.Requested,
		&m.BlockMigration,
		&m.DiskOverCommit,
		&state,
		&kind,
		&m.Error,
		&attempted,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	m.State = models.MigrationStateType(state)
	m.FailureKind = models.FailureKind(kind)

	if attempted != "" {
		if err := json.Unmarshal([]byte(attempted), &m.AttemptedHosts); err != nil {
			return nil, err
		}
	}

	return &m, nil
}
