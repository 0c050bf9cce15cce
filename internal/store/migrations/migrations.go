// Package migrations creates and evolves the orchestrator's database schema.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	stmts   []string
}

var all = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS migrations (
				id VARCHAR PRIMARY KEY,
				instance_id VARCHAR NOT NULL,
				source_host VARCHAR NOT NULL,
				destination VARCHAR NOT NULL DEFAULT '',
				requested_destination VARCHAR NOT NULL DEFAULT '',
				block_migration BOOLEAN NOT NULL DEFAULT false,
				disk_over_commit BOOLEAN NOT NULL DEFAULT false,
				state VARCHAR NOT NULL,
				failure_kind VARCHAR NOT NULL DEFAULT '',
				error VARCHAR NOT NULL DEFAULT '',
				attempted_hosts VARCHAR NOT NULL DEFAULT '[]',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_migrations_instance_id ON migrations (instance_id)`,
			`CREATE INDEX IF NOT EXISTS idx_migrations_state ON migrations (state)`,
		},
	},
}

// Run applies all pending schema migrations in version order. Applied
// versions are tracked in schema_migrations, so Run is safe to call on every
// startup.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	for _, m := range all {
		applied, err := isApplied(ctx, db, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		for _, stmt := range m.stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("running migration %d: %w", m.version, err)
			}
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
	}

	return nil
}

func isApplied(ctx context.Context, db *sql.DB, version int) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}
