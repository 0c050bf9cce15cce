package store

import "database/sql"

// Store provides access to all storage repositories.
type Store struct {
	db        *sql.DB
	migration *MigrationStore
}

func NewStore(db *sql.DB) *Store {
	interceptor := newQueryInterceptor(db)
	return &Store{
		db:        db,
		migration: NewMigrationStore(interceptor),
	}
}

func (s *Store) Migration() *MigrationStore {
	return s.migration
}

func (s *Store) Close() error {
	return s.db.Close()
}
