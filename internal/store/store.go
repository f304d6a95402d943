package store

import "database/sql"

// Store provides access to all storage repositories.
type Store struct {
	db        *sql.DB
	endpoints *EndpointStore
	settings  *SettingsStore
}

func NewStore(db *sql.DB) *Store {
	interceptor := newQueryInterceptor(db)
	return &Store{
		db:        db,
		endpoints: NewEndpointStore(interceptor),
		settings:  NewSettingsStore(interceptor),
	}
}

func (s *Store) Endpoints() *EndpointStore {
	return s.endpoints
}

func (s *Store) Settings() *SettingsStore {
	return s.settings
}

func (s *Store) Close() error {
	return s.db.Close()
}
