package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/vmops/snapfleet/internal/models"
)

// EndpointStore is the registry of known vCenter endpoints. Rows are
// keyed by hostname; passwords never touch this table, only the
// credential reference (hostname + username) is stored.
type EndpointStore struct {
	db QueryInterceptor
}

func NewEndpointStore(db QueryInterceptor) *EndpointStore {
	return &EndpointStore{db: db}
}

// ListOption modifies a SELECT query for filtering.
type ListOption func(sq.SelectBuilder) sq.SelectBuilder

// ByHostname filters to a single endpoint.
func ByHostname(hostname string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"hostname": hostname})
	}
}

// List returns endpoints ordered for display.
func (s *EndpointStore) List(ctx context.Context, opts ...ListOption) ([]models.Endpoint, error) {
	builder := sq.Select("hostname", "username", "verify_ssl", "display_order").
		From("servers").
		OrderBy("display_order", "hostname")

	for _, opt := range opts {
		builder = opt(builder)
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

	var endpoints []models.Endpoint
	for rows.Next() {
		var e models.Endpoint
		if err := rows.Scan(&e.Hostname, &e.CredentialRef.Username, &e.VerifySSL, &e.DisplayOrder); err != nil {
			return nil, err
		}
		e.CredentialRef.Hostname = e.Hostname
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

// Save upserts one endpoint keyed by hostname.
func (s *EndpointStore) Save(ctx context.Context, endpoint models.Endpoint) error {
	query, args, err := sq.Insert("servers").
		Columns("hostname", "username", "verify_ssl", "display_order").
		Values(endpoint.Hostname, endpoint.CredentialRef.Username, endpoint.VerifySSL, endpoint.DisplayOrder).
		Suffix(`ON CONFLICT (hostname) DO UPDATE SET
			username = EXCLUDED.username,
			verify_ssl = EXCLUDED.verify_ssl,
			display_order = EXCLUDED.display_order`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// Delete removes one endpoint. Missing rows are not an error.
func (s *EndpointStore) Delete(ctx context.Context, hostname string) error {
	query, args, err := sq.Delete("servers").
		Where(sq.Eq{"hostname": hostname}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}
