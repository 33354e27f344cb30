package postgres

import (
	"context"
	"errors"
	"fmt"

	"comanda/internal/store"

	"github.com/lib/pq"
)

const tenantColumns = "id, name, slug, rate_limit, rate_limit_burst, created_at"

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

func (s *Store) CreateTenant(ctx context.Context, tenant *store.Tenant, hashedKey string) error {
	query := `
		INSERT INTO tenants (id, name, slug, api_key_hash, rate_limit, rate_limit_burst, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Slug,
		hashedKey,
		tenant.RateLimit,
		tenant.RateLimitBurst,
		tenant.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("tenant %s: %w", tenant.Slug, store.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create tenant %s: %w", tenant.Slug, err)
	}
	return nil
}

func (s *Store) GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants WHERE api_key_hash = $1"
	return s.getTenant(ctx, query, hash)
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*store.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants WHERE slug = $1"
	return s.getTenant(ctx, query, slug)
}

func (s *Store) getTenant(ctx context.Context, query string, arg interface{}) (*store.Tenant, error) {
	var t store.Tenant

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.RateLimit,
		&t.RateLimitBurst,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	return &t, nil
}
