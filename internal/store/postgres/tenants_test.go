package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"comanda/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var tenantRowColumns = []string{"id", "name", "slug", "rate_limit", "rate_limit_burst", "created_at"}

func TestGetTenantBySlug_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	createdAt := time.Now().Truncate(time.Second)

	mock.ExpectQuery(`SELECT id, name, slug, rate_limit, rate_limit_burst, created_at FROM tenants WHERE slug = \$1`).
		WithArgs("casa-do-pastel").
		WillReturnRows(sqlmock.NewRows(tenantRowColumns).
			AddRow(tenantID.String(), "Casa do Pastel", "casa-do-pastel", 10.0, 20, createdAt))

	tenant, err := s.GetTenantBySlug(ctx, "casa-do-pastel")
	if err != nil {
		t.Fatalf("GetTenantBySlug failed: %v", err)
	}
	if tenant.ID != tenantID {
		t.Errorf("got ID %v, want %v", tenant.ID, tenantID)
	}
	if tenant.Slug != "casa-do-pastel" {
		t.Errorf("got Slug %s, want casa-do-pastel", tenant.Slug)
	}
	if tenant.RateLimit != 10 || tenant.RateLimitBurst != 20 {
		t.Errorf("got rate limit %v/%d, want 10/20", tenant.RateLimit, tenant.RateLimitBurst)
	}
	if !tenant.CreatedAt.Equal(createdAt) {
		t.Errorf("got CreatedAt %v, want %v", tenant.CreatedAt, createdAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetTenantBySlug_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`FROM tenants WHERE slug = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	tenant, err := s.GetTenantBySlug(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
	if tenant != nil {
		t.Errorf("expected nil tenant, got %v", tenant)
	}
}

func TestGetTenantByAPIKeyHash_DatabaseError(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`FROM tenants WHERE api_key_hash = \$1`).
		WithArgs("hash").
		WillReturnError(sql.ErrConnDone)

	_, err := s.GetTenantByAPIKeyHash(context.Background(), "hash")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Error("connection errors must not be reported as not found")
	}
}

func TestCreateTenant(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	tenant := &store.Tenant{
		ID:        uuid.New(),
		Name:      "Casa do Pastel",
		Slug:      "casa-do-pastel",
		CreatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO tenants`).
		WithArgs(tenant.ID, tenant.Name, tenant.Slug, "hashed", 0.0, 0, tenant.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.CreateTenant(context.Background(), tenant, "hashed"); err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateTenant_DuplicateSlug(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	tenant := &store.Tenant{
		ID:        uuid.New(),
		Name:      "Casa do Pastel",
		Slug:      "casa-do-pastel",
		CreatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO tenants`).
		WithArgs(tenant.ID, tenant.Name, tenant.Slug, "hashed", 0.0, 0, tenant.CreatedAt).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.CreateTenant(context.Background(), tenant, "hashed")
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}
