package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a tenant-scoped row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key (tenant slug or API key) is taken.
var ErrDuplicate = errors.New("record already exists")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// TenantStore handles retrieving tenant information for authentication.
type TenantStore interface {
	// CreateTenant inserts a new tenant to the database
	CreateTenant(ctx context.Context, tenant *Tenant, hashedKey string) error

	// GetTenantByAPIKeyHash returns a tenant by its API key hash.
	GetTenantByAPIKeyHash(ctx context.Context, hash string) (*Tenant, error)

	// GetTenantBySlug returns a tenant by its slug. Bridges identify their tenant this way.
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
}

// OrderStore is the read side of the POS order aggregate.
type OrderStore interface {
	// GetOrder returns the order snapshot with its items.
	GetOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*Order, error)

	// SetOrderPrinted updates the order's printed flag.
	SetOrderPrinted(ctx context.Context, tx DBTransaction, tenantID, orderID uuid.UUID, printed bool) error
}

// PrintJobStore handles the persistence of print jobs.
// Every method is scoped by tenant.
type PrintJobStore interface {
	// CreatePrintJobs inserts the jobs of one batch.
	CreatePrintJobs(ctx context.Context, tx DBTransaction, jobs []PrintJob) error

	// GetPrintJob returns a job by its ID.
	GetPrintJob(ctx context.Context, tenantID, jobID uuid.UUID) (*PrintJob, error)

	// ListClaimCandidates returns up to limit PENDING jobs whose next attempt is due,
	// oldest first.
	ListClaimCandidates(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]PrintJob, error)

	// ApplyTransition conditionally moves one job along t.
	// It reports false when the job was not in t.From() (or not owned, for guarded transitions).
	ApplyTransition(ctx context.Context, tenantID, jobID uuid.UUID, t Transition, in TransitionInput) (bool, error)

	// ReclaimExpired applies TransitionReclaim to every job leased before cutoff.
	ReclaimExpired(ctx context.Context, tenantID uuid.UUID, cutoff, now time.Time) (int64, error)

	// ListBatchJobs returns the jobs of a batch ordered by creation.
	ListBatchJobs(ctx context.Context, tenantID, batchID uuid.UUID) ([]PrintJob, error)

	// LatestBatchID returns the most recent batch enqueued for an order.
	LatestBatchID(ctx context.Context, tenantID, orderID uuid.UUID) (uuid.UUID, error)

	// CountPending returns the number of PENDING jobs across tenants.
	CountPending(ctx context.Context) (int64, error)
}
