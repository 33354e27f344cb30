package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"comanda/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const printJobColumns = `id, tenant_id, order_id, batch_id, document_type, content, paper_width_mm,
	status, attempts, max_attempts, next_attempt_at, lease_owner, leased_at, last_error,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrintJob(row rowScanner) (store.PrintJob, error) {
	var j store.PrintJob
	err := row.Scan(
		&j.ID, &j.TenantID, &j.OrderID, &j.BatchID, &j.DocumentType, &j.Content, &j.PaperWidthMm,
		&j.Status, &j.Attempts, &j.MaxAttempts, &j.NextAttemptAt, &j.LeaseOwner, &j.LeasedAt, &j.LastError,
		&j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

// CreatePrintJobs inserts the jobs of one batch with a single statement.
// All jobs must share tenant, order, batch, paper width, attempts policy and timestamps;
// insertion order is preserved through the seq column so FIFO claims print the
// kitchen copy first.
func (s *Store) CreatePrintJobs(ctx context.Context, tx store.DBTransaction, jobs []store.PrintJob) error {
	if len(jobs) == 0 {
		return nil
	}

	first := jobs[0]
	ids := make([]string, len(jobs))
	docTypes := make([]string, len(jobs))
	contents := make([]string, len(jobs))
	for i, j := range jobs {
		if j.BatchID != first.BatchID || j.TenantID != first.TenantID || j.OrderID != first.OrderID {
			return errors.New("print jobs of a batch must share tenant, order and batch")
		}
		ids[i] = j.ID.String()
		docTypes[i] = string(j.DocumentType)
		contents[i] = j.Content
	}

	query := `
		INSERT INTO print_jobs (id, tenant_id, order_id, batch_id, document_type, content, paper_width_mm,
			status, attempts, max_attempts, next_attempt_at, created_at, updated_at)
		SELECT j.id, $1, $2, $3, j.document_type, j.content, $4, $5, 0, $6, $7, $8, $8
		FROM unnest($9::uuid[], $10::text[], $11::text[]) WITH ORDINALITY AS j(id, document_type, content, ord)
		ORDER BY j.ord
	`

	_, err := s.getExecutor(tx).ExecContext(ctx, query,
		first.TenantID, first.OrderID, first.BatchID, first.PaperWidthMm,
		store.JobStatusPending, first.MaxAttempts, first.NextAttemptAt, first.CreatedAt,
		pq.Array(ids), pq.Array(docTypes), pq.Array(contents),
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch %s: %w", first.BatchID, err)
	}
	return nil
}

// GetPrintJob returns a job by its ID.
func (s *Store) GetPrintJob(ctx context.Context, tenantID, jobID uuid.UUID) (*store.PrintJob, error) {
	query := "SELECT " + printJobColumns + " FROM print_jobs WHERE id = $1 AND tenant_id = $2"

	job, err := scanPrintJob(s.db.QueryRowContext(ctx, query, jobID, tenantID))
	if err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// ListClaimCandidates returns due PENDING jobs, oldest first.
// It takes no row locks: the lease itself is acquired by ApplyTransition's
// conditional update, so concurrent claimers never wait on each other.
func (s *Store) ListClaimCandidates(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]store.PrintJob, error) {
	if limit <= 0 {
		limit = 1
	}

	query := `
		SELECT ` + printJobColumns + `
		FROM print_jobs
		WHERE tenant_id = $1 AND status = $2 AND next_attempt_at <= $3
		ORDER BY created_at ASC, seq ASC
		LIMIT $4
	`
	return s.listJobs(ctx, query, tenantID, store.JobStatusPending, now, limit)
}

// ListBatchJobs returns the jobs of a batch ordered by creation.
func (s *Store) ListBatchJobs(ctx context.Context, tenantID, batchID uuid.UUID) ([]store.PrintJob, error) {
	query := `
		SELECT ` + printJobColumns + `
		FROM print_jobs
		WHERE tenant_id = $1 AND batch_id = $2
		ORDER BY created_at ASC, seq ASC
	`
	return s.listJobs(ctx, query, tenantID, batchID)
}

func (s *Store) listJobs(ctx context.Context, query string, args ...interface{}) ([]store.PrintJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("print job query failed: %w", err)
	}
	defer rows.Close()

	var jobs []store.PrintJob
	for rows.Next() {
		job, err := scanPrintJob(rows)
		if err != nil {
			return nil, fmt.Errorf("print job scan failed: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("print job rows error: %w", err)
	}

	return jobs, nil
}

// LatestBatchID returns the most recent batch of an order.
func (s *Store) LatestBatchID(ctx context.Context, tenantID, orderID uuid.UUID) (uuid.UUID, error) {
	var batchID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT batch_id FROM print_jobs
		WHERE tenant_id = $1 AND order_id = $2
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`, tenantID, orderID).Scan(&batchID)
	if err != nil {
		return uuid.Nil, notFound(err)
	}
	return batchID, nil
}

// ApplyTransition moves one job along t with a compare-and-swap on status.
func (s *Store) ApplyTransition(ctx context.Context, tenantID, jobID uuid.UUID, t store.Transition, in store.TransitionInput) (bool, error) {
	var (
		set   string
		guard string
		args  = []interface{}{jobID, tenantID, t.From(), t.To(), in.At}
	)

	// $1 id, $2 tenant, $3 from, $4 to, $5 at; transition specific args follow.
	switch t {
	case store.TransitionClaim:
		args = append(args, in.Owner)
		set = "attempts = attempts + 1, lease_owner = $6, leased_at = $5"
		guard = "AND attempts < max_attempts"
	case store.TransitionAck:
		args = append(args, in.Owner)
		set = "lease_owner = NULL, leased_at = NULL, last_error = NULL"
		guard = "AND lease_owner = $6"
	case store.TransitionRetry:
		args = append(args, in.Owner, in.Error, in.NextAttemptAt)
		set = "lease_owner = NULL, leased_at = NULL, last_error = $7, next_attempt_at = $8"
		guard = "AND lease_owner = $6"
	case store.TransitionExhaust:
		args = append(args, in.Owner, in.Error)
		set = "lease_owner = NULL, leased_at = NULL, last_error = $7"
		guard = "AND lease_owner = $6"
	case store.TransitionReclaim:
		args = append(args, store.ReclaimReason)
		set = "lease_owner = NULL, leased_at = NULL, last_error = $6"
	case store.TransitionHeal:
		args = append(args, store.ExhaustedReason)
		set = "last_error = COALESCE(last_error, $6)"
		guard = "AND attempts >= max_attempts"
	default:
		return false, fmt.Errorf("unknown transition %s", t)
	}

	query := fmt.Sprintf(`
		UPDATE print_jobs
		SET status = $4, updated_at = $5, %s
		WHERE id = $1 AND tenant_id = $2 AND status = $3 %s
	`, set, guard)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s print job %s: %w", t, jobID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReclaimExpired returns every job of the tenant leased before cutoff to PENDING.
func (s *Store) ReclaimExpired(ctx context.Context, tenantID uuid.UUID, cutoff, now time.Time) (int64, error) {
	t := store.TransitionReclaim

	res, err := s.db.ExecContext(ctx, `
		UPDATE print_jobs
		SET status = $1, lease_owner = NULL, leased_at = NULL, last_error = $2, updated_at = $3
		WHERE tenant_id = $4 AND status = $5 AND leased_at < $6
	`, t.To(), store.ReclaimReason, now, tenantID, t.From(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim expired leases: %w", err)
	}

	return res.RowsAffected()
}

// CountPending tracks the number of jobs waiting for a bridge.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM print_jobs WHERE status = $1`, store.JobStatusPending).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
