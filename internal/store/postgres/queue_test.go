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
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

var printJobRowColumns = []string{
	"id", "tenant_id", "order_id", "batch_id", "document_type", "content", "paper_width_mm",
	"status", "attempts", "max_attempts", "next_attempt_at", "lease_owner", "leased_at", "last_error",
	"created_at", "updated_at",
}

func addJobRow(rows *sqlmock.Rows, id, tenantID uuid.UUID, status store.JobStatus, attempts int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id.String(), tenantID.String(), uuid.NewString(), uuid.NewString(), "KITCHEN", "content", 80,
		string(status), attempts, 3, now, nil, nil, nil,
		now, now,
	)
}

func TestCreatePrintJobs_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	ctx := context.Background()
	tenantID, orderID, batchID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()

	var jobs []store.PrintJob
	for _, dt := range store.DocumentTypes {
		jobs = append(jobs, store.PrintJob{
			ID: uuid.New(), TenantID: tenantID, OrderID: orderID, BatchID: batchID,
			DocumentType: dt, Content: string(dt), PaperWidthMm: 80, MaxAttempts: 3,
			NextAttemptAt: now, CreatedAt: now,
		})
	}

	mock.ExpectExec(`INSERT INTO print_jobs .* FROM unnest\(\$9::uuid\[\], \$10::text\[\], \$11::text\[\]\) WITH ORDINALITY`).
		WithArgs(tenantID, orderID, batchID, 80, store.JobStatusPending, 3, now, now,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := s.CreatePrintJobs(ctx, nil, jobs); err != nil {
		t.Fatalf("CreatePrintJobs failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreatePrintJobs_RejectsMixedBatches(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	jobs := []store.PrintJob{
		{ID: uuid.New(), BatchID: uuid.New()},
		{ID: uuid.New(), BatchID: uuid.New()},
	}

	if err := s.CreatePrintJobs(context.Background(), nil, jobs); err == nil {
		t.Error("expected error for jobs of different batches")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}

func TestCreatePrintJobs_UsesTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	ctx := context.Background()
	job := store.PrintJob{ID: uuid.New(), TenantID: uuid.New(), OrderID: uuid.New(), BatchID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO print_jobs`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	if err := s.CreatePrintJobs(ctx, tx, []store.PrintJob{job}); err != nil {
		t.Fatalf("CreatePrintJobs failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListClaimCandidates_QueryStructure(t *testing.T) {
	// We use sqlmock NOT to test sorting, but to test that we generated the correct SQL.
	s, mock := newMockStore(t)
	defer s.db.Close()

	ctx := context.Background()
	tenantID := uuid.New()
	now := time.Now()
	job1, job2 := uuid.New(), uuid.New()

	rows := sqlmock.NewRows(printJobRowColumns)
	addJobRow(rows, job1, tenantID, store.JobStatusPending, 0)
	addJobRow(rows, job2, tenantID, store.JobStatusPending, 1)

	mock.ExpectQuery(`SELECT .* FROM print_jobs WHERE tenant_id = \$1 AND status = \$2 AND next_attempt_at <= \$3 ORDER BY created_at ASC, seq ASC LIMIT \$4`).
		WithArgs(tenantID, store.JobStatusPending, now, 6).
		WillReturnRows(rows)

	jobs, err := s.ListClaimCandidates(ctx, tenantID, now, 6)
	if err != nil {
		t.Fatalf("ListClaimCandidates failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != job1 || jobs[1].ID != job2 {
		t.Errorf("unexpected order: %v, %v", jobs[0].ID, jobs[1].ID)
	}
	if jobs[1].Attempts != 1 {
		t.Errorf("got attempts %d, want 1", jobs[1].Attempts)
	}
	if jobs[0].LeaseOwner != nil {
		t.Errorf("expected nil lease owner, got %v", *jobs[0].LeaseOwner)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListClaimCandidates_Empty(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT .* FROM print_jobs`).
		WillReturnRows(sqlmock.NewRows(printJobRowColumns))

	jobs, err := s.ListClaimCandidates(context.Background(), uuid.New(), time.Now(), 2)
	if err != nil {
		t.Errorf("expected no error for empty queue, got %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected 0 jobs, got %d", len(jobs))
	}
}

func TestGetPrintJob_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	jobID, tenantID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT .* FROM print_jobs WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(jobID, tenantID).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetPrintJob(context.Background(), tenantID, jobID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}

func TestGetPrintJob_Leased(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	jobID, tenantID := uuid.New(), uuid.New()
	leasedAt := time.Now().Add(-time.Minute)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM print_jobs WHERE id = \$1 AND tenant_id = \$2`).
		WithArgs(jobID, tenantID).
		WillReturnRows(sqlmock.NewRows(printJobRowColumns).AddRow(
			jobID.String(), tenantID.String(), uuid.NewString(), uuid.NewString(), "CASHIER", "text", 58,
			"LEASED", 1, 3, now, "bridge-1", leasedAt, "paper jam",
			now, now,
		))

	job, err := s.GetPrintJob(context.Background(), tenantID, jobID)
	if err != nil {
		t.Fatalf("GetPrintJob failed: %v", err)
	}
	if job.Status != store.JobStatusLeased {
		t.Errorf("got status %s, want LEASED", job.Status)
	}
	if job.DocumentType != store.DocumentCashier {
		t.Errorf("got document type %s, want CASHIER", job.DocumentType)
	}
	if !job.LeasedBy("bridge-1") {
		t.Errorf("expected job leased by bridge-1")
	}
	if job.LastError == nil || *job.LastError != "paper jam" {
		t.Errorf("unexpected last error %v", job.LastError)
	}
}

func TestApplyTransition(t *testing.T) {
	now := time.Now()
	next := now.Add(2 * time.Second)

	tests := []struct {
		name       string
		transition store.Transition
		input      store.TransitionInput
		pattern    string
		extraArgs  []interface{}
		affected   int64
		want       bool
	}{
		{
			name:       "claim",
			transition: store.TransitionClaim,
			input:      store.TransitionInput{Owner: "bridge-1", At: now},
			pattern:    `UPDATE print_jobs SET status = \$4, updated_at = \$5, attempts = attempts \+ 1, lease_owner = \$6, leased_at = \$5 WHERE id = \$1 AND tenant_id = \$2 AND status = \$3 AND attempts < max_attempts`,
			extraArgs:  []interface{}{"bridge-1"},
			affected:   1,
			want:       true,
		},
		{
			name:       "claim lost race",
			transition: store.TransitionClaim,
			input:      store.TransitionInput{Owner: "bridge-2", At: now},
			pattern:    `UPDATE print_jobs SET status = \$4`,
			extraArgs:  []interface{}{"bridge-2"},
			affected:   0,
			want:       false,
		},
		{
			name:       "ack",
			transition: store.TransitionAck,
			input:      store.TransitionInput{Owner: "bridge-1", At: now},
			pattern:    `last_error = NULL WHERE id = \$1 AND tenant_id = \$2 AND status = \$3 AND lease_owner = \$6`,
			extraArgs:  []interface{}{"bridge-1"},
			affected:   1,
			want:       true,
		},
		{
			name:       "retry",
			transition: store.TransitionRetry,
			input:      store.TransitionInput{Owner: "bridge-1", At: now, Error: "offline", NextAttemptAt: next},
			pattern:    `last_error = \$7, next_attempt_at = \$8 WHERE .* AND lease_owner = \$6`,
			extraArgs:  []interface{}{"bridge-1", "offline", next},
			affected:   1,
			want:       true,
		},
		{
			name:       "exhaust",
			transition: store.TransitionExhaust,
			input:      store.TransitionInput{Owner: "bridge-1", At: now, Error: "jam"},
			pattern:    `last_error = \$7 WHERE .* AND lease_owner = \$6`,
			extraArgs:  []interface{}{"bridge-1", "jam"},
			affected:   1,
			want:       true,
		},
		{
			name:       "heal",
			transition: store.TransitionHeal,
			input:      store.TransitionInput{At: now},
			pattern:    `last_error = COALESCE\(last_error, \$6\) WHERE .* AND attempts >= max_attempts`,
			extraArgs:  []interface{}{store.ExhaustedReason},
			affected:   1,
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			defer s.db.Close()

			jobID, tenantID := uuid.New(), uuid.New()
			args := []interface{}{jobID, tenantID, tt.transition.From(), tt.transition.To(), now}
			args = append(args, tt.extraArgs...)

			mock.ExpectExec(tt.pattern).
				WithArgs(args...).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := s.ApplyTransition(context.Background(), tenantID, jobID, tt.transition, tt.input)
			if err != nil {
				t.Fatalf("ApplyTransition failed: %v", err)
			}
			if ok != tt.want {
				t.Errorf("got %v, want %v", ok, tt.want)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestApplyTransition_DatabaseError(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`UPDATE print_jobs`).WillReturnError(sql.ErrConnDone)

	_, err := s.ApplyTransition(context.Background(), uuid.New(), uuid.New(), store.TransitionAck, store.TransitionInput{Owner: "b"})
	if err == nil {
		t.Error("expected error, got nil")
	}
}

func TestReclaimExpired(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	tenantID := uuid.New()
	now := time.Now()
	cutoff := now.Add(-60 * time.Second)

	mock.ExpectExec(`UPDATE print_jobs SET status = \$1, lease_owner = NULL, leased_at = NULL, last_error = \$2, updated_at = \$3 WHERE tenant_id = \$4 AND status = \$5 AND leased_at < \$6`).
		WithArgs(store.JobStatusPending, store.ReclaimReason, now, tenantID, store.JobStatusLeased, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.ReclaimExpired(context.Background(), tenantID, cutoff, now)
	if err != nil {
		t.Fatalf("ReclaimExpired failed: %v", err)
	}
	if n != 2 {
		t.Errorf("got %d reclaimed, want 2", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLatestBatchID(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	tenantID, orderID, batchID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT batch_id FROM print_jobs WHERE tenant_id = \$1 AND order_id = \$2 ORDER BY created_at DESC, seq DESC LIMIT 1`).
		WithArgs(tenantID, orderID).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow(batchID.String()))

	got, err := s.LatestBatchID(context.Background(), tenantID, orderID)
	if err != nil {
		t.Fatalf("LatestBatchID failed: %v", err)
	}
	if got != batchID {
		t.Errorf("got %v, want %v", got, batchID)
	}
}

func TestLatestBatchID_NoBatch(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT batch_id FROM print_jobs`).WillReturnError(sql.ErrNoRows)

	_, err := s.LatestBatchID(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}

func TestCountPending(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM print_jobs WHERE status = \$1`).
		WithArgs(store.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountPending(context.Background())
	if err != nil {
		t.Fatalf("CountPending failed: %v", err)
	}
	if n != 7 {
		t.Errorf("got %d, want 7", n)
	}
}
