// Package memory is an in-process implementation of the store interfaces.
// It is safe for concurrent use and follows the same conditional-update
// rules as the postgres store, so dispatch behaviour can be exercised
// without a database.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"comanda/internal/store"

	"github.com/google/uuid"
)

var (
	_ store.TenantStore   = (*Store)(nil)
	_ store.OrderStore    = (*Store)(nil)
	_ store.PrintJobStore = (*Store)(nil)
)

var errUnsupported = errors.New("memory store does not execute SQL")

type jobEntry struct {
	job store.PrintJob
	seq int64
}

// Store keeps tenants, orders and print jobs in maps guarded by one mutex.
type Store struct {
	mu sync.Mutex

	tenants   map[uuid.UUID]store.Tenant
	keyHashes map[string]uuid.UUID
	orders    map[uuid.UUID]store.Order
	jobs      map[uuid.UUID]*jobEntry
	seq       int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		tenants:   make(map[uuid.UUID]store.Tenant),
		keyHashes: make(map[string]uuid.UUID),
		orders:    make(map[uuid.UUID]store.Order),
		jobs:      make(map[uuid.UUID]*jobEntry),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// BeginTx starts a transaction that buffers writes until Commit.
func (s *Store) BeginTx(_ context.Context) (store.Tx, error) {
	return &Tx{s: s}, nil
}

// --- tenants ---

// CreateTenant stores a tenant under its key hash.
func (s *Store) CreateTenant(_ context.Context, t *store.Tenant, hashedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; ok {
		return fmt.Errorf("tenant %s: %w", t.ID, store.ErrDuplicate)
	}
	if _, ok := s.keyHashes[hashedKey]; ok {
		return fmt.Errorf("api key hash: %w", store.ErrDuplicate)
	}
	for _, other := range s.tenants {
		if other.Slug == t.Slug {
			return fmt.Errorf("tenant slug %q: %w", t.Slug, store.ErrDuplicate)
		}
	}

	s.tenants[t.ID] = *t
	s.keyHashes[hashedKey] = t.ID
	return nil
}

// GetTenantByAPIKeyHash returns the tenant owning hash.
func (s *Store) GetTenantByAPIKeyHash(_ context.Context, hash string) (*store.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.keyHashes[hash]
	if !ok {
		return nil, store.ErrNotFound
	}
	t := s.tenants[id]
	return &t, nil
}

// GetTenantBySlug returns the tenant with slug.
func (s *Store) GetTenantBySlug(_ context.Context, slug string) (*store.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.Slug == slug {
			t := t
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

// --- orders ---

// PutOrder inserts or replaces an order snapshot. Orders are owned by the POS,
// so this is only used to seed local runs and tests.
func (s *Store) PutOrder(o store.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.Items = append([]store.OrderItem(nil), o.Items...)
	s.orders[o.ID] = o
}

// GetOrder returns a copy of the order.
func (s *Store) GetOrder(_ context.Context, tenantID, orderID uuid.UUID) (*store.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	o.Items = append([]store.OrderItem(nil), o.Items...)
	return &o, nil
}

// SetOrderPrinted updates the printed flag, or stages it when tx is a memory Tx.
func (s *Store) SetOrderPrinted(_ context.Context, tx store.DBTransaction, tenantID, orderID uuid.UUID, printed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return store.ErrNotFound
	}

	if mtx, ok := tx.(*Tx); ok {
		return mtx.stage(func() {
			o := s.orders[orderID]
			o.Printed = printed
			s.orders[orderID] = o
		})
	}

	o.Printed = printed
	s.orders[orderID] = o
	return nil
}

// --- print jobs ---

// CreatePrintJobs inserts the jobs of a batch, or stages them when tx is a memory Tx.
func (s *Store) CreatePrintJobs(_ context.Context, tx store.DBTransaction, jobs []store.PrintJob) error {
	if len(jobs) == 0 {
		return nil
	}

	first := jobs[0]
	for _, j := range jobs {
		if j.BatchID != first.BatchID || j.TenantID != first.TenantID || j.OrderID != first.OrderID {
			return errors.New("print jobs of a batch must share tenant, order and batch")
		}
	}

	rows := make([]store.PrintJob, len(jobs))
	for i, j := range jobs {
		j.Status = store.JobStatusPending
		j.Attempts = 0
		j.LeaseOwner, j.LeasedAt, j.LastError = nil, nil, nil
		j.UpdatedAt = j.CreatedAt
		rows[i] = j
	}

	insert := func() {
		for _, j := range rows {
			s.seq++
			s.jobs[j.ID] = &jobEntry{job: j, seq: s.seq}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range rows {
		if _, ok := s.jobs[j.ID]; ok {
			return fmt.Errorf("print job %s already exists", j.ID)
		}
	}

	if mtx, ok := tx.(*Tx); ok {
		return mtx.stage(insert)
	}
	insert()
	return nil
}

// GetPrintJob returns a copy of the job.
func (s *Store) GetPrintJob(_ context.Context, tenantID, jobID uuid.UUID) (*store.PrintJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[jobID]
	if !ok || e.job.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	j := e.job
	return &j, nil
}

// ListClaimCandidates returns due PENDING jobs of the tenant, oldest first.
func (s *Store) ListClaimCandidates(_ context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]store.PrintJob, error) {
	if limit <= 0 {
		limit = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.collect(func(j *store.PrintJob) bool {
		return j.TenantID == tenantID && j.Status == store.JobStatusPending && !j.NextAttemptAt.After(now)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListBatchJobs returns the jobs of a batch ordered by creation.
func (s *Store) ListBatchJobs(_ context.Context, tenantID, batchID uuid.UUID) ([]store.PrintJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collect(func(j *store.PrintJob) bool {
		return j.TenantID == tenantID && j.BatchID == batchID
	}), nil
}

// LatestBatchID returns the batch of the most recently created job of the order.
func (s *Store) LatestBatchID(_ context.Context, tenantID, orderID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.collect(func(j *store.PrintJob) bool {
		return j.TenantID == tenantID && j.OrderID == orderID
	})
	if len(jobs) == 0 {
		return uuid.Nil, store.ErrNotFound
	}
	return jobs[len(jobs)-1].BatchID, nil
}

// ApplyTransition applies t to the job if its guard holds.
func (s *Store) ApplyTransition(_ context.Context, tenantID, jobID uuid.UUID, t store.Transition, in store.TransitionInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[jobID]
	if !ok || e.job.TenantID != tenantID {
		return false, nil
	}
	return t.Apply(&e.job, in), nil
}

// ReclaimExpired returns the tenant's jobs leased before cutoff to PENDING.
func (s *Store) ReclaimExpired(_ context.Context, tenantID uuid.UUID, cutoff, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	in := store.TransitionInput{At: now}
	for _, e := range s.jobs {
		j := &e.job
		if j.TenantID != tenantID || j.LeasedAt == nil || !j.LeasedAt.Before(cutoff) {
			continue
		}
		if store.TransitionReclaim.Apply(j, in) {
			n++
		}
	}
	return n, nil
}

// CountPending counts PENDING jobs across tenants.
func (s *Store) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, e := range s.jobs {
		if e.job.Status == store.JobStatusPending {
			n++
		}
	}
	return n, nil
}

// collect returns copies of matching jobs ordered by created_at, then insertion.
// Callers must hold s.mu.
func (s *Store) collect(match func(*store.PrintJob) bool) []store.PrintJob {
	entries := make([]*jobEntry, 0)
	for _, e := range s.jobs {
		if match(&e.job) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(a, b int) bool {
		ja, jb := entries[a].job, entries[b].job
		if !ja.CreatedAt.Equal(jb.CreatedAt) {
			return ja.CreatedAt.Before(jb.CreatedAt)
		}
		return entries[a].seq < entries[b].seq
	})

	out := make([]store.PrintJob, len(entries))
	for i, e := range entries {
		out[i] = e.job
	}
	return out
}

// Tx buffers writes and applies them atomically on Commit.
// It does not execute SQL.
type Tx struct {
	s       *Store
	pending []func()
	done    bool
}

// stage records a write. Callers hold s.mu.
func (tx *Tx) stage(op func()) error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.pending = append(tx.pending, op)
	return nil
}

// Commit applies the staged writes.
func (tx *Tx) Commit() error {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	for _, op := range tx.pending {
		op()
	}
	tx.pending = nil
	return nil
}

// Rollback discards the staged writes. Like sql.Tx it returns sql.ErrTxDone
// after Commit, so it can be deferred.
func (tx *Tx) Rollback() error {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.pending = nil
	return nil
}

func (tx *Tx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errUnsupported
}

func (tx *Tx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errUnsupported
}

// QueryRowContext is not supported and returns nil.
func (tx *Tx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}
