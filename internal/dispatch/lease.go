package dispatch

import (
	"context"
	"errors"
	"fmt"

	"comanda/internal/logger"
	"comanda/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultFailMessage is recorded when a bridge fails a job without a reason.
const DefaultFailMessage = "print failed"

// ClampLimit bounds a claim limit to [MinClaimLimit, MaxClaimLimit].
func ClampLimit(limit int) int {
	if limit < MinClaimLimit {
		return MinClaimLimit
	}
	if limit > MaxClaimLimit {
		return MaxClaimLimit
	}
	return limit
}

// Claim leases up to limit due jobs of the tenant to bridgeID.
//
// Expired leases are swept back to PENDING first. Candidates are read without
// locks and each one is leased with its own conditional update, so a
// candidate taken by a concurrent claimer is skipped. Twice the limit is
// fetched to absorb those losses and any exhausted job, which is healed into
// ERROR instead of being leased.
func (q *Queue) Claim(ctx context.Context, tenantID uuid.UUID, bridgeID string, limit int) ([]store.PrintJob, error) {
	if bridgeID == "" {
		return nil, fmt.Errorf("%w: bridgeId is required", ErrBadRequest)
	}
	limit = ClampLimit(limit)

	ctx, span := q.tracer.Start(ctx, "dispatch.claim", trace.WithAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("bridge.id", bridgeID),
		attribute.Int("limit", limit),
	))
	defer span.End()

	log := logger.FromContext(ctx, q.logger)
	tenant := tenantID.String()
	now := q.opts.Now()

	reclaimed, err := q.store.ReclaimExpired(ctx, tenantID, now.Add(-q.opts.LeaseTTL), now)
	if err != nil {
		return nil, spanError(span, err)
	}
	if reclaimed > 0 {
		add(ctx, q.metrics.reclaimed, reclaimed, tenant)
		log.Warn("reclaimed expired print leases", "tenant_id", tenantID, "count", reclaimed, "lease_ttl", q.opts.LeaseTTL)
	}

	candidates, err := q.store.ListClaimCandidates(ctx, tenantID, now, 2*limit)
	if err != nil {
		return nil, spanError(span, err)
	}

	in := store.TransitionInput{Owner: bridgeID, At: now}
	claimed := make([]store.PrintJob, 0, limit)

	for _, job := range candidates {
		if len(claimed) >= limit {
			break
		}

		if job.Exhausted() {
			healed, err := q.store.ApplyTransition(ctx, tenantID, job.ID, store.TransitionHeal, store.TransitionInput{At: now})
			if err != nil {
				log.Error("failed to heal exhausted print job", "job_id", job.ID, "error", err)
				continue
			}
			if healed {
				add(ctx, q.metrics.healed, 1, tenant)
				log.Warn("exhausted print job marked as error", "job_id", job.ID, "attempts", job.Attempts)
			}
			continue
		}

		ok, err := q.store.ApplyTransition(ctx, tenantID, job.ID, store.TransitionClaim, in)
		if err != nil {
			if len(claimed) == 0 {
				return nil, spanError(span, err)
			}
			// the leases already taken are returned; anything else expires
			log.Error("claim interrupted", "job_id", job.ID, "error", err)
			break
		}
		if !ok {
			continue
		}

		store.TransitionClaim.Apply(&job, in)
		claimed = append(claimed, job)
	}

	add(ctx, q.metrics.claimed, int64(len(claimed)), tenant)
	span.SetAttributes(attribute.Int("claimed", len(claimed)))
	if len(claimed) > 0 {
		log.Debug("print jobs claimed", "tenant_id", tenantID, "bridge_id", bridgeID, "count", len(claimed))
	}

	return claimed, nil
}

// Result is the outcome of Ack or Fail.
type Result struct {
	JobID   uuid.UUID
	OrderID uuid.UUID
	BatchID uuid.UUID
	// Status is the job status after the call.
	Status store.JobStatus
	// AlreadyOK is set when an ack arrives for a job that is already printed.
	AlreadyOK bool
	Summary   Summary
}

// Ack marks a job leased by bridgeID as printed. Acking a job that is
// already OK succeeds with AlreadyOK set.
func (q *Queue) Ack(ctx context.Context, tenantID, jobID uuid.UUID, bridgeID string) (*Result, error) {
	if bridgeID == "" {
		return nil, fmt.Errorf("%w: bridgeId is required", ErrBadRequest)
	}

	ctx, span := q.tracer.Start(ctx, "dispatch.ack", trace.WithAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("job.id", jobID.String()),
		attribute.String("bridge.id", bridgeID),
	))
	defer span.End()

	job, err := q.loadJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, spanError(span, err)
	}
	if job.Status == store.JobStatusOK {
		return alreadyOK(job), nil
	}
	if err := checkLease(job, bridgeID); err != nil {
		return nil, err
	}

	ok, err := q.store.ApplyTransition(ctx, tenantID, jobID, store.TransitionAck, store.TransitionInput{
		Owner: bridgeID,
		At:    q.opts.Now(),
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	if !ok {
		// lost a race: a duplicate ack won, or the lease expired meanwhile
		current, err := q.loadJob(ctx, tenantID, jobID)
		if err != nil {
			return nil, spanError(span, err)
		}
		if current.Status == store.JobStatusOK {
			return alreadyOK(current), nil
		}
		return nil, fmt.Errorf("%w: job %s is %s", ErrConflict, jobID, current.Status)
	}

	add(ctx, q.metrics.acked, 1, tenantID.String())
	return q.result(ctx, job, store.JobStatusOK), nil
}

// Fail records a print failure reported by the bridge holding the lease.
// The job goes back to PENDING with exponential backoff, or to ERROR when
// it has no attempts left. The batch summary is returned either way.
func (q *Queue) Fail(ctx context.Context, tenantID, jobID uuid.UUID, bridgeID, message string) (*Result, error) {
	if bridgeID == "" {
		return nil, fmt.Errorf("%w: bridgeId is required", ErrBadRequest)
	}
	if message == "" {
		message = DefaultFailMessage
	}

	ctx, span := q.tracer.Start(ctx, "dispatch.fail", trace.WithAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("job.id", jobID.String()),
		attribute.String("bridge.id", bridgeID),
	))
	defer span.End()

	log := logger.FromContext(ctx, q.logger)

	job, err := q.loadJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, spanError(span, err)
	}
	if err := checkLease(job, bridgeID); err != nil {
		return nil, err
	}

	now := q.opts.Now()
	in := store.TransitionInput{Owner: bridgeID, At: now, Error: message}

	t := store.TransitionRetry
	if job.Exhausted() {
		t = store.TransitionExhaust
	} else {
		in.NextAttemptAt = now.Add(Backoff(q.opts.BackoffBase, job.Attempts))
	}

	ok, err := q.store.ApplyTransition(ctx, tenantID, jobID, t, in)
	if err != nil {
		return nil, spanError(span, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: lease on job %s was lost", ErrConflict, jobID)
	}

	span.SetAttributes(attribute.String("transition", t.String()))
	if t == store.TransitionExhaust {
		add(ctx, q.metrics.exhausted, 1, tenantID.String())
		log.Warn("print job failed permanently",
			"job_id", jobID, "order_id", job.OrderID, "attempts", job.Attempts, "error", message)
	} else {
		add(ctx, q.metrics.retried, 1, tenantID.String())
		log.Info("print job scheduled for retry",
			"job_id", jobID, "attempts", job.Attempts, "next_attempt_at", in.NextAttemptAt, "error", message)
	}

	return q.result(ctx, job, t.To()), nil
}

func (q *Queue) loadJob(ctx context.Context, tenantID, jobID uuid.UUID) (*store.PrintJob, error) {
	job, err := q.store.GetPrintJob(ctx, tenantID, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	return job, nil
}

func checkLease(job *store.PrintJob, bridgeID string) error {
	if job.Status != store.JobStatusLeased {
		return fmt.Errorf("%w: job %s is %s", ErrConflict, job.ID, job.Status)
	}
	if !job.LeasedBy(bridgeID) {
		return fmt.Errorf("%w: job %s is leased by another bridge", ErrConflict, job.ID)
	}
	return nil
}

func alreadyOK(job *store.PrintJob) *Result {
	return &Result{
		JobID:     job.ID,
		OrderID:   job.OrderID,
		BatchID:   job.BatchID,
		Status:    store.JobStatusOK,
		AlreadyOK: true,
	}
}

// result recomputes the batch summary after a transition. The summary is a
// best-effort read: a failure here does not undo the transition.
func (q *Queue) result(ctx context.Context, job *store.PrintJob, status store.JobStatus) *Result {
	res := &Result{
		JobID:   job.ID,
		OrderID: job.OrderID,
		BatchID: job.BatchID,
		Status:  status,
	}

	log := logger.FromContext(ctx, q.logger)

	jobs, err := q.store.ListBatchJobs(ctx, job.TenantID, job.BatchID)
	if err != nil {
		log.Error("failed to summarize batch", "batch_id", job.BatchID, "error", err)
		return res
	}
	res.Summary = Summarize(jobs)

	if res.Summary.Status == store.JobStatusOK {
		if err := q.store.SetOrderPrinted(ctx, nil, job.TenantID, job.OrderID, true); err != nil {
			log.Warn("failed to mark order printed", "order_id", job.OrderID, "error", err)
		}
	}
	return res
}
