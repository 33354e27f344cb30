// Package dispatch is the print job queue: it turns orders into batches of
// rendered documents and moves each job through claim, ack, fail and reclaim.
// It keeps no state of its own; every coordination point is a conditional
// update in the store.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"comanda/internal/logger"
	"comanda/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Claim limits.
const (
	MinClaimLimit = 1
	MaxClaimLimit = 10
)

// Store is the persistence the queue needs.
type Store interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	store.OrderStore
	store.PrintJobStore
}

// Renderer lays out one document of an order.
type Renderer interface {
	Render(o *store.Order, doc store.DocumentType, widthMm int) string
}

// Options holds the deployment-level queue settings.
type Options struct {
	LeaseTTL            time.Duration // default 60s
	BackoffBase         time.Duration // default 2s
	MaxAttempts         int           // default 3
	DefaultPaperWidthMm int           // default 80
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.LeaseTTL <= 0 {
		o.LeaseTTL = 60 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 2 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.DefaultPaperWidthMm <= 0 {
		o.DefaultPaperWidthMm = store.PaperWidth80
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Queue implements the dispatch operations.
type Queue struct {
	store    Store
	renderer Renderer
	opts     Options
	logger   *slog.Logger
	metrics  *jobMetrics
	tracer   trace.Tracer
}

// New creates a Queue.
func New(s Store, r Renderer, opts Options, log *slog.Logger) *Queue {
	opts.setDefaults()
	if log == nil {
		log = slog.Default()
	}

	m, err := newJobMetrics()
	if err != nil {
		log.Warn("job metrics disabled", "error", err)
		m = noopJobMetrics()
	}

	return &Queue{
		store:    s,
		renderer: r,
		opts:     opts,
		logger:   log,
		metrics:  m,
		tracer:   otel.Tracer(instrumentationName),
	}
}

// EnqueueOptions tunes a single enqueue.
type EnqueueOptions struct {
	// PaperWidthMm is normalized to 58 or 80. Zero uses the configured default.
	PaperWidthMm int
}

// EnqueueResult describes the batch created by EnqueueBatch.
type EnqueueResult struct {
	BatchID      uuid.UUID
	Total        int
	PaperWidthMm int
	Jobs         []store.PrintJob
}

// EnqueueBatch renders every document type for the order and stores them as
// one PENDING batch. The order's printed flag is reset in the same transaction.
func (q *Queue) EnqueueBatch(ctx context.Context, tenantID, orderID uuid.UUID, opts EnqueueOptions) (*EnqueueResult, error) {
	ctx, span := q.tracer.Start(ctx, "dispatch.enqueue", trace.WithAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("order.id", orderID.String()),
	))
	defer span.End()

	order, err := q.loadOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, spanError(span, err)
	}

	width := q.paperWidth(opts.PaperWidthMm)
	now := q.opts.Now()
	batchID := uuid.New()

	jobs := make([]store.PrintJob, 0, len(store.DocumentTypes))
	for _, doc := range store.DocumentTypes {
		jobs = append(jobs, store.PrintJob{
			ID:            uuid.New(),
			TenantID:      tenantID,
			OrderID:       orderID,
			BatchID:       batchID,
			DocumentType:  doc,
			Content:       q.renderer.Render(order, doc, width),
			PaperWidthMm:  width,
			Status:        store.JobStatusPending,
			MaxAttempts:   q.opts.MaxAttempts,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	tx, err := q.store.BeginTx(ctx)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := q.store.CreatePrintJobs(ctx, tx, jobs); err != nil {
		return nil, spanError(span, err)
	}
	if err := q.store.SetOrderPrinted(ctx, tx, tenantID, orderID, false); err != nil {
		return nil, spanError(span, fmt.Errorf("failed to reset printed flag: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return nil, spanError(span, fmt.Errorf("failed to commit batch: %w", err))
	}

	add(ctx, q.metrics.enqueued, int64(len(jobs)), tenantID.String())
	span.SetAttributes(attribute.String("batch.id", batchID.String()))
	logger.FromContext(ctx, q.logger).Info("print batch enqueued",
		"tenant_id", tenantID, "order_id", orderID, "batch_id", batchID,
		"jobs", len(jobs), "paper_width_mm", width)

	return &EnqueueResult{
		BatchID:      batchID,
		Total:        len(jobs),
		PaperWidthMm: width,
		Jobs:         jobs,
	}, nil
}

// Preview renders one document without creating jobs.
func (q *Queue) Preview(ctx context.Context, tenantID, orderID uuid.UUID, doc store.DocumentType, widthMm int) (string, error) {
	order, err := q.loadOrder(ctx, tenantID, orderID)
	if err != nil {
		return "", err
	}
	return q.renderer.Render(order, doc, q.paperWidth(widthMm)), nil
}

// BatchView is the latest batch of an order with its derived summary.
type BatchView struct {
	OrderID uuid.UUID
	BatchID uuid.UUID
	Summary Summary
	Jobs    []store.PrintJob
}

// OrderSummary returns the summary of the most recent batch of an order.
func (q *Queue) OrderSummary(ctx context.Context, tenantID, orderID uuid.UUID) (*BatchView, error) {
	batchID, err := q.store.LatestBatchID(ctx, tenantID, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: no print batch for order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}

	jobs, err := q.store.ListBatchJobs(ctx, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	return &BatchView{
		OrderID: orderID,
		BatchID: batchID,
		Summary: Summarize(jobs),
		Jobs:    jobs,
	}, nil
}

func (q *Queue) loadOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*store.Order, error) {
	order, err := q.store.GetOrder(ctx, tenantID, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return order, nil
}

func (q *Queue) paperWidth(mm int) int {
	if mm == 0 {
		mm = q.opts.DefaultPaperWidthMm
	}
	return store.NormalizePaperWidth(mm)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
