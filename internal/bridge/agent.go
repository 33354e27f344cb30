package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"comanda/pkg/api"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Protocol is the controller side of the bridge protocol. *Client implements it.
type Protocol interface {
	Claim(ctx context.Context, bridgeID string, limit int) ([]api.ClaimedJob, error)
	Ack(ctx context.Context, jobID, bridgeID string) (*api.JobResultResponse, error)
	Fail(ctx context.Context, jobID, bridgeID, message string) (*api.JobResultResponse, error)
}

// AgentConfig holds configuration for the bridge agent.
type AgentConfig struct {
	// ID is the lease owner name sent with every call.
	ID string
	// Concurrency is the number of documents printed at once and the
	// upper bound of a claim.
	Concurrency  int
	PollInterval time.Duration
	MaxBackoff   time.Duration // Maximum backoff when nothing is due (default: 30s)
	PrintTimeout time.Duration // Per document (default: 30s)
}

// Agent runs the claim, print, report loop.
type Agent struct {
	client  Protocol
	printer Printer
	config  AgentConfig
	logger  *slog.Logger
	tracer  trace.Tracer
	printed metric.Int64Counter
	failed  metric.Int64Counter
	done    chan struct{}
}

// New creates a new bridge agent.
func New(c Protocol, p Printer, config AgentConfig, log *slog.Logger) *Agent {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Concurrency > 10 {
		config.Concurrency = 10
	}

	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Second
	}

	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}

	if config.PrintTimeout <= 0 {
		config.PrintTimeout = 30 * time.Second
	}

	if log == nil {
		log = slog.Default()
	}

	meter := otel.Meter("comanda-bridge")
	printed, _ := meter.Int64Counter("comanda.bridge.printed", metric.WithDescription("Documents printed and acked"))
	failed, _ := meter.Int64Counter("comanda.bridge.failed", metric.WithDescription("Documents that failed to print"))

	return &Agent{
		client:  c,
		printer: p,
		config:  config,
		logger:  log.With("bridge_id", config.ID),
		tracer:  otel.Tracer("comanda-bridge"),
		printed: printed,
		failed:  failed,
		done:    make(chan struct{}),
	}
}

// Run starts the poll loop. It blocks until the context is cancelled.
// On shutdown it stops claiming and lets in-flight documents finish and report.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("bridge starting", "concurrency", a.config.Concurrency)

	// Semaphore to limit concurrency
	sem := make(chan struct{}, a.config.Concurrency)
	var wg sync.WaitGroup

	// Signals that a slot became available (adaptive polling)
	pollNow := make(chan struct{}, 1)

	// Grows while nothing is due, resets when work is found
	currentBackoff := a.config.PollInterval

	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
			// Already a poll pending
		}
	}

	backOff := func() {
		currentBackoff *= 2
		if currentBackoff > a.config.MaxBackoff {
			currentBackoff = a.config.MaxBackoff
		}
	}

	// Initial poll
	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down, waiting for in-flight documents")
			wg.Wait()
			close(a.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			triggerPoll()

		case <-pollNow:
			availableSlots := a.config.Concurrency - len(sem)
			if availableSlots <= 0 {
				continue
			}

			jobs, err := a.client.Claim(ctx, a.config.ID, availableSlots)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Warn("claim failed", "error", err)
				}
				backOff()
				continue
			}

			if len(jobs) == 0 {
				backOff()
				continue
			}

			currentBackoff = a.config.PollInterval
			a.logger.Debug("claimed print jobs", "count", len(jobs))

			for _, job := range jobs {
				sem <- struct{}{}

				wg.Add(1)
				go func(job api.ClaimedJob) {
					defer wg.Done()
					defer func() {
						<-sem
						triggerPoll()
					}()
					// finish and report even if shutdown starts mid-print
					a.processJob(context.WithoutCancel(ctx), job)
				}(job)
			}

			// More may be due; poll again while slots remain
			if len(jobs) < availableSlots {
				triggerPoll()
			}
		}
	}
}

// Done returns a channel that is closed when the agent has fully stopped.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// processJob prints one leased document and reports the outcome.
func (a *Agent) processJob(ctx context.Context, job api.ClaimedJob) {
	ctx, span := a.tracer.Start(ctx, "bridge.print",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("order.id", job.OrderID),
			attribute.String("document.type", job.DocumentType),
			attribute.Int("attempts", job.Attempts),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	log := a.logger.With("job_id", job.ID, "document_type", job.DocumentType, "attempt", job.Attempts)

	printCtx, cancel := context.WithTimeout(ctx, a.config.PrintTimeout)
	err := a.printer.Print(printCtx, job)
	cancel()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.failed.Add(ctx, 1)

		res, ferr := a.client.Fail(ctx, job.ID, a.config.ID, err.Error())
		if ferr != nil {
			// the lease expires and the controller reclaims the job
			log.Error("failed to report print failure", "print_error", err, "error", ferr)
			return
		}
		log.Warn("print failed", "error", err, "job_status", res.Status)
		return
	}

	res, err := a.client.Ack(ctx, job.ID, a.config.ID)
	switch {
	case IsConflict(err):
		// printed after the lease expired; the job may print again elsewhere
		log.Warn("lease lost before ack", "error", err)
	case err != nil:
		log.Error("failed to ack", "error", err)
	default:
		a.printed.Add(ctx, 1)
		if res.Summary != nil && res.Summary.Status == "OK" {
			log.Info("order printed", "order_id", res.OrderID)
		}
	}
}
