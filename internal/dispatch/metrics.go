package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "comanda-dispatch"

// jobMetrics counts transitions. Instruments come from the global
// MeterProvider, which observability.InitMetrics wires to Prometheus.
type jobMetrics struct {
	enqueued  metric.Int64Counter
	claimed   metric.Int64Counter
	acked     metric.Int64Counter
	retried   metric.Int64Counter
	exhausted metric.Int64Counter
	reclaimed metric.Int64Counter
	healed    metric.Int64Counter
}

func newJobMetrics() (*jobMetrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &jobMetrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.enqueued, "comanda.jobs.enqueued", "Print jobs created"},
		{&m.claimed, "comanda.jobs.claimed", "Print jobs leased to a bridge"},
		{&m.acked, "comanda.jobs.acked", "Print jobs acknowledged as printed"},
		{&m.retried, "comanda.jobs.retried", "Failed print jobs scheduled for another attempt"},
		{&m.exhausted, "comanda.jobs.exhausted", "Failed print jobs without attempts left"},
		{&m.reclaimed, "comanda.jobs.reclaimed", "Leases returned to the queue after timeout"},
		{&m.healed, "comanda.jobs.healed", "Pending print jobs found exhausted and marked ERROR"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{job}"))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

func noopJobMetrics() *jobMetrics {
	meter := noop.NewMeterProvider().Meter(instrumentationName)
	c, _ := meter.Int64Counter("noop")
	return &jobMetrics{
		enqueued: c, claimed: c, acked: c, retried: c,
		exhausted: c, reclaimed: c, healed: c,
	}
}

func add(ctx context.Context, c metric.Int64Counter, n int64, tenant string) {
	if n == 0 {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attribute.String("tenant.id", tenant)))
}
