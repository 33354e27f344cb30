// Package observability wires OpenTelemetry tracing and metrics for the controller and bridge.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PendingGaugeName is the observable gauge reporting jobs waiting for a bridge.
const PendingGaugeName = "comanda.jobs.pending"

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// RegisterPendingGauge reports count() on every scrape. The store is only
// queried when metrics are collected; a failing count skips the observation.
func RegisterPendingGauge(count func(context.Context) (int64, error), log *slog.Logger) error {
	meter := otel.Meter("comanda-controller")

	_, err := meter.Int64ObservableGauge(PendingGaugeName,
		metric.WithDescription("Print jobs waiting to be claimed"),
		metric.WithUnit("{job}"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			n, err := count(ctx)
			if err != nil {
				log.Warn("failed to count pending print jobs", "error", err)
				return nil
			}
			obs.Observe(n)
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", PendingGaugeName, err)
	}
	return nil
}
