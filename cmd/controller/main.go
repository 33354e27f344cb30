// Package main is the entry point for the comanda controller: the HTTP API
// that enqueues print batches and serves the bridge protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"comanda/internal/config"
	"comanda/internal/controller"
	"comanda/internal/dispatch"
	"comanda/internal/layout"
	"comanda/internal/logger"
	"comanda/internal/observability"
	"comanda/internal/store/postgres"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: comanda.yaml in current directory)")
	flag.Parse()

	log := logger.New()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateController(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}
	log = logger.NewWithLevel(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Postgres (the "Store")
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Info("running database migrations")
		version, err := postgres.Migrate(store.DB())
		if err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations completed", "version", version)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "comanda-controller", cfg.OTELEndpoint)
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Warn("failed to shutdown metrics", "error", err)
		}
	}()

	if err := observability.RegisterPendingGauge(store.CountPending, log); err != nil {
		log.Warn("pending jobs gauge disabled", "error", err)
	}

	engine, err := layout.New(layout.Options{
		Locale:         cfg.Locale,
		CurrencySymbol: cfg.CurrencySymbol,
	})
	if err != nil {
		log.Error("invalid layout settings", "error", err)
		os.Exit(1)
	}

	queue := dispatch.New(store, engine, dispatch.Options{
		LeaseTTL:            cfg.LeaseTTL,
		BackoffBase:         cfg.BackoffBase,
		MaxAttempts:         cfg.MaxAttempts,
		DefaultPaperWidthMm: cfg.DefaultPaperWidthMm,
	}, log)

	if cfg.AdminSecret == "" {
		log.Warn("ADMIN_SECRET is not set, tenant creation is disabled")
	}

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(controller.Options{
		Addr:         addr,
		BridgeSecret: cfg.BridgeSecret,
		AdminSecret:  cfg.AdminSecret,
		Metrics:      metricsHandler,
		Logger:       log,
	}, store, queue)

	log.Info("comanda controller starting", "addr", addr, "locale", cfg.Locale, "lease_ttl", cfg.LeaseTTL)

	// Run blocks until a signal cancels ctx, then drains connections
	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}

	log.Info("controller exited properly")
}
