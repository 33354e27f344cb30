// Package main is the entry point for the comanda print bridge.
// A bridge runs next to the restaurant's printers, leases rendered
// comandas from the controller and prints them.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comanda/internal/bridge"
	"comanda/internal/config"
	"comanda/internal/logger"
	"comanda/internal/observability"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default: comanda.yaml in current directory)")
	metricsAddr := flag.String("metrics-addr", ":6162", "Address for the bridge /metrics endpoint (empty disables it)")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateBridge(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}
	log = logger.NewWithLevel(os.Stdout, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "comanda-bridge", cfg.OTELEndpoint)
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

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metricsHandler)
			log.Info("bridge metrics listening", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn("metrics server error", "error", err)
			}
		}()
	}

	// Without an output dir documents go to stdout
	var printer bridge.Printer = bridge.NewWriterPrinter(os.Stdout)
	if cfg.BridgeOutputDir != "" {
		fp, err := bridge.NewFilePrinter(cfg.BridgeOutputDir)
		if err != nil {
			log.Error("failed to open output dir", "error", err)
			os.Exit(1)
		}
		printer = fp
		log.Info("spooling documents", "dir", cfg.BridgeOutputDir)
	}

	client := bridge.NewClient(cfg.ControllerURL, cfg.BridgeSecret, cfg.BridgeTenantSlug)
	agent := bridge.New(client, printer, bridge.AgentConfig{
		ID:           cfg.BridgeID,
		Concurrency:  cfg.BridgeBatchSize,
		PollInterval: cfg.BridgePollInterval,
		MaxBackoff:   cfg.BridgeMaxBackoff,
	}, log.With("tenant", cfg.BridgeTenantSlug))

	go agent.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down bridge")
	cancel()

	select {
	case <-agent.Done():
	case <-time.After(time.Minute):
		log.Warn("in-flight documents did not finish; their leases will be reclaimed")
	}
}
