// Package controller serves the comanda HTTP API: tenant-facing enqueue and
// preview routes, and the pull protocol used by print bridges.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"comanda/internal/controller/handlers"
	"comanda/internal/controller/middleware"
)

// Options configures the HTTP surface.
type Options struct {
	Addr string
	// BridgeSecret is the shared X-Bridge-Token value.
	BridgeSecret string
	// AdminSecret guards POST /tenants. Empty rejects every tenant creation.
	AdminSecret string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(opts Options, store handlers.StoreFactory, queue handlers.Dispatcher) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handlers.New(store, queue, log)
	tenantAuth := middleware.AuthMiddleware(store)
	bridgeAuth := middleware.BridgeAuth(opts.BridgeSecret, store)
	adminAuth := middleware.RequireInternalAuth(opts.AdminSecret)
	limit := middleware.NewRateLimiter().Middleware()

	// tenant routes authenticate with the tenant API key
	tenant := func(f http.HandlerFunc) http.Handler { return tenantAuth(limit(f)) }
	// bridge routes authenticate with the shared token and a tenant slug
	bridge := func(f http.HandlerFunc) http.Handler { return bridgeAuth(limit(f)) }

	mux := http.NewServeMux()

	mux.Handle("POST /tenants", adminAuth(http.HandlerFunc(h.CreateTenant)))

	mux.Handle("POST /comanda/{orderId}", tenant(h.Enqueue))
	mux.Handle("GET /comanda/{orderId}/preview", tenant(h.Preview))
	mux.Handle("GET /comanda/{orderId}/summary", tenant(h.Summary))

	mux.Handle("POST /jobs/claim", bridge(h.ClaimJobs))
	mux.Handle("POST /jobs/{id}/ack", bridge(h.AckJob))
	mux.Handle("POST /jobs/{id}/fail", bridge(h.FailJob))

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      middleware.RequestLogger(log)(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
