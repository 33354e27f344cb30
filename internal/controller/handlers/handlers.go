// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"comanda/internal/controller/middleware"
	"comanda/internal/dispatch"
	"comanda/internal/logger"
	"comanda/internal/store"
	"comanda/pkg/api"

	"github.com/google/uuid"
)

// StoreFactory is the persistence the handlers use directly. Queue
// operations go through Dispatcher.
type StoreFactory interface {
	Ping(ctx context.Context) error
	store.TenantStore
}

// Dispatcher is the print queue as seen by the HTTP layer.
type Dispatcher interface {
	EnqueueBatch(ctx context.Context, tenantID, orderID uuid.UUID, opts dispatch.EnqueueOptions) (*dispatch.EnqueueResult, error)
	Preview(ctx context.Context, tenantID, orderID uuid.UUID, doc store.DocumentType, widthMm int) (string, error)
	OrderSummary(ctx context.Context, tenantID, orderID uuid.UUID) (*dispatch.BatchView, error)
	Claim(ctx context.Context, tenantID uuid.UUID, bridgeID string, limit int) ([]store.PrintJob, error)
	Ack(ctx context.Context, tenantID, jobID uuid.UUID, bridgeID string) (*dispatch.Result, error)
	Fail(ctx context.Context, tenantID, jobID uuid.UUID, bridgeID, message string) (*dispatch.Result, error)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store  StoreFactory
	queue  Dispatcher
	logger *slog.Logger
}

// New creates a new Handlers instance.
func New(s StoreFactory, q Dispatcher, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{store: s, queue: q, logger: log}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// queueError maps dispatch errors to status codes. Internal errors are
// logged and hidden from the caller.
func (h *Handlers) queueError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, dispatch.ErrNotFound):
		h.httpError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dispatch.ErrConflict):
		h.httpError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, dispatch.ErrBadRequest):
		h.httpError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.FromContext(r.Context(), h.logger).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		h.httpError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// tenantID reads the tenant placed in the context by the auth middlewares.
func (h *Handlers) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		h.httpError(w, "Invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody decodes a JSON body. An empty body leaves v untouched.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func summaryResponse(s dispatch.Summary) api.BatchSummary {
	return api.BatchSummary{
		Total:     s.Total,
		OK:        s.OK,
		Error:     s.Error,
		Pending:   s.Pending,
		LastError: s.LastError,
		Status:    string(s.Status),
	}
}
