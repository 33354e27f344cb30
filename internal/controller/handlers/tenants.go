package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"comanda/internal/auth"
	"comanda/internal/logger"
	"comanda/internal/store"
	"comanda/pkg/api"

	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CreateTenant handles POST /tenants (Admin Only).
// It generates a new API Key, hashes it for storage, and returns the raw key ONCE.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateTenantRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.Slug == "" {
		h.httpError(w, "name and slug are required", http.StatusBadRequest)
		return
	}
	if !slugPattern.MatchString(req.Slug) {
		h.httpError(w, "slug must be lowercase letters, digits and dashes", http.StatusBadRequest)
		return
	}
	if req.RateLimit < 0 || req.RateLimitBurst < 0 {
		h.httpError(w, "rate limits must not be negative", http.StatusBadRequest)
		return
	}

	apiKey, err := auth.GenerateKey()
	if err != nil {
		h.httpError(w, "Entropy failure", http.StatusInternalServerError)
		return
	}

	tenant := &store.Tenant{
		ID:             uuid.New(),
		Name:           req.Name,
		Slug:           req.Slug,
		RateLimit:      req.RateLimit,
		RateLimitBurst: req.RateLimitBurst,
		CreatedAt:      time.Now().UTC(),
	}

	err = h.store.CreateTenant(ctx, tenant, auth.HashKey(apiKey))
	if errors.Is(err, store.ErrDuplicate) {
		h.httpError(w, "Tenant slug already in use", http.StatusConflict)
		return
	}
	if err != nil {
		logger.FromContext(ctx, h.logger).Error("failed to create tenant", "slug", req.Slug, "error", err)
		h.httpError(w, "Failed to create tenant", http.StatusInternalServerError)
		return
	}

	// Return the Raw Key (This is the only time the user sees it)
	h.respondJson(w, http.StatusCreated, api.CreateTenantResponse{
		ID:     tenant.ID.String(),
		Name:   tenant.Name,
		Slug:   tenant.Slug,
		APIKey: apiKey,
	})
}
