// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"comanda/internal/auth"
	"comanda/internal/store"
	"comanda/pkg/api"

	"github.com/google/uuid"
)

type tenantKey struct{}

// TenantKeyLookup resolves a tenant from a hashed API key.
type TenantKeyLookup interface {
	GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error)
}

// AuthMiddleware authenticates the tenant from "Authorization: Bearer <api key>".
// Every tenant-scoped handler runs behind it.
func AuthMiddleware(s TenantKeyLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := bearerToken(r)
			if !ok {
				writeError(w, "Missing or invalid authorization header", http.StatusUnauthorized)
				return
			}

			tenant, err := s.GetTenantByAPIKeyHash(r.Context(), auth.HashKey(key))
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				writeError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if tenant == nil {
				writeError(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContextWithTenant(r.Context(), tenant)))
		})
	}
}

// NewContextWithTenant returns a copy of ctx carrying the authenticated tenant.
func NewContextWithTenant(ctx context.Context, tenant *store.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// TenantFromContext returns the tenant stored by AuthMiddleware or BridgeAuth.
func TenantFromContext(ctx context.Context) (*store.Tenant, bool) {
	tenant, ok := ctx.Value(tenantKey{}).(*store.Tenant)
	return tenant, ok && tenant != nil
}

// TenantIDFromContext returns the authenticated tenant's ID.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenant, ok := TenantFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return tenant.ID, true
}

// bearerToken requires exactly "Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
