package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"comanda/internal/store"
	"comanda/pkg/api"
)

// TenantSlugLookup resolves the tenant a bridge prints for.
type TenantSlugLookup interface {
	GetTenantBySlug(ctx context.Context, slug string) (*store.Tenant, error)
}

// BridgeAuth authenticates print bridges. A bridge presents the shared token in
// X-Bridge-Token and names its restaurant in X-Tenant-Slug.
func BridgeAuth(secret string, s TenantSlugLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(api.HeaderBridgeToken)
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeError(w, "Invalid bridge token", http.StatusUnauthorized)
				return
			}

			slug := r.Header.Get(api.HeaderTenantSlug)
			if slug == "" {
				writeError(w, "Missing tenant slug", http.StatusUnauthorized)
				return
			}

			tenant, err := s.GetTenantBySlug(r.Context(), slug)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				writeError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if tenant == nil {
				writeError(w, "Unknown tenant", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContextWithTenant(r.Context(), tenant)))
		})
	}
}
