package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"comanda/internal/store"
	"comanda/pkg/api"

	"github.com/google/uuid"
)

func TestBridgeAuth(t *testing.T) {
	tenant := &store.Tenant{ID: uuid.New(), Name: "Casa do Pastel", Slug: "casa-do-pastel"}

	tests := []struct {
		name     string
		token    string
		slug     string
		tenant   *store.Tenant
		err      error
		wantCode int
	}{
		{"missing token", "", "casa-do-pastel", tenant, nil, http.StatusUnauthorized},
		{"wrong token", "nope", "casa-do-pastel", tenant, nil, http.StatusUnauthorized},
		{"missing slug", "bridge-secret", "", tenant, nil, http.StatusUnauthorized},
		{"unknown slug", "bridge-secret", "ghost", nil, store.ErrNotFound, http.StatusUnauthorized},
		{"store failure", "bridge-secret", "casa-do-pastel", nil, errors.New("connection refused"), http.StatusInternalServerError},
		{"valid", "bridge-secret", "casa-do-pastel", tenant, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := &mockTenantStore{tenant: tt.tenant, err: tt.err}

			var gotID uuid.UUID
			handler := BridgeAuth("bridge-secret", mockStore)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = TenantIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/jobs/claim", nil)
			if tt.token != "" {
				req.Header.Set(api.HeaderBridgeToken, tt.token)
			}
			if tt.slug != "" {
				req.Header.Set(api.HeaderTenantSlug, tt.slug)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("got status %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK {
				if gotID != tenant.ID {
					t.Errorf("tenant in context = %v, want %v", gotID, tenant.ID)
				}
				if mockStore.capturedSlug != tt.slug {
					t.Errorf("looked up slug %q, want %q", mockStore.capturedSlug, tt.slug)
				}
			}
		})
	}
}
