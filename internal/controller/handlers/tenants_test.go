package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"comanda/internal/auth"
	"comanda/internal/store"
	"comanda/pkg/api"
)

func TestCreateTenant(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(*mockStore)
		expectedStatus int
		expectedInBody string
	}{
		{
			name:           "Success",
			body:           `{"name": "Casa do Pastel", "slug": "casa-do-pastel", "rateLimit": 5, "rateLimitBurst": 10}`,
			mockSetup:      func(ms *mockStore) {},
			expectedStatus: http.StatusCreated,
			expectedInBody: "apiKey",
		},
		{
			name:           "Invalid Request Body",
			body:           `{invalid}`,
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid request body",
		},
		{
			name:           "Missing Slug",
			body:           `{"name": "Casa do Pastel"}`,
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "name and slug are required",
		},
		{
			name:           "Invalid Slug",
			body:           `{"name": "Casa do Pastel", "slug": "Casa do Pastel"}`,
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "slug must be",
		},
		{
			name:           "Negative Rate Limit",
			body:           `{"name": "Casa do Pastel", "slug": "casa", "rateLimit": -1}`,
			mockSetup:      func(m *mockStore) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "must not be negative",
		},
		{
			name: "Duplicate Slug",
			body: `{"name": "Casa do Pastel", "slug": "casa-do-pastel"}`,
			mockSetup: func(m *mockStore) {
				m.createTenantErr = fmt.Errorf("tenant casa-do-pastel: %w", store.ErrDuplicate)
			},
			expectedStatus: http.StatusConflict,
			expectedInBody: "already in use",
		},
		{
			name: "Database Error",
			body: `{"name": "Crash Corp", "slug": "crash"}`,
			mockSetup: func(m *mockStore) {
				m.createTenantErr = errors.New("db down")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedInBody: "Failed to create",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mock := &mockStore{}
			if tt.mockSetup != nil {
				tt.mockSetup(mock)
			}

			h := newTestHandlers(mock, nil)

			// Request
			req := httptest.NewRequest(http.MethodPost, "/tenants", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()

			// Execute
			h.CreateTenant(rr, req)

			// Assertions
			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %d but want %d", rr.Code, tt.expectedStatus)
			}

			if tt.expectedInBody != "" && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %s want substring %s", rr.Body.String(), tt.expectedInBody)
			}

			// Verify response
			if tt.expectedStatus == http.StatusCreated {
				var resp api.CreateTenantResponse
				if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}

				if !strings.HasPrefix(resp.APIKey, auth.KeyPrefix) {
					t.Errorf("apiKey must start with %q, got %s", auth.KeyPrefix, resp.APIKey)
				}
				if resp.Slug != "casa-do-pastel" {
					t.Errorf("slug = %q, want casa-do-pastel", resp.Slug)
				}
				if mock.capturedHash != auth.HashKey(resp.APIKey) {
					t.Error("stored hash does not match the returned key")
				}
				if mock.capturedTenant.RateLimit != 5 || mock.capturedTenant.RateLimitBurst != 10 {
					t.Errorf("rate limits not stored: %+v", mock.capturedTenant)
				}
			}
		})
	}
}
