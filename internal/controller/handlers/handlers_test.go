package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"comanda/internal/controller/middleware"
	"comanda/internal/dispatch"
	"comanda/internal/store"

	"github.com/google/uuid"
)

// Mock Store
type mockStore struct {
	pingErr         error
	createTenantErr error

	capturedTenant *store.Tenant
	capturedHash   string
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) CreateTenant(ctx context.Context, tenant *store.Tenant, hashedKey string) error {
	m.capturedTenant = tenant
	m.capturedHash = hashedKey
	return m.createTenantErr
}

func (m *mockStore) GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) GetTenantBySlug(ctx context.Context, slug string) (*store.Tenant, error) {
	return nil, store.ErrNotFound
}

// Mock Dispatcher
type mockQueue struct {
	enqueueResp *dispatch.EnqueueResult
	previewResp string
	summaryResp *dispatch.BatchView
	claimResp   []store.PrintJob
	resultResp  *dispatch.Result
	err         error

	// Spies
	capturedTenant  uuid.UUID
	capturedID      uuid.UUID
	capturedWidth   int
	capturedDoc     store.DocumentType
	capturedBridge  string
	capturedLimit   int
	capturedMessage string
}

func (m *mockQueue) EnqueueBatch(ctx context.Context, tenantID, orderID uuid.UUID, opts dispatch.EnqueueOptions) (*dispatch.EnqueueResult, error) {
	m.capturedTenant, m.capturedID, m.capturedWidth = tenantID, orderID, opts.PaperWidthMm
	return m.enqueueResp, m.err
}

func (m *mockQueue) Preview(ctx context.Context, tenantID, orderID uuid.UUID, doc store.DocumentType, widthMm int) (string, error) {
	m.capturedTenant, m.capturedID, m.capturedDoc, m.capturedWidth = tenantID, orderID, doc, widthMm
	return m.previewResp, m.err
}

func (m *mockQueue) OrderSummary(ctx context.Context, tenantID, orderID uuid.UUID) (*dispatch.BatchView, error) {
	m.capturedTenant, m.capturedID = tenantID, orderID
	return m.summaryResp, m.err
}

func (m *mockQueue) Claim(ctx context.Context, tenantID uuid.UUID, bridgeID string, limit int) ([]store.PrintJob, error) {
	m.capturedTenant, m.capturedBridge, m.capturedLimit = tenantID, bridgeID, limit
	return m.claimResp, m.err
}

func (m *mockQueue) Ack(ctx context.Context, tenantID, jobID uuid.UUID, bridgeID string) (*dispatch.Result, error) {
	m.capturedTenant, m.capturedID, m.capturedBridge = tenantID, jobID, bridgeID
	return m.resultResp, m.err
}

func (m *mockQueue) Fail(ctx context.Context, tenantID, jobID uuid.UUID, bridgeID, message string) (*dispatch.Result, error) {
	m.capturedTenant, m.capturedID, m.capturedBridge, m.capturedMessage = tenantID, jobID, bridgeID, message
	return m.resultResp, m.err
}

func newTestHandlers(s *mockStore, q *mockQueue) *Handlers {
	if s == nil {
		s = &mockStore{}
	}
	if q == nil {
		q = &mockQueue{}
	}
	return New(s, q, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// withTenant authenticates req as tenantID, the way the auth middlewares do.
func withTenant(req *http.Request, tenantID uuid.UUID) *http.Request {
	tenant := &store.Tenant{ID: tenantID, Name: "Casa do Pastel", Slug: "casa-do-pastel", CreatedAt: time.Now()}
	return req.WithContext(middleware.NewContextWithTenant(req.Context(), tenant))
}
