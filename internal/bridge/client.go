// Package bridge is the reference print agent. It leases rendered comandas
// from the controller, sends them to a local printer and reports the outcome.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"comanda/pkg/api"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// APIError is a non-2xx answer from the controller.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// IsConflict reports whether err is a 409 from the controller, i.e. the job
// is no longer leased by this bridge.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// Client speaks the bridge protocol.
type Client struct {
	BaseURL    string
	Token      string
	TenantSlug string
	HTTPClient *http.Client
}

// NewClient creates a client for the controller at baseURL.
func NewClient(baseURL, token, tenantSlug string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		TenantSlug: tenantSlug,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Claim sends POST /jobs/claim and returns the leased jobs, possibly none.
func (c *Client) Claim(ctx context.Context, bridgeID string, limit int) ([]api.ClaimedJob, error) {
	var resp api.ClaimResponse
	if err := c.post(ctx, "/jobs/claim", api.ClaimRequest{BridgeID: bridgeID, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Ack sends POST /jobs/{id}/ack.
func (c *Client) Ack(ctx context.Context, jobID, bridgeID string) (*api.JobResultResponse, error) {
	var resp api.JobResultResponse
	if err := c.post(ctx, "/jobs/"+jobID+"/ack", api.AckRequest{BridgeID: bridgeID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fail sends POST /jobs/{id}/fail.
func (c *Client) Fail(ctx context.Context, jobID, bridgeID, message string) (*api.JobResultResponse, error) {
	var resp api.JobResultResponse
	if err := c.post(ctx, "/jobs/"+jobID+"/fail", api.FailRequest{BridgeID: bridgeID, Error: message}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderBridgeToken, c.Token)
	req.Header.Set(api.HeaderTenantSlug, c.TenantSlug)

	// carry the print span to the controller
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorMessage extracts the error field of an api.ErrorResponse, falling back
// to the raw body.
func errorMessage(body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
