package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"comanda/pkg/api"
)

// ComandaClient handles tenant and admin calls to the comanda controller.
type ComandaClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewComandaClient creates a new client with the given base URL and bearer token.
func NewComandaClient(baseURL, token string) *ComandaClient {
	return &ComandaClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Enqueue sends POST /comanda/{orderId}. A zero width uses the server default.
func (c *ComandaClient) Enqueue(orderID string, paperWidthMm int) (*api.EnqueueResponse, error) {
	var result api.EnqueueResponse
	body := api.EnqueueRequest{PaperWidthMm: paperWidthMm}
	if err := c.do(http.MethodPost, "/comanda/"+url.PathEscape(orderID), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Preview sends GET /comanda/{orderId}/preview and returns the rendered text.
func (c *ComandaClient) Preview(orderID, docType string, paperWidthMm int) (string, error) {
	q := url.Values{}
	if docType != "" {
		q.Set("type", docType)
	}
	if paperWidthMm > 0 {
		q.Set("paperWidthMm", strconv.Itoa(paperWidthMm))
	}
	path := "/comanda/" + url.PathEscape(orderID) + "/preview"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var text string
	if err := c.do(http.MethodGet, path, nil, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Summary sends GET /comanda/{orderId}/summary.
func (c *ComandaClient) Summary(orderID string) (*api.OrderSummaryResponse, error) {
	var result api.OrderSummaryResponse
	if err := c.do(http.MethodGet, "/comanda/"+url.PathEscape(orderID)+"/summary", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateTenant sends POST /tenants. The client token must be the admin secret.
func (c *ComandaClient) CreateTenant(req api.CreateTenantRequest) (*api.CreateTenantResponse, error) {
	var result api.CreateTenantResponse
	if err := c.do(http.MethodPost, "/tenants", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do sends the request and decodes a JSON response into out. A *string out
// receives the raw body.
func (c *ComandaClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: resp.StatusCode, Message: errorText(respBody)}
	}

	if s, ok := out.(*string); ok {
		*s = string(respBody)
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func errorText(body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
