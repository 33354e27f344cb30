// Package api contains shared JSON request/response structs.
// This package is shared between the controller, the bridge agent and the CLI.
package api

import "time"

// Header names used by bridges.
const (
	HeaderBridgeToken = "X-Bridge-Token"
	HeaderTenantSlug  = "X-Tenant-Slug"
	HeaderRequestID   = "X-Request-ID"
)

// CreateTenantRequest is the request body for creating a new tenant.
type CreateTenantRequest struct {
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	RateLimit      float64 `json:"rateLimit,omitempty"`
	RateLimitBurst int     `json:"rateLimitBurst,omitempty"`
}

// CreateTenantResponse is the response body after creating a tenant.
// APIKey is only ever returned here.
type CreateTenantResponse struct {
	ID     string `json:"tenantId"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	APIKey string `json:"apiKey"`
}

// EnqueueRequest is the optional body of POST /comanda/{orderId}.
type EnqueueRequest struct {
	PaperWidthMm int `json:"paperWidthMm,omitempty"`
}

// EnqueueResponse is returned after a batch is created.
type EnqueueResponse struct {
	Success      bool   `json:"success"`
	BatchID      string `json:"batchId"`
	Total        int    `json:"total"`
	PaperWidthMm int    `json:"paperWidthMm"`
}

// ClaimRequest is sent by a bridge to lease jobs.
type ClaimRequest struct {
	BridgeID string `json:"bridgeId"`
	Limit    int    `json:"limit"`
}

// ClaimedJob is a leased document ready to print.
type ClaimedJob struct {
	ID           string `json:"id"`
	OrderID      string `json:"orderId"`
	BatchID      string `json:"batchId"`
	DocumentType string `json:"documentType"`
	PaperWidthMm int    `json:"paperWidthMm"`
	Content      string `json:"content"`
	Attempts     int    `json:"attempts"`
	MaxAttempts  int    `json:"maxAttempts"`
}

// ClaimResponse lists the leased jobs, possibly none.
type ClaimResponse struct {
	Jobs []ClaimedJob `json:"jobs"`
}

// AckRequest confirms a job was printed.
type AckRequest struct {
	BridgeID string `json:"bridgeId"`
}

// FailRequest reports a print failure.
type FailRequest struct {
	BridgeID string `json:"bridgeId"`
	Error    string `json:"error"`
}

// BatchSummary is the derived state of a batch.
type BatchSummary struct {
	Total     int    `json:"total" yaml:"total"`
	OK        int    `json:"ok" yaml:"ok"`
	Error     int    `json:"error" yaml:"error"`
	Pending   int    `json:"pending" yaml:"pending"`
	LastError string `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	Status    string `json:"status" yaml:"status"`
}

// JobResultResponse is returned by ack and fail.
// An ack of an already printed job only sets AlreadyOK.
type JobResultResponse struct {
	AlreadyOK bool          `json:"alreadyOk,omitempty"`
	OrderID   string        `json:"orderId,omitempty"`
	Status    string        `json:"status,omitempty"`
	Summary   *BatchSummary `json:"summary,omitempty"`
}

// JobView is a print job as shown to operators.
type JobView struct {
	ID            string     `json:"id" yaml:"id"`
	DocumentType  string     `json:"documentType" yaml:"documentType"`
	Status        string     `json:"status" yaml:"status"`
	Attempts      int        `json:"attempts" yaml:"attempts"`
	MaxAttempts   int        `json:"maxAttempts" yaml:"maxAttempts"`
	NextAttemptAt time.Time  `json:"nextAttemptAt" yaml:"nextAttemptAt"`
	LeaseOwner    *string    `json:"leaseOwner,omitempty" yaml:"leaseOwner,omitempty"`
	LeasedAt      *time.Time `json:"leasedAt,omitempty" yaml:"leasedAt,omitempty"`
	LastError     *string    `json:"lastError,omitempty" yaml:"lastError,omitempty"`
}

// OrderSummaryResponse is the print state of an order's latest batch.
type OrderSummaryResponse struct {
	OrderID string       `json:"orderId" yaml:"orderId"`
	BatchID string       `json:"batchId" yaml:"batchId"`
	Summary BatchSummary `json:"summary" yaml:"summary"`
	Jobs    []JobView    `json:"jobs" yaml:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
