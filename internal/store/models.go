// Package store contains the database layer for the comanda print dispatcher.
package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant represents a restaurant in the multi-tenant system.
// All operations must be scoped by TenantID.
type Tenant struct {
	ID             uuid.UUID
	Name           string
	Slug           string
	RateLimit      float64 // requests per second, 0 means unlimited
	RateLimitBurst int
	CreatedAt      time.Time
}

// DocumentType selects which copy of a comanda is rendered.
type DocumentType string

const (
	DocumentKitchen  DocumentType = "KITCHEN"
	DocumentCashier  DocumentType = "CASHIER"
	DocumentCustomer DocumentType = "CUSTOMER"
)

// DocumentTypes lists the documents produced by one enqueue, in print order.
var DocumentTypes = []DocumentType{DocumentKitchen, DocumentCashier, DocumentCustomer}

// ParseDocumentType returns the document type named by s (case-insensitive).
func ParseDocumentType(s string) (DocumentType, bool) {
	for _, dt := range DocumentTypes {
		if strings.EqualFold(string(dt), s) {
			return dt, true
		}
	}
	return "", false
}

// Paper widths accepted by the bridges.
const (
	PaperWidth58 = 58
	PaperWidth80 = 80
)

// NormalizePaperWidth maps any width other than 58mm to 80mm.
func NormalizePaperWidth(mm int) int {
	if mm == PaperWidth58 {
		return PaperWidth58
	}
	return PaperWidth80
}

// PrintJob is one printable document instance.
// Content is frozen at creation; reprinting means enqueuing a new batch.
type PrintJob struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	OrderID       uuid.UUID
	BatchID       uuid.UUID
	DocumentType  DocumentType
	Content       string
	PaperWidthMm  int
	Status        JobStatus
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	LeaseOwner    *string
	LeasedAt      *time.Time
	LastError     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Exhausted reports whether the job has used all of its attempts.
func (j *PrintJob) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// LeasedBy reports whether bridgeID currently holds the lease.
func (j *PrintJob) LeasedBy(bridgeID string) bool {
	return j.Status == JobStatusLeased && j.LeaseOwner != nil && *j.LeaseOwner == bridgeID
}

// OrderChannel is how the order reached the restaurant.
type OrderChannel string

const (
	ChannelTable    OrderChannel = "TABLE"
	ChannelDelivery OrderChannel = "DELIVERY"
	ChannelCounter  OrderChannel = "COUNTER"
)

// Order is the read-only snapshot of an order used to render comandas.
// It is owned by the POS order aggregate; this service never writes it
// except for the Printed flag.
type Order struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Number           int
	Channel          OrderChannel
	TableLabel       string
	CustomerName     string
	CustomerPhone    string
	DeliveryAddress  string
	Notes            string
	DiscountCents    int64
	DeliveryFeeCents int64
	Printed          bool
	Items            []OrderItem
	CreatedAt        time.Time
}

// OrderItem is a line of an order. Prices are in cents.
type OrderItem struct {
	Name           string
	Quantity       int
	UnitPriceCents int64
	Notes          string
}

// TotalCents returns quantity times unit price.
func (i OrderItem) TotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// SubtotalCents sums the item totals.
func (o *Order) SubtotalCents() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.TotalCents()
	}
	return sum
}

// TotalCents is subtotal minus discount plus delivery fee.
func (o *Order) TotalCents() int64 {
	return o.SubtotalCents() - o.DiscountCents + o.DeliveryFeeCents
}
