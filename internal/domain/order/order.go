package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrOrderNotFound        = errors.New("order: order not found")
	ErrMissingExternalID    = errors.New("order: external order id is required")
	ErrMissingAccountID     = errors.New("order: channel account id is required")
	ErrDuplicateNaturalKey  = errors.New("order: duplicate natural key")
	ErrInvalidOrderStatus   = errors.New("order: invalid order status")
	ErrInvalidPaymentMode   = errors.New("order: invalid payment mode")
	ErrItemQuantityInvalid  = errors.New("order: item quantity must be positive")
	ErrOrderAlreadyCancelled = errors.New("order: order already cancelled")
)

// ---------------------------------------------------------------------------
// Status enums
// ---------------------------------------------------------------------------

// Status represents the lifecycle status of an order
type Status string

const (
	StatusNew       Status = "NEW"
	StatusConfirmed Status = "CONFIRMED"
	StatusPacked    Status = "PACKED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusReturned  Status = "RETURNED"
	// StatusHold marks orders that cannot be fulfilled yet (unmapped SKU or
	// insufficient stock at import time)
	StatusHold Status = "HOLD"
)

// IsValid returns true if the status is a known order status
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusConfirmed, StatusPacked, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned, StatusHold:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsCancelled returns true if the order was cancelled
func (s Status) IsCancelled() bool {
	return s == StatusCancelled
}

// PaymentMode represents how the buyer pays for an order
type PaymentMode string

const (
	PaymentModePrepaid PaymentMode = "PREPAID"
	PaymentModeCOD     PaymentMode = "COD"
)

// IsValid returns true if the payment mode is known
func (m PaymentMode) IsValid() bool {
	return m == PaymentModePrepaid || m == PaymentModeCOD
}

// FulfillmentStatus tracks whether a line item's SKU resolved to a local variant
type FulfillmentStatus string

const (
	FulfillmentPending     FulfillmentStatus = "PENDING"
	FulfillmentMapped      FulfillmentStatus = "MAPPED"
	FulfillmentUnmappedSKU FulfillmentStatus = "UNMAPPED_SKU"
)

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Order is an imported channel order. The natural key is
// (ExternalOrderID, ChannelAccountID) - providers resend orders, so every
// persistence path upserts on that pair, never on the internal primary key.
type Order struct {
	shared.BaseEntity
	UserID           uuid.UUID
	ChannelAccountID uuid.UUID
	ExternalOrderID  string
	CustomerName     string
	CustomerEmail    string
	ShippingAddress  string
	PaymentMode      PaymentMode
	OrderTotal       decimal.Decimal
	Status           Status
	Items            []Item
	// CreatedAtSource is the order's creation time on the channel
	CreatedAtSource time.Time
	// PayloadDigest is a digest of the raw provider payload the order was
	// last built from, kept for audit and change detection
	PayloadDigest string
}

// Item is a line item of an order. Items are replaced wholesale on every
// re-import so they can never silently duplicate across syncs.
type Item struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	VariantID         *uuid.UUID
	SKU               string
	Title             string
	Qty               int
	Price             decimal.Decimal
	FulfillmentStatus FulfillmentStatus
}

// Validate checks order invariants before persistence
func (o *Order) Validate() error {
	if o.ExternalOrderID == "" {
		return ErrMissingExternalID
	}
	if o.ChannelAccountID == uuid.Nil {
		return ErrMissingAccountID
	}
	if !o.Status.IsValid() {
		return ErrInvalidOrderStatus
	}
	if !o.PaymentMode.IsValid() {
		return ErrInvalidPaymentMode
	}
	for _, it := range o.Items {
		if it.Qty <= 0 {
			return ErrItemQuantityInvalid
		}
	}
	return nil
}

// Cancel marks the order cancelled. Cancelling a cancelled order is a no-op
// error so webhook replays stay idempotent at the caller.
func (o *Order) Cancel() error {
	if o.Status == StatusCancelled {
		return ErrOrderAlreadyCancelled
	}
	o.Status = StatusCancelled
	o.Touch()
	return nil
}

// ApplyUpdate replaces the order's mutable fields from a newer projection of
// the same external order. Identity fields are never touched.
func (o *Order) ApplyUpdate(status Status, total decimal.Decimal, customerName, customerEmail string, items []Item) {
	if status.IsValid() {
		o.Status = status
	}
	o.OrderTotal = total
	if customerName != "" {
		o.CustomerName = customerName
	}
	if customerEmail != "" {
		o.CustomerEmail = customerEmail
	}
	o.Items = items
	o.Touch()
}
