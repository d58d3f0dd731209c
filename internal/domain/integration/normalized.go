package integration

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/shipment"
)

// ---------------------------------------------------------------------------
// Normalized projections
// ---------------------------------------------------------------------------

// NormalizedOrder is the canonical order shape every provider maps into.
// Adapters own the wire-format details; downstream code never inspects a raw
// provider payload beyond this projection.
type NormalizedOrder struct {
	// ExternalOrderID is the order's id on the channel, half of the natural key
	ExternalOrderID string
	Channel         ChannelType
	Status          order.Status
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	PaymentMode     order.PaymentMode
	OrderTotal      decimal.Decimal
	Items           []NormalizedItem
	CreatedAtSource time.Time
	// PayloadDigest is a sha256 hex digest of the raw provider payload
	PayloadDigest string
}

// NormalizedItem is a canonical line item
type NormalizedItem struct {
	SKU      string
	Title    string
	Quantity int
	Price    decimal.Decimal
}

// Validate checks the projection is complete enough to persist
func (n *NormalizedOrder) Validate() error {
	if strings.TrimSpace(n.ExternalOrderID) == "" {
		return ErrProviderInvalidResponse
	}
	if !n.Channel.IsValid() {
		return ErrInvalidChannelType
	}
	if !n.Status.IsValid() {
		return ErrMappingUnknown
	}
	return nil
}

// TrackingUpdate is one courier status observation for a tracking reference.
// Status carries the mapped internal value; RawStatus keeps the provider
// string for logging only and is never persisted as status.
type TrackingUpdate struct {
	TrackingRef string
	Status      shipment.Status
	RawStatus   string
	// Err is set when the courier reported a per-waybill failure; the
	// shipment is left untouched and retried next tick.
	Err error
}

// AdSpend is one day of marketing spend on one platform
type AdSpend struct {
	Platform AdPlatform
	Date     time.Time
	Spend    decimal.Decimal
	Currency string
}

// Digest computes the sha256 hex digest used both for order payload audit
// and webhook deduplication. All parts participate in the hash.
func Digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
