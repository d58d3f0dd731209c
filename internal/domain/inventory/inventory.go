package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/channelpilot/backend/internal/domain/shared"
)

var (
	ErrVariantNotFound   = errors.New("inventory: variant not found")
	ErrStockNotFound     = errors.New("inventory: stock row not found")
	ErrInsufficientStock = errors.New("inventory: insufficient available stock")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be positive")
)

// Variant maps a channel SKU to a locally managed product variant. Orders
// whose SKUs have no variant are imported on hold rather than rejected.
type Variant struct {
	shared.BaseEntity
	UserID uuid.UUID
	SKU    string
	Title  string
}

// Stock is the on-hand position of one variant at one warehouse. Reserved
// units stay counted in OnHand until the parcel actually ships.
type Stock struct {
	shared.BaseEntity
	WarehouseID uuid.UUID
	VariantID   uuid.UUID
	OnHand      int
	Reserved    int
}

// Available returns units not yet claimed by open orders
func (s *Stock) Available() int {
	return s.OnHand - s.Reserved
}

// Reserve claims qty units for an incoming order
func (s *Stock) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.Available() < qty {
		return ErrInsufficientStock
	}
	s.Reserved += qty
	s.Touch()
	return nil
}

// Release returns qty reserved units to the available pool, clamped so a
// replayed cancellation can never drive the reservation negative
func (s *Stock) Release(qty int) {
	if qty <= 0 {
		return
	}
	s.Reserved -= qty
	if s.Reserved < 0 {
		s.Reserved = 0
	}
	s.Touch()
}

// MovementType classifies an inventory movement row
type MovementType string

const (
	MovementReserve MovementType = "RESERVE"
	MovementRelease MovementType = "RELEASE"
	MovementDeduct  MovementType = "DEDUCT"
	MovementAdjust  MovementType = "ADJUST"
)

// IsValid returns true if the movement type is known
func (t MovementType) IsValid() bool {
	switch t {
	case MovementReserve, MovementRelease, MovementDeduct, MovementAdjust:
		return true
	default:
		return false
	}
}

// Movement is one append-only audit row for a stock change. SourceType and
// SourceID point back at the order or adjustment that caused it.
type Movement struct {
	ID          uuid.UUID
	StockID     uuid.UUID
	Type        MovementType
	Qty         int
	SourceType  string
	SourceID    string
	OccurredAt  time.Time
}

// NewMovement builds an audit row for a stock change
func NewMovement(stockID uuid.UUID, typ MovementType, qty int, sourceType, sourceID string) Movement {
	return Movement{
		ID:         uuid.New(),
		StockID:    stockID,
		Type:       typ,
		Qty:        qty,
		SourceType: sourceType,
		SourceID:   sourceID,
		OccurredAt: time.Now(),
	}
}

// Repository is the persistence boundary for variants, stock and movements
type Repository interface {
	// FindVariantsBySKUs returns the variants a user has for the given
	// SKUs, keyed by SKU. Missing SKUs are simply absent from the map.
	FindVariantsBySKUs(ctx context.Context, userID uuid.UUID, skus []string) (map[string]*Variant, error)

	// FindStock returns the stock row for a variant at the user's default
	// warehouse, or ErrStockNotFound
	FindStock(ctx context.Context, userID, variantID uuid.UUID) (*Stock, error)

	// SaveStock persists a stock row and appends the movement in the same
	// transaction
	SaveStock(ctx context.Context, stock *Stock, movement Movement) error
}
