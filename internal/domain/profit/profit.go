package profit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/shared"
)

var (
	ErrProfitNotFound  = errors.New("profit: profit row not found")
	ErrSkuCostNotFound = errors.New("profit: sku cost not found")
)

// CostStatus flags the completeness of the cost data behind a profit row.
// Missing SKU costs never fail a computation; they surface here so operators
// can backfill.
type CostStatus string

const (
	CostComplete CostStatus = "computed"
	// CostPartial means some SKUs had cost rows and some did not
	CostPartial CostStatus = "partial"
	// CostMissing means no SKU on the order had a cost row
	CostMissing CostStatus = "missing_costs"
)

// OrderProfit is the derived financial ledger row for one order. It is always
// recomputed wholesale and replaced, never incrementally patched, so a stale
// field can never drift out of sync with its inputs.
type OrderProfit struct {
	shared.BaseEntity
	OrderID         uuid.UUID
	Revenue         decimal.Decimal
	ProductCost     decimal.Decimal
	PackagingCost   decimal.Decimal
	ShippingForward decimal.Decimal
	ShippingReverse decimal.Decimal
	MarketingCost   decimal.Decimal
	PaymentFee      decimal.Decimal
	RTOLoss         decimal.Decimal
	LostLoss        decimal.Decimal
	NetProfit       decimal.Decimal
	// FinalStatus is the order/shipment status the policy was evaluated at
	FinalStatus string
	Status      CostStatus
	ComputedAt  time.Time
}

// SkuCost is the operator-maintained unit cost table per SKU
type SkuCost struct {
	shared.BaseEntity
	SKU           string
	ProductCost   decimal.Decimal
	PackagingCost decimal.Decimal
}

// AdSpendDaily is one day of marketing spend on one platform, unique per
// (date, platform) and overwritten on re-sync
type AdSpendDaily struct {
	shared.BaseEntity
	Date     time.Time
	Platform string
	Spend    decimal.Decimal
	Currency string
}

// Repository persists derived profit rows
type Repository interface {
	// FindByOrderID returns the profit row of an order
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*OrderProfit, error)

	// Replace upserts the profit row for its order, overwriting every column
	Replace(ctx context.Context, p *OrderProfit) error
}

// SkuCostRepository reads the SKU cost table
type SkuCostRepository interface {
	// FindBySKU returns the cost row for one SKU
	FindBySKU(ctx context.Context, sku string) (*SkuCost, error)

	// FindBySKUs returns cost rows for the given SKUs, keyed by SKU.
	// Absent SKUs are simply missing from the map.
	FindBySKUs(ctx context.Context, skus []string) (map[string]SkuCost, error)

	// Save inserts or updates a cost row
	Save(ctx context.Context, c *SkuCost) error
}

// AdSpendRepository persists daily ad spend figures
type AdSpendRepository interface {
	// SumForDate returns total spend across platforms for a calendar day
	SumForDate(ctx context.Context, day time.Time) (decimal.Decimal, error)

	// Upsert overwrites the (date, platform) row
	Upsert(ctx context.Context, s *AdSpendDaily) error
}
