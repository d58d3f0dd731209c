package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/infrastructure/persistence/models"
)

// ---------------------------------------------------------------------------
// Order profits
// ---------------------------------------------------------------------------

// GormProfitRepository implements profit.Repository using GORM
type GormProfitRepository struct {
	db *gorm.DB
}

// NewGormProfitRepository creates a new GormProfitRepository
func NewGormProfitRepository(db *gorm.DB) *GormProfitRepository {
	return &GormProfitRepository{db: db}
}

// FindByOrderID returns the profit row of an order
func (r *GormProfitRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*profit.OrderProfit, error) {
	var m models.OrderProfitModel
	if err := r.db.WithContext(ctx).
		First(&m, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, profit.ErrProfitNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Replace upserts the profit row for its order, overwriting every derived
// column. The conflict target is the unique order_id index.
func (r *GormProfitRepository) Replace(ctx context.Context, p *profit.OrderProfit) error {
	m := &models.OrderProfitModel{}
	m.FromDomain(p)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"revenue", "product_cost", "packaging_cost",
			"shipping_forward", "shipping_reverse", "marketing_cost",
			"payment_fee", "rto_loss", "lost_loss", "net_profit",
			"final_status", "status", "computed_at", "updated_at",
		}),
	}).Create(m).Error
}

// Ensure GormProfitRepository implements profit.Repository
var _ profit.Repository = (*GormProfitRepository)(nil)

// ---------------------------------------------------------------------------
// SKU costs
// ---------------------------------------------------------------------------

// GormSkuCostRepository implements profit.SkuCostRepository using GORM
type GormSkuCostRepository struct {
	db *gorm.DB
}

// NewGormSkuCostRepository creates a new GormSkuCostRepository
func NewGormSkuCostRepository(db *gorm.DB) *GormSkuCostRepository {
	return &GormSkuCostRepository{db: db}
}

// FindBySKU returns the cost row for one SKU
func (r *GormSkuCostRepository) FindBySKU(ctx context.Context, sku string) (*profit.SkuCost, error) {
	var m models.SkuCostModel
	if err := r.db.WithContext(ctx).
		First(&m, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, profit.ErrSkuCostNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindBySKUs returns cost rows for the given SKUs, keyed by SKU. Absent SKUs
// are simply missing from the map.
func (r *GormSkuCostRepository) FindBySKUs(ctx context.Context, skus []string) (map[string]profit.SkuCost, error) {
	out := make(map[string]profit.SkuCost, len(skus))
	if len(skus) == 0 {
		return out, nil
	}

	var rows []models.SkuCostModel
	if err := r.db.WithContext(ctx).
		Where("sku IN ?", skus).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for i := range rows {
		out[rows[i].SKU] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts or updates a cost row
func (r *GormSkuCostRepository) Save(ctx context.Context, c *profit.SkuCost) error {
	m := &models.SkuCostModel{}
	m.FromDomain(c)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_cost", "packaging_cost", "updated_at",
		}),
	}).Create(m).Error
}

// Ensure GormSkuCostRepository implements profit.SkuCostRepository
var _ profit.SkuCostRepository = (*GormSkuCostRepository)(nil)

// ---------------------------------------------------------------------------
// Daily ad spend
// ---------------------------------------------------------------------------

// GormAdSpendRepository implements profit.AdSpendRepository using GORM
type GormAdSpendRepository struct {
	db *gorm.DB
}

// NewGormAdSpendRepository creates a new GormAdSpendRepository
func NewGormAdSpendRepository(db *gorm.DB) *GormAdSpendRepository {
	return &GormAdSpendRepository{db: db}
}

// SumForDate returns total spend across platforms for a calendar day (UTC)
func (r *GormAdSpendRepository) SumForDate(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.AdSpendDailyModel{}).
		Select("SUM(spend)").
		Where("date >= ? AND date < ?", start, end).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// Upsert overwrites the (date, platform) row
func (r *GormAdSpendRepository) Upsert(ctx context.Context, s *profit.AdSpendDaily) error {
	m := &models.AdSpendDailyModel{}
	m.FromDomain(s)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"spend", "currency", "updated_at",
		}),
	}).Create(m).Error
}

// Ensure GormAdSpendRepository implements profit.AdSpendRepository
var _ profit.AdSpendRepository = (*GormAdSpendRepository)(nil)
