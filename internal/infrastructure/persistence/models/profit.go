package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/profit"
)

// OrderProfitModel is the persistence model for the derived profit ledger.
// One row per order, replaced wholesale on every recomputation.
type OrderProfitModel struct {
	BaseModel
	OrderID         uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uq_order_profits_order"`
	Revenue         decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	ProductCost     decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	PackagingCost   decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	ShippingForward decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	ShippingReverse decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	MarketingCost   decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	PaymentFee      decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	RTOLoss         decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	LostLoss        decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	NetProfit       decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	FinalStatus     string            `gorm:"type:varchar(20)"`
	Status          profit.CostStatus `gorm:"type:varchar(20);not null"`
	ComputedAt      time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderProfitModel) TableName() string {
	return "order_profits"
}

// ToDomain converts the persistence model to a domain OrderProfit
func (m *OrderProfitModel) ToDomain() *profit.OrderProfit {
	return &profit.OrderProfit{
		BaseEntity:      m.BaseModel.ToDomain(),
		OrderID:         m.OrderID,
		Revenue:         m.Revenue,
		ProductCost:     m.ProductCost,
		PackagingCost:   m.PackagingCost,
		ShippingForward: m.ShippingForward,
		ShippingReverse: m.ShippingReverse,
		MarketingCost:   m.MarketingCost,
		PaymentFee:      m.PaymentFee,
		RTOLoss:         m.RTOLoss,
		LostLoss:        m.LostLoss,
		NetProfit:       m.NetProfit,
		FinalStatus:     m.FinalStatus,
		Status:          m.Status,
		ComputedAt:      m.ComputedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderProfit
func (m *OrderProfitModel) FromDomain(p *profit.OrderProfit) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.OrderID = p.OrderID
	m.Revenue = p.Revenue
	m.ProductCost = p.ProductCost
	m.PackagingCost = p.PackagingCost
	m.ShippingForward = p.ShippingForward
	m.ShippingReverse = p.ShippingReverse
	m.MarketingCost = p.MarketingCost
	m.PaymentFee = p.PaymentFee
	m.RTOLoss = p.RTOLoss
	m.LostLoss = p.LostLoss
	m.NetProfit = p.NetProfit
	m.FinalStatus = p.FinalStatus
	m.Status = p.Status
	m.ComputedAt = p.ComputedAt
}

// SkuCostModel is the persistence model for the operator-maintained SKU cost
// table
type SkuCostModel struct {
	BaseModel
	SKU           string          `gorm:"type:varchar(100);not null;uniqueIndex:uq_sku_costs_sku"`
	ProductCost   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PackagingCost decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (SkuCostModel) TableName() string {
	return "sku_costs"
}

// ToDomain converts the persistence model to a domain SkuCost
func (m *SkuCostModel) ToDomain() *profit.SkuCost {
	return &profit.SkuCost{
		BaseEntity:    m.BaseModel.ToDomain(),
		SKU:           m.SKU,
		ProductCost:   m.ProductCost,
		PackagingCost: m.PackagingCost,
	}
}

// FromDomain populates the persistence model from a domain SkuCost
func (m *SkuCostModel) FromDomain(c *profit.SkuCost) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.SKU = c.SKU
	m.ProductCost = c.ProductCost
	m.PackagingCost = c.PackagingCost
}

// AdSpendDailyModel is the persistence model for daily marketing spend,
// unique per (date, platform) and overwritten on re-sync
type AdSpendDailyModel struct {
	BaseModel
	Date     time.Time       `gorm:"type:date;not null;uniqueIndex:uq_ad_spend_daily,priority:1"`
	Platform string          `gorm:"type:varchar(20);not null;uniqueIndex:uq_ad_spend_daily,priority:2"`
	Spend    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency string          `gorm:"type:varchar(3);not null"`
}

// TableName returns the table name for GORM
func (AdSpendDailyModel) TableName() string {
	return "ad_spend_daily"
}

// ToDomain converts the persistence model to a domain AdSpendDaily
func (m *AdSpendDailyModel) ToDomain() *profit.AdSpendDaily {
	return &profit.AdSpendDaily{
		BaseEntity: m.BaseModel.ToDomain(),
		Date:       m.Date,
		Platform:   m.Platform,
		Spend:      m.Spend,
		Currency:   m.Currency,
	}
}

// FromDomain populates the persistence model from a domain AdSpendDaily
func (m *AdSpendDailyModel) FromDomain(s *profit.AdSpendDaily) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.Date = s.Date
	m.Platform = s.Platform
	m.Spend = s.Spend
	m.Currency = s.Currency
}
