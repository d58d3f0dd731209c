package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/channelpilot/backend/internal/domain/inventory"
)

// VariantModel is the persistence model for SKU-to-variant mappings
type VariantModel struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_variants_user_sku,priority:1"`
	SKU    string    `gorm:"type:varchar(100);not null;uniqueIndex:uq_variants_user_sku,priority:2"`
	Title  string    `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "variants"
}

// ToDomain converts the persistence model to a domain Variant
func (m *VariantModel) ToDomain() *inventory.Variant {
	return &inventory.Variant{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		SKU:        m.SKU,
		Title:      m.Title,
	}
}

// FromDomain populates the persistence model from a domain Variant
func (m *VariantModel) FromDomain(v *inventory.Variant) {
	m.FromDomainBaseEntity(v.BaseEntity)
	m.UserID = v.UserID
	m.SKU = v.SKU
	m.Title = v.Title
}

// StockModel is the persistence model for per-variant stock positions
type StockModel struct {
	BaseModel
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_stocks_warehouse_variant,priority:1"`
	VariantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_stocks_warehouse_variant,priority:2"`
	OnHand      int       `gorm:"not null;default:0"`
	Reserved    int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (StockModel) TableName() string {
	return "stocks"
}

// ToDomain converts the persistence model to a domain Stock
func (m *StockModel) ToDomain() *inventory.Stock {
	return &inventory.Stock{
		BaseEntity:  m.BaseModel.ToDomain(),
		WarehouseID: m.WarehouseID,
		VariantID:   m.VariantID,
		OnHand:      m.OnHand,
		Reserved:    m.Reserved,
	}
}

// FromDomain populates the persistence model from a domain Stock
func (m *StockModel) FromDomain(s *inventory.Stock) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.WarehouseID = s.WarehouseID
	m.VariantID = s.VariantID
	m.OnHand = s.OnHand
	m.Reserved = s.Reserved
}

// InventoryMovementModel is the append-only audit row for stock changes
type InventoryMovementModel struct {
	ID         uuid.UUID              `gorm:"type:uuid;primary_key"`
	StockID    uuid.UUID              `gorm:"type:uuid;not null;index:idx_inventory_movements_stock"`
	Type       inventory.MovementType `gorm:"type:varchar(10);not null"`
	Qty        int                    `gorm:"not null"`
	SourceType string                 `gorm:"type:varchar(30)"`
	SourceID   string                 `gorm:"type:varchar(100)"`
	OccurredAt time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryMovementModel) TableName() string {
	return "inventory_movements"
}

// FromDomain populates the persistence model from a domain Movement
func (m *InventoryMovementModel) FromDomain(mv inventory.Movement) {
	m.ID = mv.ID
	m.StockID = mv.StockID
	m.Type = mv.Type
	m.Qty = mv.Qty
	m.SourceType = mv.SourceType
	m.SourceID = mv.SourceID
	m.OccurredAt = mv.OccurredAt
}
