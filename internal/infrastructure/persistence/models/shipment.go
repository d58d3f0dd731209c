package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/shipment"
)

// ShipmentModel is the persistence model for shipments. TrackingRef is unique
// so a replayed fulfillment webhook refreshes the existing row instead of
// creating a sibling.
type ShipmentModel struct {
	BaseModel
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_shipments_order"`
	CourierName  string          `gorm:"type:varchar(50);not null;index:idx_shipments_courier"`
	TrackingRef  string          `gorm:"type:varchar(100);not null;uniqueIndex:uq_shipments_tracking_ref"`
	TrackingURL  string          `gorm:"type:varchar(500)"`
	Status       shipment.Status `gorm:"type:varchar(20);not null;index:idx_shipments_status"`
	ForwardCost  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ReverseCost  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ShippedAt    *time.Time
	LastSyncedAt *time.Time `gorm:"index:idx_shipments_last_synced"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the persistence model to a domain Shipment
func (m *ShipmentModel) ToDomain() *shipment.Shipment {
	return &shipment.Shipment{
		BaseEntity:   m.BaseModel.ToDomain(),
		OrderID:      m.OrderID,
		CourierName:  m.CourierName,
		TrackingRef:  m.TrackingRef,
		TrackingURL:  m.TrackingURL,
		Status:       m.Status,
		ForwardCost:  m.ForwardCost,
		ReverseCost:  m.ReverseCost,
		ShippedAt:    m.ShippedAt,
		LastSyncedAt: m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Shipment
func (m *ShipmentModel) FromDomain(s *shipment.Shipment) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.OrderID = s.OrderID
	m.CourierName = s.CourierName
	m.TrackingRef = s.TrackingRef
	m.TrackingURL = s.TrackingURL
	m.Status = s.Status
	m.ForwardCost = s.ForwardCost
	m.ReverseCost = s.ReverseCost
	m.ShippedAt = s.ShippedAt
	m.LastSyncedAt = s.LastSyncedAt
}

// ShipmentModelFromDomain creates a new persistence model from a domain Shipment
func ShipmentModelFromDomain(s *shipment.Shipment) *ShipmentModel {
	m := &ShipmentModel{}
	m.FromDomain(s)
	return m
}
