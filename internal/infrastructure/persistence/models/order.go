package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/order"
)

// OrderModel is the persistence model for the Order aggregate. The unique
// index on (channel_account_id, external_order_id) is the natural key every
// import path upserts on.
type OrderModel struct {
	BaseModel
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index:idx_orders_user"`
	ChannelAccountID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uq_orders_natural_key,priority:1"`
	ExternalOrderID  string            `gorm:"type:varchar(100);not null;uniqueIndex:uq_orders_natural_key,priority:2"`
	CustomerName     string            `gorm:"type:varchar(255)"`
	CustomerEmail    string            `gorm:"type:varchar(255)"`
	ShippingAddress  string            `gorm:"type:text"`
	PaymentMode      order.PaymentMode `gorm:"type:varchar(20);not null"`
	OrderTotal       decimal.Decimal   `gorm:"type:decimal(12,2);not null"`
	Status           order.Status      `gorm:"type:varchar(20);not null;index:idx_orders_status"`
	CreatedAtSource  time.Time         `gorm:"not null;index:idx_orders_created_at_source"`
	PayloadDigest    string            `gorm:"type:varchar(64)"`
	Items            []OrderItemModel  `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for order line items. Items are
// deleted and re-inserted wholesale whenever their order is re-imported.
type OrderItemModel struct {
	ID                uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrderID           uuid.UUID               `gorm:"type:uuid;not null;index:idx_order_items_order"`
	VariantID         *uuid.UUID              `gorm:"type:uuid;index:idx_order_items_variant"`
	SKU               string                  `gorm:"type:varchar(100);not null"`
	Title             string                  `gorm:"type:varchar(255)"`
	Qty               int                     `gorm:"not null"`
	Price             decimal.Decimal         `gorm:"type:decimal(12,2);not null"`
	FulfillmentStatus order.FulfillmentStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseEntity:       m.BaseModel.ToDomain(),
		UserID:           m.UserID,
		ChannelAccountID: m.ChannelAccountID,
		ExternalOrderID:  m.ExternalOrderID,
		CustomerName:     m.CustomerName,
		CustomerEmail:    m.CustomerEmail,
		ShippingAddress:  m.ShippingAddress,
		PaymentMode:      m.PaymentMode,
		OrderTotal:       m.OrderTotal,
		Status:           m.Status,
		CreatedAtSource:  m.CreatedAtSource,
		PayloadDigest:    m.PayloadDigest,
		Items:            make([]order.Item, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, order.Item{
			ID:                it.ID,
			OrderID:           it.OrderID,
			VariantID:         it.VariantID,
			SKU:               it.SKU,
			Title:             it.Title,
			Qty:               it.Qty,
			Price:             it.Price,
			FulfillmentStatus: it.FulfillmentStatus,
		})
	}
	return o
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainBaseEntity(o.BaseEntity)
	m.UserID = o.UserID
	m.ChannelAccountID = o.ChannelAccountID
	m.ExternalOrderID = o.ExternalOrderID
	m.CustomerName = o.CustomerName
	m.CustomerEmail = o.CustomerEmail
	m.ShippingAddress = o.ShippingAddress
	m.PaymentMode = o.PaymentMode
	m.OrderTotal = o.OrderTotal
	m.Status = o.Status
	m.CreatedAtSource = o.CreatedAtSource
	m.PayloadDigest = o.PayloadDigest

	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			ID:                it.ID,
			OrderID:           o.ID,
			VariantID:         it.VariantID,
			SKU:               it.SKU,
			Title:             it.Title,
			Qty:               it.Qty,
			Price:             it.Price,
			FulfillmentStatus: it.FulfillmentStatus,
		})
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}
