package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/application/sync"
	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shared"
	"github.com/channelpilot/backend/internal/domain/shipment"
)

// Topic names as the commerce providers send them
const (
	TopicOrderCreate       = "orders/create"
	TopicOrderUpdated      = "orders/updated"
	TopicOrderCancelled    = "orders/cancelled"
	TopicFulfillmentCreate = "fulfillments/create"
	TopicRefundCreate      = "refunds/create"
)

// Fulfillment is the provider-agnostic projection of a fulfillment webhook
type Fulfillment struct {
	ExternalOrderID string
	CourierName     string
	TrackingRef     string
	TrackingURL     string
	ShippedAt       time.Time
}

// PayloadParser maps one provider's webhook bodies into normalized
// projections. Implemented per provider next to its import adapter.
type PayloadParser interface {
	// ParseOrder maps a full order payload
	ParseOrder(body []byte) (integration.NormalizedOrder, error)

	// ParseOrderRef extracts just the external order id
	ParseOrderRef(body []byte) (string, error)

	// ParseFulfillment maps a fulfillment payload
	ParseFulfillment(body []byte) (Fulfillment, error)
}

// OrderWriter is the slice of the order persister the handlers use
type OrderWriter interface {
	Persist(ctx context.Context, account *channel.Account, n integration.NormalizedOrder) (sync.PersistResult, error)
	Cancel(ctx context.Context, account *channel.Account, externalOrderID string) (*order.Order, error)
}

// ProfitRecomputer refreshes the derived profit row for an order
type ProfitRecomputer interface {
	Recompute(ctx context.Context, userID, orderID uuid.UUID) (*profit.OrderProfit, error)
}

// OrderHandlers wires order and fulfillment topics for one provider into the
// shared persist path.
type OrderHandlers struct {
	parser    PayloadParser
	writer    OrderWriter
	orders    order.Repository
	shipments shipment.Repository
	profits   ProfitRecomputer
	logger    *zap.Logger
}

// NewOrderHandlers creates the topic handlers for one provider
func NewOrderHandlers(
	parser PayloadParser,
	writer OrderWriter,
	orders order.Repository,
	shipments shipment.Repository,
	profits ProfitRecomputer,
	logger *zap.Logger,
) *OrderHandlers {
	return &OrderHandlers{
		parser:    parser,
		writer:    writer,
		orders:    orders,
		shipments: shipments,
		profits:   profits,
		logger:    logger,
	}
}

// RegisterAll binds every topic this handler set covers
func (h *OrderHandlers) RegisterAll(p *Pipeline) {
	p.Register(TopicOrderCreate, h.UpsertOrder)
	p.Register(TopicOrderUpdated, h.UpsertOrder)
	p.Register(TopicOrderCancelled, h.CancelOrder)
	p.Register(TopicFulfillmentCreate, h.CreateShipment)
	p.Register(TopicRefundCreate, h.RecomputeProfit)
}

// UpsertOrder handles orders/create and orders/updated. Both run the same
// idempotent upsert; which one fired first does not matter.
func (h *OrderHandlers) UpsertOrder(ctx context.Context, account *channel.Account, body []byte) error {
	n, err := h.parser.ParseOrder(body)
	if err != nil {
		return fmt.Errorf("parse order payload: %w", err)
	}
	_, err = h.writer.Persist(ctx, account, n)
	return err
}

// CancelOrder handles orders/cancelled. A cancel for an order that never
// imported is dropped; the next full sync picks the order up already
// cancelled on the provider side.
func (h *OrderHandlers) CancelOrder(ctx context.Context, account *channel.Account, body []byte) error {
	ref, err := h.parser.ParseOrderRef(body)
	if err != nil {
		return fmt.Errorf("parse cancel payload: %w", err)
	}
	if _, err := h.writer.Cancel(ctx, account, ref); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			h.logger.Debug("cancel webhook for unknown order",
				zap.String("external_order_id", ref))
			return nil
		}
		return err
	}
	return nil
}

// CreateShipment handles fulfillments/create: attach a shipment to the
// imported order, or refresh the existing one for the same tracking ref.
func (h *OrderHandlers) CreateShipment(ctx context.Context, account *channel.Account, body []byte) error {
	f, err := h.parser.ParseFulfillment(body)
	if err != nil {
		return fmt.Errorf("parse fulfillment payload: %w", err)
	}

	o, err := h.orders.FindByNaturalKey(ctx, account.ID, f.ExternalOrderID)
	if err != nil {
		return err
	}

	sh, err := h.shipments.FindByTrackingRef(ctx, f.TrackingRef)
	switch {
	case err == nil:
		// same tracking ref resent, refresh metadata only
		sh.CourierName = f.CourierName
		sh.TrackingURL = f.TrackingURL
		sh.Touch()
	case errors.Is(err, shipment.ErrShipmentNotFound):
		shippedAt := f.ShippedAt
		if shippedAt.IsZero() {
			shippedAt = time.Now()
		}
		sh = &shipment.Shipment{
			BaseEntity:  shared.NewBaseEntity(),
			OrderID:     o.ID,
			CourierName: f.CourierName,
			TrackingRef: f.TrackingRef,
			TrackingURL: f.TrackingURL,
			Status:      shipment.StatusShipped,
			ShippedAt:   &shippedAt,
		}
		if err := sh.Validate(); err != nil {
			return err
		}
	default:
		return err
	}

	if err := h.shipments.Save(ctx, sh); err != nil {
		return err
	}
	if _, err := h.profits.Recompute(ctx, account.UserID, o.ID); err != nil {
		h.logger.Warn("profit recompute after fulfillment failed",
			zap.String("order_id", o.ID.String()), zap.Error(err))
	}
	return nil
}

// RecomputeProfit handles refunds/create. Refund payloads change money facts
// only; the profit row is rebuilt from current state.
func (h *OrderHandlers) RecomputeProfit(ctx context.Context, account *channel.Account, body []byte) error {
	ref, err := h.parser.ParseOrderRef(body)
	if err != nil {
		return fmt.Errorf("parse refund payload: %w", err)
	}
	o, err := h.orders.FindByNaturalKey(ctx, account.ID, ref)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil
		}
		return err
	}
	_, err = h.profits.Recompute(ctx, account.UserID, o.ID)
	return err
}
