package sync

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/domain/inventory"
	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shared"
)

// ProfitRecomputer is the slice of the profit service the persister needs
type ProfitRecomputer interface {
	Recompute(ctx context.Context, userID, orderID uuid.UUID) (*profit.OrderProfit, error)
}

// PersistResult reports what a persist call did
type PersistResult struct {
	Order   *order.Order
	Created bool
}

// OrderPersister is the single write path for imported orders. Both the sync
// engine and the webhook pipeline go through it, so upsert-by-natural-key,
// stock reservation and profit recompute behave identically regardless of how
// an order arrived.
type OrderPersister struct {
	orderRepo     order.Repository
	inventoryRepo inventory.Repository
	profits       ProfitRecomputer
	logger        *zap.Logger
}

// NewOrderPersister creates the shared order write path
func NewOrderPersister(
	orderRepo order.Repository,
	inventoryRepo inventory.Repository,
	profits ProfitRecomputer,
	logger *zap.Logger,
) *OrderPersister {
	return &OrderPersister{
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		profits:       profits,
		logger:        logger,
	}
}

// Persist upserts one normalized order for an account. The natural key is
// (ExternalOrderID, ChannelAccountID): an existing row gets its mutable
// fields and items replaced, a new row is inserted with stock reserved for
// every mapped item. Replays of the same payload converge on the same state.
func (p *OrderPersister) Persist(ctx context.Context, account *channel.Account, n integration.NormalizedOrder) (PersistResult, error) {
	if err := n.Validate(); err != nil {
		return PersistResult{}, err
	}

	items, unmapped, err := p.resolveItems(ctx, account.UserID, n.Items)
	if err != nil {
		return PersistResult{}, err
	}

	existing, err := p.orderRepo.FindByNaturalKey(ctx, account.ID, n.ExternalOrderID)
	switch {
	case err == nil:
		return p.update(ctx, account, existing, n, items)
	case errors.Is(err, order.ErrOrderNotFound):
		return p.insert(ctx, account, n, items, unmapped)
	default:
		return PersistResult{}, err
	}
}

// insert creates the order, reserving stock per mapped item. Reservation
// shortfalls put the order on hold instead of rejecting it; the order is a
// fact from the channel either way.
func (p *OrderPersister) insert(ctx context.Context, account *channel.Account, n integration.NormalizedOrder, items []order.Item, unmapped bool) (PersistResult, error) {
	status := n.Status
	hold := unmapped

	o := &order.Order{
		BaseEntity:       shared.NewBaseEntity(),
		UserID:           account.UserID,
		ChannelAccountID: account.ID,
		ExternalOrderID:  n.ExternalOrderID,
		CustomerName:     n.CustomerName,
		CustomerEmail:    n.CustomerEmail,
		ShippingAddress:  n.ShippingAddress,
		PaymentMode:      n.PaymentMode,
		OrderTotal:       n.OrderTotal,
		Status:           status,
		CreatedAtSource:  n.CreatedAtSource,
		PayloadDigest:    n.PayloadDigest,
	}

	for i := range items {
		items[i].OrderID = o.ID
		if items[i].FulfillmentStatus != order.FulfillmentMapped {
			continue
		}
		if err := p.reserve(ctx, account.UserID, o, &items[i]); err != nil {
			if !errors.Is(err, inventory.ErrInsufficientStock) && !errors.Is(err, inventory.ErrStockNotFound) {
				return PersistResult{}, err
			}
			hold = true
			items[i].FulfillmentStatus = order.FulfillmentPending
			p.logger.Warn("stock reservation failed, importing on hold",
				zap.String("external_order_id", n.ExternalOrderID),
				zap.String("sku", items[i].SKU),
				zap.Error(err))
		}
	}
	o.Items = items

	if hold && !o.Status.IsCancelled() {
		o.Status = order.StatusHold
	}
	if err := o.Validate(); err != nil {
		return PersistResult{}, err
	}
	if err := p.orderRepo.Save(ctx, o); err != nil {
		return PersistResult{}, err
	}

	p.recompute(ctx, account.UserID, o.ID)
	return PersistResult{Order: o, Created: true}, nil
}

// update replaces mutable fields and items on an already imported order
func (p *OrderPersister) update(ctx context.Context, account *channel.Account, existing *order.Order, n integration.NormalizedOrder, items []order.Item) (PersistResult, error) {
	for i := range items {
		items[i].OrderID = existing.ID
	}
	existing.ApplyUpdate(n.Status, n.OrderTotal, n.CustomerName, n.CustomerEmail, items)
	if n.PayloadDigest != "" {
		existing.PayloadDigest = n.PayloadDigest
	}
	if err := existing.Validate(); err != nil {
		return PersistResult{}, err
	}
	if err := p.orderRepo.Save(ctx, existing); err != nil {
		return PersistResult{}, err
	}

	p.recompute(ctx, account.UserID, existing.ID)
	return PersistResult{Order: existing, Created: false}, nil
}

// Cancel marks an imported order cancelled by natural key and recomputes its
// profit. Asking again for an already cancelled order succeeds with no
// effect, keeping webhook replays harmless.
func (p *OrderPersister) Cancel(ctx context.Context, account *channel.Account, externalOrderID string) (*order.Order, error) {
	o, err := p.orderRepo.FindByNaturalKey(ctx, account.ID, externalOrderID)
	if err != nil {
		return nil, err
	}
	if err := o.Cancel(); err != nil {
		if errors.Is(err, order.ErrOrderAlreadyCancelled) {
			return o, nil
		}
		return nil, err
	}
	p.releaseReservations(ctx, account.UserID, o)
	if err := p.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}
	p.recompute(ctx, account.UserID, o.ID)
	return o, nil
}

// resolveItems maps channel SKUs onto local variants and builds the item
// rows. It reports whether any SKU stayed unmapped.
func (p *OrderPersister) resolveItems(ctx context.Context, userID uuid.UUID, in []integration.NormalizedItem) ([]order.Item, bool, error) {
	skus := make([]string, 0, len(in))
	for _, it := range in {
		if sku := strings.TrimSpace(it.SKU); sku != "" {
			skus = append(skus, sku)
		}
	}
	variants, err := p.inventoryRepo.FindVariantsBySKUs(ctx, userID, skus)
	if err != nil {
		return nil, false, err
	}

	items := make([]order.Item, 0, len(in))
	unmapped := false
	for _, it := range in {
		item := order.Item{
			ID:                uuid.New(),
			SKU:               strings.TrimSpace(it.SKU),
			Title:             it.Title,
			Qty:               it.Quantity,
			Price:             it.Price,
			FulfillmentStatus: order.FulfillmentUnmappedSKU,
		}
		if v, ok := variants[item.SKU]; ok {
			id := v.ID
			item.VariantID = &id
			item.FulfillmentStatus = order.FulfillmentMapped
		} else {
			unmapped = true
		}
		items = append(items, item)
	}
	return items, unmapped, nil
}

// reserve claims stock for one mapped item and writes the audit movement
func (p *OrderPersister) reserve(ctx context.Context, userID uuid.UUID, o *order.Order, item *order.Item) error {
	stock, err := p.inventoryRepo.FindStock(ctx, userID, *item.VariantID)
	if err != nil {
		return err
	}
	if err := stock.Reserve(item.Qty); err != nil {
		return err
	}
	movement := inventory.NewMovement(stock.ID, inventory.MovementReserve, item.Qty, "order", o.ExternalOrderID)
	return p.inventoryRepo.SaveStock(ctx, stock, movement)
}

// releaseReservations gives reserved units back on cancellation. Failures
// are logged, not propagated; the cancellation itself must stick.
func (p *OrderPersister) releaseReservations(ctx context.Context, userID uuid.UUID, o *order.Order) {
	for _, item := range o.Items {
		if item.VariantID == nil || item.FulfillmentStatus != order.FulfillmentMapped {
			continue
		}
		stock, err := p.inventoryRepo.FindStock(ctx, userID, *item.VariantID)
		if err != nil {
			p.logger.Warn("release lookup failed",
				zap.String("sku", item.SKU), zap.Error(err))
			continue
		}
		stock.Release(item.Qty)
		movement := inventory.NewMovement(stock.ID, inventory.MovementRelease, item.Qty, "order", o.ExternalOrderID)
		if err := p.inventoryRepo.SaveStock(ctx, stock, movement); err != nil {
			p.logger.Warn("release save failed",
				zap.String("sku", item.SKU), zap.Error(err))
		}
	}
}

// recompute refreshes the profit row after a write. Profit is derived state;
// a failed recompute is logged and the next trigger repairs it.
func (p *OrderPersister) recompute(ctx context.Context, userID, orderID uuid.UUID) {
	if p.profits == nil {
		return
	}
	if _, err := p.profits.Recompute(ctx, userID, orderID); err != nil {
		p.logger.Warn("profit recompute after persist failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
	}
}
