package profit

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shipment"
)

// Service recomputes the derived profit ledger. Every recompute rebuilds the
// full row from current facts; nothing is patched incrementally, so replayed
// or out-of-order triggers always converge on the same result.
type Service struct {
	orderRepo    order.Repository
	shipmentRepo shipment.Repository
	profitRepo   profit.Repository
	skuCostRepo  profit.SkuCostRepository
	adSpendRepo  profit.AdSpendRepository
	logger       *zap.Logger
}

// NewService creates the profit recompute service
func NewService(
	orderRepo order.Repository,
	shipmentRepo shipment.Repository,
	profitRepo profit.Repository,
	skuCostRepo profit.SkuCostRepository,
	adSpendRepo profit.AdSpendRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		orderRepo:    orderRepo,
		shipmentRepo: shipmentRepo,
		profitRepo:   profitRepo,
		skuCostRepo:  skuCostRepo,
		adSpendRepo:  adSpendRepo,
		logger:       logger,
	}
}

// Recompute rebuilds the profit row for one order from order, SKU cost,
// shipment and ad-spend facts, then replaces the stored row wholesale.
func (s *Service) Recompute(ctx context.Context, userID, orderID uuid.UUID) (*profit.OrderProfit, error) {
	o, err := s.orderRepo.FindByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	in := profit.Inputs{
		OrderID:     o.ID,
		Revenue:     o.OrderTotal,
		OrderStatus: o.Status,
	}

	if err := s.fillItemCosts(ctx, o, &in); err != nil {
		return nil, err
	}
	if err := s.fillShipment(ctx, o.ID, &in); err != nil {
		return nil, err
	}
	if err := s.fillMarketing(ctx, o, &in); err != nil {
		return nil, err
	}

	row := profit.Compute(in)
	if err := s.profitRepo.Replace(ctx, &row); err != nil {
		return nil, err
	}

	s.logger.Debug("profit recomputed",
		zap.String("order_id", o.ID.String()),
		zap.String("final_status", row.FinalStatus),
		zap.String("net_profit", row.NetProfit.String()))
	return &row, nil
}

// RecomputeAll rebuilds profit for every order a user owns. Per-order
// failures are logged and skipped so one bad row never blocks the sweep.
func (s *Service) RecomputeAll(ctx context.Context, userID uuid.UUID) (recomputed, failed int, err error) {
	ids, err := s.orderRepo.ListIDsForUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return recomputed, failed, ctx.Err()
		}
		if _, err := s.Recompute(ctx, userID, id); err != nil {
			failed++
			s.logger.Warn("profit recompute failed",
				zap.String("order_id", id.String()),
				zap.Error(err))
			continue
		}
		recomputed++
	}
	return recomputed, failed, nil
}

// fillItemCosts sums product and packaging cost over the order items. SKUs
// without a cost row contribute zero and are reported as missing.
func (s *Service) fillItemCosts(ctx context.Context, o *order.Order, in *profit.Inputs) error {
	skus := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if sku := strings.TrimSpace(it.SKU); sku != "" && it.Qty > 0 {
			skus = append(skus, sku)
		}
	}
	costs, err := s.skuCostRepo.FindBySKUs(ctx, skus)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		sku := strings.TrimSpace(it.SKU)
		if sku == "" || it.Qty <= 0 {
			continue
		}
		c, ok := costs[sku]
		if !ok {
			in.MissingSKUs = append(in.MissingSKUs, sku)
			continue
		}
		qty := decimal.NewFromInt(int64(it.Qty))
		in.ProductCost = in.ProductCost.Add(c.ProductCost.Mul(qty))
		in.PackagingCost = in.PackagingCost.Add(c.PackagingCost.Mul(qty))
	}
	return nil
}

// fillShipment folds the order's shipments into one view: costs sum across
// split shipments, the status comes from the most decisive consignment.
func (s *Service) fillShipment(ctx context.Context, orderID uuid.UUID, in *profit.Inputs) error {
	shipments, err := s.shipmentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if len(shipments) == 0 {
		return nil
	}

	in.HasShipment = true
	in.ShipmentStatus = shipments[0].Status
	for _, sh := range shipments {
		in.ShippingForward = in.ShippingForward.Add(sh.ForwardCost)
		in.ShippingReverse = in.ShippingReverse.Add(sh.ReverseCost)
		if statusRank(sh.Status) > statusRank(in.ShipmentStatus) {
			in.ShipmentStatus = sh.Status
		}
	}
	return nil
}

// fillMarketing sets the blended daily CAC for the order's creation day
func (s *Service) fillMarketing(ctx context.Context, o *order.Order, in *profit.Inputs) error {
	day := o.CreatedAtSource
	if day.IsZero() {
		day = o.CreatedAt
	}
	spend, err := s.adSpendRepo.SumForDate(ctx, day)
	if err != nil {
		return err
	}
	count, err := s.orderRepo.CountCreatedOn(ctx, day)
	if err != nil {
		return err
	}
	in.MarketingCost = profit.BlendedCAC(spend, count)
	return nil
}

// statusRank orders shipment statuses by how decisive they are for the
// settlement policy. Terminal outcomes outrank anything in flight.
func statusRank(s shipment.Status) int {
	switch s {
	case shipment.StatusDelivered:
		return 6
	case shipment.StatusRTODone:
		return 5
	case shipment.StatusLost:
		return 4
	case shipment.StatusRTOInitiated:
		return 3
	case shipment.StatusShipped:
		return 2
	case shipment.StatusUnknown:
		return 0
	default:
		return 1
	}
}
