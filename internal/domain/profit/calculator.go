package profit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/shared"
	"github.com/channelpilot/backend/internal/domain/shipment"
)

// Inputs carries everything the profit policy needs, already read from the
// store by the caller. Compute itself is pure so the policy can be tested
// without any persistence.
type Inputs struct {
	OrderID        uuid.UUID
	Revenue        decimal.Decimal
	OrderStatus    order.Status
	HasShipment    bool
	ShipmentStatus shipment.Status

	ProductCost     decimal.Decimal
	PackagingCost   decimal.Decimal
	ShippingForward decimal.Decimal
	ShippingReverse decimal.Decimal
	MarketingCost   decimal.Decimal
	PaymentFee      decimal.Decimal

	// MissingSKUs lists order SKUs that had no cost row; their components
	// entered the sums as zero
	MissingSKUs []string
}

// Compute evaluates the settlement policy for one order and returns the full
// ledger row. The policy is keyed on the final order/shipment status:
//
//	DELIVERED        net = revenue - (product + packaging + forward + marketing + fee)
//	RTO_*            net = -(product + packaging + forward + reverse + marketing)
//	LOST             net = -(product + packaging + forward)
//	CANCELLED        net = -(marketing + fee), only when cancelled pre-ship
//	otherwise        in-flight estimate, same formula as DELIVERED
func Compute(in Inputs) OrderProfit {
	zero := decimal.Zero
	revenue := in.Revenue
	rtoLoss := zero
	lostLoss := zero
	var net decimal.Decimal
	finalStatus := "PENDING"

	standard := func() decimal.Decimal {
		return revenue.
			Sub(in.ProductCost).
			Sub(in.PackagingCost).
			Sub(in.ShippingForward).
			Sub(in.MarketingCost).
			Sub(in.PaymentFee)
	}

	switch {
	case in.OrderStatus.IsCancelled() && preShip(in):
		// Cancelled before the parcel moved: only marketing and payment
		// fee are sunk.
		finalStatus = string(order.StatusCancelled)
		revenue = zero
		net = in.MarketingCost.Add(in.PaymentFee).Neg()

	case in.HasShipment && in.ShipmentStatus == shipment.StatusDelivered:
		finalStatus = string(shipment.StatusDelivered)
		net = standard()

	case in.HasShipment && (in.ShipmentStatus == shipment.StatusRTODone || in.ShipmentStatus == shipment.StatusRTOInitiated):
		finalStatus = string(in.ShipmentStatus)
		revenue = zero
		rtoLoss = in.ProductCost.
			Add(in.PackagingCost).
			Add(in.ShippingForward).
			Add(in.ShippingReverse).
			Add(in.MarketingCost)
		net = rtoLoss.Neg()

	case in.HasShipment && in.ShipmentStatus == shipment.StatusLost:
		finalStatus = string(shipment.StatusLost)
		revenue = zero
		lostLoss = in.ProductCost.Add(in.PackagingCost).Add(in.ShippingForward)
		net = lostLoss.Neg()

	default:
		if in.HasShipment {
			finalStatus = string(in.ShipmentStatus)
		}
		net = standard()
	}

	return OrderProfit{
		BaseEntity:      shared.NewBaseEntity(),
		OrderID:         in.OrderID,
		Revenue:         revenue,
		ProductCost:     in.ProductCost,
		PackagingCost:   in.PackagingCost,
		ShippingForward: in.ShippingForward,
		ShippingReverse: in.ShippingReverse,
		MarketingCost:   in.MarketingCost,
		PaymentFee:      in.PaymentFee,
		RTOLoss:         rtoLoss,
		LostLoss:        lostLoss,
		NetProfit:       net,
		FinalStatus:     finalStatus,
		Status:          costStatus(in),
		ComputedAt:      time.Now(),
	}
}

// preShip reports whether the parcel never left: no shipment at all, or a
// shipment that did not get past packing
func preShip(in Inputs) bool {
	if !in.HasShipment {
		return true
	}
	switch in.ShipmentStatus {
	case shipment.StatusNew, shipment.StatusConfirmed, shipment.StatusPacked, shipment.StatusCancelled:
		return true
	default:
		return false
	}
}

// costStatus derives the completeness flag from the missing-SKU list
func costStatus(in Inputs) CostStatus {
	if len(in.MissingSKUs) == 0 {
		return CostComplete
	}
	if in.ProductCost.IsPositive() {
		return CostPartial
	}
	return CostMissing
}

// BlendedCAC computes the blended customer-acquisition cost for a calendar
// day: total spend divided by order count, rounded to 2 places. Zero when the
// day had no orders.
func BlendedCAC(daySpend decimal.Decimal, dayOrders int64) decimal.Decimal {
	if dayOrders <= 0 {
		return decimal.Zero
	}
	return daySpend.Div(decimal.NewFromInt(dayOrders)).Round(2)
}
