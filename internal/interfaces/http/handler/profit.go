package handler

import (
	"context"
	"errors"
	"io"
	"time"

	profitapp "github.com/channelpilot/backend/internal/application/profit"
	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/channelpilot/backend/internal/domain/profit"
	"github.com/channelpilot/backend/internal/domain/shared"
	csvimport "github.com/channelpilot/backend/internal/infrastructure/import"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProfitRecomputer rebuilds profit rows from current facts
type ProfitRecomputer interface {
	Recompute(ctx context.Context, userID, orderID uuid.UUID) (*profit.OrderProfit, error)
	RecomputeAll(ctx context.Context, userID uuid.UUID) (recomputed, failed int, err error)
}

// SkuCostImporter bulk-loads SKU cost rows from a CSV upload
type SkuCostImporter interface {
	Import(ctx context.Context, r io.Reader) (*profitapp.ImportReport, error)
}

// ProfitHandler exposes the profit ledger and the SKU cost table
type ProfitHandler struct {
	BaseHandler
	recomputer ProfitRecomputer
	importer   SkuCostImporter
	profits    profit.Repository
	skuCosts   profit.SkuCostRepository
	orders     order.Repository
	auth       gin.HandlerFunc
}

// NewProfitHandler creates a profit handler
func NewProfitHandler(
	recomputer ProfitRecomputer,
	importer SkuCostImporter,
	profits profit.Repository,
	skuCosts profit.SkuCostRepository,
	orders order.Repository,
	auth gin.HandlerFunc,
) *ProfitHandler {
	return &ProfitHandler{
		recomputer: recomputer,
		importer:   importer,
		profits:    profits,
		skuCosts:   skuCosts,
		orders:     orders,
		auth:       auth,
	}
}

// RegisterRoutes registers profit routes
func (h *ProfitHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.Use(h.auth)
	{
		orders.GET("/:id/profit", h.GetOrderProfit)
		orders.POST("/:id/profit/recompute", h.RecomputeOrder)
	}

	profits := rg.Group("/profit")
	profits.Use(h.auth)
	{
		profits.POST("/recompute", h.RecomputeAll)
	}

	skuCosts := rg.Group("/sku-costs")
	skuCosts.Use(h.auth)
	{
		skuCosts.GET("/:sku", h.GetSkuCost)
		skuCosts.PUT("", h.UpsertSkuCost)
		skuCosts.POST("/import", h.ImportSkuCosts)
	}
}

type orderProfitResponse struct {
	OrderID         string          `json:"order_id"`
	Revenue         decimal.Decimal `json:"revenue"`
	ProductCost     decimal.Decimal `json:"product_cost"`
	PackagingCost   decimal.Decimal `json:"packaging_cost"`
	ShippingForward decimal.Decimal `json:"shipping_forward"`
	ShippingReverse decimal.Decimal `json:"shipping_reverse"`
	MarketingCost   decimal.Decimal `json:"marketing_cost"`
	PaymentFee      decimal.Decimal `json:"payment_fee"`
	RTOLoss         decimal.Decimal `json:"rto_loss"`
	LostLoss        decimal.Decimal `json:"lost_loss"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	FinalStatus     string          `json:"final_status"`
	Status          string          `json:"status"`
	ComputedAt      time.Time       `json:"computed_at"`
}

func toOrderProfitResponse(p *profit.OrderProfit) orderProfitResponse {
	return orderProfitResponse{
		OrderID:         p.OrderID.String(),
		Revenue:         p.Revenue,
		ProductCost:     p.ProductCost,
		PackagingCost:   p.PackagingCost,
		ShippingForward: p.ShippingForward,
		ShippingReverse: p.ShippingReverse,
		MarketingCost:   p.MarketingCost,
		PaymentFee:      p.PaymentFee,
		RTOLoss:         p.RTOLoss,
		LostLoss:        p.LostLoss,
		NetProfit:       p.NetProfit,
		FinalStatus:     p.FinalStatus,
		Status:          string(p.Status),
		ComputedAt:      p.ComputedAt,
	}
}

// GetOrderProfit handles GET /orders/:id/profit
func (h *ProfitHandler) GetOrderProfit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order id")
		return
	}

	// Ownership check before touching the unscoped profit table
	if _, err := h.orders.FindByID(c.Request.Context(), userID, orderID); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			h.NotFound(c, "Order not found")
			return
		}
		h.InternalError(c, "Failed to load order")
		return
	}

	p, err := h.profits.FindByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, profit.ErrProfitNotFound) {
			h.NotFound(c, "No profit row computed for this order yet")
			return
		}
		h.InternalError(c, "Failed to load profit row")
		return
	}

	h.Success(c, toOrderProfitResponse(p))
}

// RecomputeOrder handles POST /orders/:id/profit/recompute
func (h *ProfitHandler) RecomputeOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order id")
		return
	}

	p, err := h.recomputer.Recompute(c.Request.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			h.NotFound(c, "Order not found")
			return
		}
		h.InternalError(c, "Profit recompute failed")
		return
	}

	h.Success(c, toOrderProfitResponse(p))
}

type recomputeAllResponse struct {
	Recomputed int `json:"recomputed"`
	Failed     int `json:"failed"`
}

// RecomputeAll handles POST /profit/recompute
func (h *ProfitHandler) RecomputeAll(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	recomputed, failed, err := h.recomputer.RecomputeAll(c.Request.Context(), userID)
	if err != nil {
		h.InternalError(c, "Profit recompute failed")
		return
	}

	h.Success(c, recomputeAllResponse{Recomputed: recomputed, Failed: failed})
}

type skuCostResponse struct {
	SKU           string          `json:"sku"`
	ProductCost   decimal.Decimal `json:"product_cost"`
	PackagingCost decimal.Decimal `json:"packaging_cost"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// GetSkuCost handles GET /sku-costs/:sku
func (h *ProfitHandler) GetSkuCost(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	sku := c.Param("sku")
	cost, err := h.skuCosts.FindBySKU(c.Request.Context(), sku)
	if err != nil {
		if errors.Is(err, profit.ErrSkuCostNotFound) {
			h.NotFound(c, "No cost row for this SKU")
			return
		}
		h.InternalError(c, "Failed to load SKU cost")
		return
	}

	h.Success(c, skuCostResponse{
		SKU:           cost.SKU,
		ProductCost:   cost.ProductCost,
		PackagingCost: cost.PackagingCost,
		UpdatedAt:     cost.UpdatedAt,
	})
}

// ImportSkuCosts handles POST /sku-costs/import. The CSV can arrive either
// as a multipart "file" field or as the raw request body.
func (h *ProfitHandler) ImportSkuCosts(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	var src io.Reader = c.Request.Body
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			h.BadRequest(c, "Failed to read uploaded file")
			return
		}
		defer f.Close()
		src = f
	}

	report, err := h.importer.Import(c.Request.Context(), src)
	if err != nil {
		switch {
		case errors.Is(err, csvimport.ErrEmptyFile),
			errors.Is(err, csvimport.ErrInvalidEncoding),
			errors.Is(err, csvimport.ErrMissingHeader),
			errors.Is(err, csvimport.ErrMissingColumns):
			h.BadRequest(c, err.Error())
		default:
			h.InternalError(c, "SKU cost import failed")
		}
		return
	}

	h.Success(c, report)
}

type upsertSkuCostRequest struct {
	SKU           string          `json:"sku" binding:"required"`
	ProductCost   decimal.Decimal `json:"product_cost"`
	PackagingCost decimal.Decimal `json:"packaging_cost"`
}

// UpsertSkuCost handles PUT /sku-costs
func (h *ProfitHandler) UpsertSkuCost(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	var req upsertSkuCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid SKU cost payload")
		return
	}
	if req.ProductCost.IsNegative() || req.PackagingCost.IsNegative() {
		h.BadRequest(c, "Costs cannot be negative")
		return
	}

	cost, err := h.skuCosts.FindBySKU(c.Request.Context(), req.SKU)
	switch {
	case err == nil:
		cost.ProductCost = req.ProductCost
		cost.PackagingCost = req.PackagingCost
		cost.UpdatedAt = time.Now()
	case errors.Is(err, profit.ErrSkuCostNotFound):
		cost = &profit.SkuCost{
			BaseEntity:    shared.NewBaseEntity(),
			SKU:           req.SKU,
			ProductCost:   req.ProductCost,
			PackagingCost: req.PackagingCost,
		}
	default:
		h.InternalError(c, "Failed to load SKU cost")
		return
	}

	if err := h.skuCosts.Save(c.Request.Context(), cost); err != nil {
		h.InternalError(c, "Failed to save SKU cost")
		return
	}

	h.Success(c, skuCostResponse{
		SKU:           cost.SKU,
		ProductCost:   cost.ProductCost,
		PackagingCost: cost.PackagingCost,
		UpdatedAt:     cost.UpdatedAt,
	})
}
