package handler

import (
	"errors"
	"time"

	"github.com/channelpilot/backend/internal/domain/order"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderHandler exposes the imported order book
type OrderHandler struct {
	BaseHandler
	orders order.Repository
	auth   gin.HandlerFunc
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orders order.Repository, auth gin.HandlerFunc) *OrderHandler {
	return &OrderHandler{orders: orders, auth: auth}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.Use(h.auth)
	{
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
	}
}

type listOrdersRequest struct {
	Page             int    `form:"page" binding:"omitempty,min=1"`
	PageSize         int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status           string `form:"status"`
	ChannelAccountID string `form:"channel_account_id" binding:"omitempty,uuid"`
	CreatedAfter     string `form:"created_after"`
	CreatedBefore    string `form:"created_before"`
	SortBy           string `form:"sort_by"`
	SortDir          string `form:"sort_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
}

type orderItemResponse struct {
	SKU               string          `json:"sku"`
	Title             string          `json:"title"`
	Qty               int             `json:"qty"`
	Price             decimal.Decimal `json:"price"`
	FulfillmentStatus string          `json:"fulfillment_status"`
}

type orderResponse struct {
	ID               string              `json:"id"`
	ChannelAccountID string              `json:"channel_account_id"`
	ExternalOrderID  string              `json:"external_order_id"`
	CustomerName     string              `json:"customer_name"`
	CustomerEmail    string              `json:"customer_email,omitempty"`
	ShippingAddress  string              `json:"shipping_address,omitempty"`
	PaymentMode      string              `json:"payment_mode"`
	OrderTotal       decimal.Decimal     `json:"order_total"`
	Status           string              `json:"status"`
	Items            []orderItemResponse `json:"items"`
	CreatedAtSource  time.Time           `json:"created_at_source"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func toOrderResponse(o order.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			SKU:               it.SKU,
			Title:             it.Title,
			Qty:               it.Qty,
			Price:             it.Price,
			FulfillmentStatus: string(it.FulfillmentStatus),
		})
	}
	return orderResponse{
		ID:               o.ID.String(),
		ChannelAccountID: o.ChannelAccountID.String(),
		ExternalOrderID:  o.ExternalOrderID,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		ShippingAddress:  o.ShippingAddress,
		PaymentMode:      string(o.PaymentMode),
		OrderTotal:       o.OrderTotal,
		Status:           o.Status.String(),
		Items:            items,
		CreatedAtSource:  o.CreatedAtSource,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	var req listOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	filter := order.Filter{
		SortBy:   req.SortBy,
		SortDir:  req.SortDir,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	if req.Status != "" {
		status := order.Status(req.Status)
		if !status.IsValid() {
			h.BadRequest(c, "Unknown order status")
			return
		}
		filter.Status = &status
	}
	if req.ChannelAccountID != "" {
		id, err := uuid.Parse(req.ChannelAccountID)
		if err != nil {
			h.BadRequest(c, "Invalid channel account id")
			return
		}
		filter.ChannelAccountID = &id
	}
	if req.CreatedAfter != "" {
		t, err := time.Parse(time.RFC3339, req.CreatedAfter)
		if err != nil {
			h.BadRequest(c, "created_after must be RFC3339")
			return
		}
		filter.CreatedAfter = &t
	}
	if req.CreatedBefore != "" {
		t, err := time.Parse(time.RFC3339, req.CreatedBefore)
		if err != nil {
			h.BadRequest(c, "created_before must be RFC3339")
			return
		}
		filter.CreatedBefore = &t
	}

	orders, total, err := h.orders.FindAll(c.Request.Context(), userID, filter)
	if err != nil {
		h.InternalError(c, "Failed to list orders")
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}

	h.SuccessWithMeta(c, out, total, req.Page, req.PageSize)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
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

	o, err := h.orders.FindByID(c.Request.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			h.NotFound(c, "Order not found")
			return
		}
		h.InternalError(c, "Failed to load order")
		return
	}

	h.Success(c, toOrderResponse(*o))
}
