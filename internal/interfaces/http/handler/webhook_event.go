package handler

import (
	"time"

	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// WebhookEventHandler exposes the webhook audit log
type WebhookEventHandler struct {
	BaseHandler
	events channel.WebhookEventRepository
	auth   gin.HandlerFunc
}

// NewWebhookEventHandler creates a webhook event handler
func NewWebhookEventHandler(events channel.WebhookEventRepository, auth gin.HandlerFunc) *WebhookEventHandler {
	return &WebhookEventHandler{events: events, auth: auth}
}

// RegisterRoutes registers webhook event routes
func (h *WebhookEventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	events := rg.Group("/webhook-events")
	events.Use(h.auth)
	{
		events.GET("", h.List)
	}
}

type webhookEventResponse struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Topic       string     `json:"topic"`
	ShopRef     string     `json:"shop_ref"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// List handles GET /webhook-events
func (h *WebhookEventHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	req.Normalize()

	offset := (req.Page - 1) * req.PageSize
	events, err := h.events.FindByUser(c.Request.Context(), userID, req.PageSize, offset)
	if err != nil {
		h.InternalError(c, "Failed to list webhook events")
		return
	}

	out := make([]webhookEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, webhookEventResponse{
			ID:          e.ID.String(),
			Source:      e.Source,
			Topic:       e.Topic,
			ShopRef:     e.ShopRef,
			ReceivedAt:  e.ReceivedAt,
			ProcessedAt: e.ProcessedAt,
			Error:       e.Error,
		})
	}

	h.Success(c, out)
}
