package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/channelpilot/backend/internal/application/webhook"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/infrastructure/logger"
	"github.com/channelpilot/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Shopify webhook headers
const (
	shopifyHmacHeader  = "X-Shopify-Hmac-Sha256"
	shopifyTopicHeader = "X-Shopify-Topic"
	shopifyShopHeader  = "X-Shopify-Shop-Domain"
)

// Flipkart webhook headers
const (
	flipkartEventHeader     = "X-Flipkart-Event-Type"
	flipkartSellerHeader    = "X-Flipkart-Seller-Id"
	flipkartSignatureHeader = "X-Flipkart-Signature"
)

// WebhookReceiver is the ingestion pipeline the receivers hand bodies to
type WebhookReceiver interface {
	Receive(ctx context.Context, req webhook.ReceiveRequest) (webhook.Outcome, error)
}

// WebhookHandler exposes the provider-facing webhook endpoints. These routes
// are authenticated by signature, not by bearer token.
type WebhookHandler struct {
	BaseHandler
	pipeline WebhookReceiver
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(pipeline WebhookReceiver) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/shopify", h.ReceiveShopify)
		webhooks.POST("/flipkart", h.ReceiveFlipkart)
	}
}

// ReceiveShopify handles POST /webhooks/shopify
func (h *WebhookHandler) ReceiveShopify(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	h.receive(c, webhook.ReceiveRequest{
		Source:    integration.ChannelShopify,
		Topic:     c.GetHeader(shopifyTopicHeader),
		ShopRef:   strings.ToLower(strings.TrimSpace(c.GetHeader(shopifyShopHeader))),
		Signature: c.GetHeader(shopifyHmacHeader),
		Body:      body,
	})
}

// ReceiveFlipkart handles POST /webhooks/flipkart
func (h *WebhookHandler) ReceiveFlipkart(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	h.receive(c, webhook.ReceiveRequest{
		Source:    integration.ChannelFlipkart,
		Topic:     c.GetHeader(flipkartEventHeader),
		ShopRef:   strings.TrimSpace(c.GetHeader(flipkartSellerHeader)),
		Signature: c.GetHeader(flipkartSignatureHeader),
		Body:      body,
	})
}

func (h *WebhookHandler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		// MaxBytesReader already wrote nothing; the size cap is the only
		// read failure worth a distinct status
		h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, "Webhook body exceeds maximum allowed size")
		return nil, false
	}
	if len(body) == 0 {
		h.BadRequest(c, "Webhook body is empty")
		return nil, false
	}
	return body, true
}

func (h *WebhookHandler) receive(c *gin.Context, req webhook.ReceiveRequest) {
	log := logger.FromContext(c.Request.Context())

	outcome, err := h.pipeline.Receive(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, integration.ErrSignatureInvalid):
			h.ErrorWithCode(c, dto.ErrCodeSignatureInvalid, "Webhook signature verification failed")
		case errors.Is(err, integration.ErrCredentialMissing):
			h.Unauthorized(c, "No connected account for this webhook source")
		default:
			log.Error("webhook ingestion failed",
				zap.String("source", req.Source.String()),
				zap.String("topic", req.Topic),
				zap.Error(err))
			h.InternalError(c, "Failed to process webhook")
		}
		return
	}

	h.Success(c, webhookOutcomeResponse{
		EventID:   outcome.EventID.String(),
		Duplicate: outcome.Duplicate,
		Handled:   outcome.Handled,
	})
}

type webhookOutcomeResponse struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
	Handled   bool   `json:"handled"`
}
