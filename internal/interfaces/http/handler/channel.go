package handler

import (
	"context"
	"errors"
	"time"

	appsync "github.com/channelpilot/backend/internal/application/sync"
	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/infrastructure/logger"
	"github.com/channelpilot/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderSyncer triggers an order import for one account
type OrderSyncer interface {
	SyncOrders(ctx context.Context, account *channel.Account) (appsync.Result, error)
}

// ChannelHandler exposes channel accounts, manual sync triggers and the
// sync job history
type ChannelHandler struct {
	BaseHandler
	accounts channel.AccountRepository
	jobs     channel.SyncJobRepository
	syncer   OrderSyncer
	auth     gin.HandlerFunc
}

// NewChannelHandler creates a channel handler
func NewChannelHandler(
	accounts channel.AccountRepository,
	jobs channel.SyncJobRepository,
	syncer OrderSyncer,
	auth gin.HandlerFunc,
) *ChannelHandler {
	return &ChannelHandler{
		accounts: accounts,
		jobs:     jobs,
		syncer:   syncer,
		auth:     auth,
	}
}

// RegisterRoutes registers channel routes
func (h *ChannelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	channels := rg.Group("/channels")
	channels.Use(h.auth)
	{
		channels.GET("", h.List)
		channels.POST("/:id/sync", h.TriggerSync)
		channels.GET("/:id/jobs", h.ListJobs)
		channels.GET("/:id/jobs/:jobId/logs", h.ListJobLogs)
	}
}

type channelAccountResponse struct {
	ID                 string     `json:"id"`
	Channel            string     `json:"channel"`
	ExternalAccountRef string     `json:"external_account_ref"`
	SellerName         string     `json:"seller_name"`
	Status             string     `json:"status"`
	LastSyncCursor     *time.Time `json:"last_sync_cursor,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toChannelAccountResponse(a channel.Account) channelAccountResponse {
	return channelAccountResponse{
		ID:                 a.ID.String(),
		Channel:            a.Channel.String(),
		ExternalAccountRef: a.ExternalAccountRef,
		SellerName:         a.SellerName,
		Status:             string(a.Status),
		LastSyncCursor:     a.LastSyncCursor,
		CreatedAt:          a.CreatedAt,
	}
}

// List handles GET /channels
func (h *ChannelHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	out := make([]channelAccountResponse, 0)
	for _, ch := range []integration.ChannelType{
		integration.ChannelShopify,
		integration.ChannelAmazon,
		integration.ChannelFlipkart,
		integration.ChannelMyntra,
	} {
		accounts, err := h.accounts.FindByUserAndChannel(c.Request.Context(), userID, ch)
		if err != nil {
			h.InternalError(c, "Failed to list channel accounts")
			return
		}
		for _, a := range accounts {
			out = append(out, toChannelAccountResponse(a))
		}
	}

	h.Success(c, out)
}

type syncResultResponse struct {
	JobID    string `json:"job_id"`
	Imported int    `json:"imported"`
	Updated  int    `json:"updated"`
	Failed   int    `json:"failed"`
}

// TriggerSync handles POST /channels/:id/sync
func (h *ChannelHandler) TriggerSync(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	account, err := h.accounts.FindByID(c.Request.Context(), userID, accountID)
	if err != nil {
		if errors.Is(err, channel.ErrAccountNotFound) {
			h.NotFound(c, "Channel account not found")
			return
		}
		h.InternalError(c, "Failed to load channel account")
		return
	}

	result, err := h.syncer.SyncOrders(c.Request.Context(), account)
	if err != nil {
		switch {
		case errors.Is(err, integration.ErrSyncInProgress):
			h.Conflict(c, dto.ErrCodeSyncInProgress, "A sync is already running for this account")
		case errors.Is(err, channel.ErrAccountDisabled):
			h.UnprocessableEntity(c, dto.ErrCodeAccountDisabled, "Channel account is disconnected")
		default:
			logger.FromContext(c.Request.Context()).Error("manual sync failed",
				zap.String("account_id", accountID.String()),
				zap.Error(err))
			h.ErrorWithCode(c, dto.ErrCodeProviderUnavailable, "Order sync failed")
		}
		return
	}

	h.Success(c, syncResultResponse{
		JobID:    result.JobID.String(),
		Imported: result.Imported,
		Updated:  result.Updated,
		Failed:   result.Failed,
	})
}

type syncJobResponse struct {
	ID           string     `json:"id"`
	JobType      string     `json:"job_type"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Imported     int        `json:"imported"`
	Updated      int        `json:"updated"`
	Failed       int        `json:"failed"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ListJobs handles GET /channels/:id/jobs
func (h *ChannelHandler) ListJobs(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}

	if _, err := h.accounts.FindByID(c.Request.Context(), userID, accountID); err != nil {
		if errors.Is(err, channel.ErrAccountNotFound) {
			h.NotFound(c, "Channel account not found")
			return
		}
		h.InternalError(c, "Failed to load channel account")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	req.Normalize()

	jobs, err := h.jobs.FindByAccount(c.Request.Context(), accountID, req.PageSize)
	if err != nil {
		h.InternalError(c, "Failed to list sync jobs")
		return
	}

	out := make([]syncJobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, syncJobResponse{
			ID:           j.ID.String(),
			JobType:      string(j.JobType),
			Status:       string(j.Status),
			StartedAt:    j.StartedAt,
			FinishedAt:   j.FinishedAt,
			Imported:     j.Imported,
			Updated:      j.Updated,
			Failed:       j.Failed,
			ErrorMessage: j.ErrorMessage,
		})
	}

	h.Success(c, out)
}

type syncLogResponse struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ListJobLogs handles GET /channels/:id/jobs/:jobId/logs
func (h *ChannelHandler) ListJobLogs(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account id")
		return
	}
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		h.BadRequest(c, "Invalid job id")
		return
	}

	if _, err := h.accounts.FindByID(c.Request.Context(), userID, accountID); err != nil {
		if errors.Is(err, channel.ErrAccountNotFound) {
			h.NotFound(c, "Channel account not found")
			return
		}
		h.InternalError(c, "Failed to load channel account")
		return
	}

	logs, err := h.jobs.FindLogs(c.Request.Context(), jobID)
	if err != nil {
		h.InternalError(c, "Failed to list sync logs")
		return
	}

	out := make([]syncLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, syncLogResponse{
			Level:     string(l.Level),
			Message:   l.Message,
			CreatedAt: l.CreatedAt,
		})
	}

	h.Success(c, out)
}
