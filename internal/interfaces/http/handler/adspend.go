package handler

import (
	"context"
	"time"

	"github.com/channelpilot/backend/internal/application/adspend"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SpendSyncer pulls a day of marketing spend from the registered platforms
type SpendSyncer interface {
	SyncDay(ctx context.Context, userID uuid.UUID, day time.Time) adspend.Stats
	SyncYesterday(ctx context.Context, userID uuid.UUID) adspend.Stats
}

// AdSpendHandler exposes the manual ad spend sync trigger
type AdSpendHandler struct {
	BaseHandler
	syncer SpendSyncer
	auth   gin.HandlerFunc
}

// NewAdSpendHandler creates an ad spend handler
func NewAdSpendHandler(syncer SpendSyncer, auth gin.HandlerFunc) *AdSpendHandler {
	return &AdSpendHandler{syncer: syncer, auth: auth}
}

// RegisterRoutes registers ad spend routes
func (h *AdSpendHandler) RegisterRoutes(rg *gin.RouterGroup) {
	spend := rg.Group("/adspend")
	spend.Use(h.auth)
	{
		spend.POST("/sync", h.Sync)
	}
}

type syncSpendRequest struct {
	// Date is the calendar day to pull, YYYY-MM-DD. Defaults to yesterday.
	Date string `json:"date"`
}

type spendStatsResponse struct {
	Date    string `json:"date"`
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// Sync handles POST /adspend/sync
func (h *AdSpendHandler) Sync(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user identity")
		return
	}

	var req syncSpendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid sync request")
			return
		}
	}

	var day time.Time
	var stats adspend.Stats
	if req.Date != "" {
		day, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		stats = h.syncer.SyncDay(c.Request.Context(), userID, day)
	} else {
		day = time.Now().UTC().AddDate(0, 0, -1)
		stats = h.syncer.SyncYesterday(c.Request.Context(), userID)
	}

	h.Success(c, spendStatsResponse{
		Date:    day.Format("2006-01-02"),
		Synced:  stats.Synced,
		Skipped: stats.Skipped,
		Failed:  stats.Failed,
	})
}
