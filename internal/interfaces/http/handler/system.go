package handler

import (
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler exposes health and readiness probes
type SystemHandler struct {
	BaseHandler
	appName string
	env     string
	started time.Time
}

// NewSystemHandler creates a system handler
func NewSystemHandler(appName, env string) *SystemHandler {
	return &SystemHandler{
		appName: appName,
		env:     env,
		started: time.Now(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

type healthResponse struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Env     string `json:"env"`
	Uptime  string `json:"uptime"`
	Version string `json:"version,omitempty"`
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, healthResponse{
		Status: "ok",
		App:    h.appName,
		Env:    h.env,
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}
