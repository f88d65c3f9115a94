package handlers

import (
	"net/http"

	"uppypro/internal/dto"
	"uppypro/internal/middleware"
	"uppypro/internal/models"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AgentHandler AI agent settings of the tenant
type AgentHandler struct {
	agentService services.AgentService
	logger       *zap.Logger
}

// NewAgentHandler creates the handler
func NewAgentHandler(agentService services.AgentService, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{agentService: agentService, logger: logger}
}

// AgentSettingsRequest body of PUT /agent/settings
type AgentSettingsRequest struct {
	Enabled         bool   `json:"enabled"`
	WebhookURL      string `json:"webhook_url" binding:"omitempty,url,max=1000"`
	ReplyMode       string `json:"reply_mode" binding:"omitempty,oneof=async sync"`
	BusinessContext string `json:"business_context" binding:"max=8000"`
}

// Get current settings
// GET /api/v1/agent/settings
func (h *AgentHandler) Get(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	settings, err := h.agentService.Get(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(settings))
}

// Upsert replaces the settings
// PUT /api/v1/agent/settings
func (h *AgentHandler) Upsert(c *gin.Context) {
	tenantID, userID, ok := scope(c)
	if !ok {
		return
	}

	var req AgentSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "geçersiz yapay zeka ayarları")
		return
	}

	settings, err := h.agentService.Upsert(c.Request.Context(), tenantID, userID, services.AgentSettingsInput{
		Enabled:         req.Enabled,
		WebhookURL:      req.WebhookURL,
		ReplyMode:       models.ReplyMode(req.ReplyMode),
		BusinessContext: req.BusinessContext,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(settings))
}

// Test pings the configured webhook. Webhook failures are reported in the body.
// POST /api/v1/agent/test
func (h *AgentHandler) Test(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	result, err := h.agentService.Test(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(result))
}

// RegisterRoutes registers agent routes
func (h *AgentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	agent := rg.Group("/agent")
	{
		agent.GET("/settings", h.Get)

		owner := agent.Group("")
		owner.Use(middleware.RequireOwner())
		owner.PUT("/settings", h.Upsert)
		owner.POST("/test", h.Test)
	}
}
