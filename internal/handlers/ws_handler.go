package handlers

import (
	"net/http"

	"uppypro/internal/dto"
	"uppypro/internal/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WSHandler upgrades dashboard clients onto the realtime hub
type WSHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewWSHandler creates the handler. hub is nil when the realtime driver is
// not the built-in hub.
func NewWSHandler(hub *realtime.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// Connect GET /api/v1/ws?access_token=...
func (h *WSHandler) Connect(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusNotFound, dto.Error("NOT_FOUND", "Realtime hub is disabled"))
		return
	}
	tenantID, userID, ok := scope(c)
	if !ok {
		return
	}

	// the upgrader has already answered the client on failure
	if err := h.hub.ServeWS(c.Writer, c.Request, tenantID, userID); err != nil {
		h.logger.Debug("websocket upgrade failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}

// RegisterRoutes registers /ws
func (h *WSHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws", h.Connect)
}
