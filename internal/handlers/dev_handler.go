package handlers

import (
	"net/http"
	"time"

	"uppypro/internal/channel"
	"uppypro/internal/dto"
	"uppypro/internal/middleware"
	"uppypro/internal/models"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Dev Handler
// Simulates customer messages without Meta credentials. Development only.
// ===========================================================================

// DevHandler development endpoints
type DevHandler struct {
	channelService services.ChannelService
	messageService services.MessageService
	logger         *zap.Logger
}

// NewDevHandler creates the handler
func NewDevHandler(channelService services.ChannelService, messageService services.MessageService, logger *zap.Logger) *DevHandler {
	return &DevHandler{
		channelService: channelService,
		messageService: messageService,
		logger:         logger,
	}
}

// SimulateInboundRequest customer message to inject
type SimulateInboundRequest struct {
	ConnectionID uuid.UUID `json:"connection_id" binding:"required"`
	SenderID     string    `json:"sender_id" binding:"required"`
	SenderName   string    `json:"sender_name"`
	Text         string    `json:"text" binding:"required"`

	// MessageID channel message id, generated when empty
	MessageID string `json:"message_id"`
}

// SimulateInbound runs a message through the regular inbound flow
// POST /api/v1/dev/inbound
func (h *DevHandler) SimulateInbound(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	var req SimulateInboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "connection_id, sender_id ve text gerekli")
		return
	}
	ctx := c.Request.Context()

	connections, err := h.channelService.List(ctx, tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var conn *models.ChannelConnection
	for i := range connections {
		if connections[i].ID == req.ConnectionID {
			conn = &connections[i]
			break
		}
	}
	if conn == nil {
		c.JSON(http.StatusNotFound, dto.Error("NOT_FOUND", "kanal bağlantısı bulunamadı"))
		return
	}

	if req.MessageID == "" {
		req.MessageID = "dev." + uuid.NewString()
	}

	result, err := h.messageService.ProcessInbound(ctx, conn, &channel.InboundMessage{
		Channel:           conn.Channel,
		ExternalAccountID: conn.ExternalID,
		SenderID:          req.SenderID,
		SenderName:        req.SenderName,
		ChannelMessageID:  req.MessageID,
		Text:              req.Text,
		MessageType:       models.MessageText,
		Timestamp:         time.Now().UTC(),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("dev inbound processed",
		zap.String("request_id", requestID),
		zap.String("conversation_id", result.ConversationID.String()),
		zap.Bool("duplicate", result.Duplicate),
		zap.Bool("forwarded", result.Forwarded),
	)
	c.JSON(http.StatusOK, dto.Success(result))
}

// RegisterRoutes registers /dev routes on a tenant scoped group
func (h *DevHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/dev/inbound", h.SimulateInbound)
}
