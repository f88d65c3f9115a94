package handlers

import (
	"net/http"
	"strconv"
	"time"

	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Internal Handler
// Shared-secret API called by the n8n workflows
// ===========================================================================

// InternalHandler internal API endpoints
type InternalHandler struct {
	messageService  services.MessageService
	agentService    services.AgentService
	calendarService services.CalendarService
	logger          *zap.Logger
}

// NewInternalHandler creates the handler
func NewInternalHandler(
	messageService services.MessageService,
	agentService services.AgentService,
	calendarService services.CalendarService,
	logger *zap.Logger,
) *InternalHandler {
	return &InternalHandler{
		messageService:  messageService,
		agentService:    agentService,
		calendarService: calendarService,
		logger:          logger.Named("internal_api"),
	}
}

// ===========================================================================
// Request DTOs
// ===========================================================================

// InternalSendRequest body of POST /messages/send
type InternalSendRequest struct {
	ConversationID uuid.UUID          `json:"conversation_id" binding:"required"`
	Text           string             `json:"text" binding:"max=4096"`
	Attachment     *models.Attachment `json:"attachment"`
}

// SummaryRequest body of POST /conversations/:id/summary
type SummaryRequest struct {
	Summary string `json:"summary" binding:"required,max=10000"`
}

// N8NSummaryRequest body of POST /webhooks/n8n/summary
type N8NSummaryRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
	Summary        string    `json:"summary" binding:"required,max=10000"`
}

// HandoffRequest body of POST /conversations/:id/handoff
type HandoffRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// InternalAppointmentRequest body of POST /appointments
type InternalAppointmentRequest struct {
	TenantID       uuid.UUID  `json:"tenant_id" binding:"required"`
	ConversationID *uuid.UUID `json:"conversation_id"`
	EmployeeID     *uuid.UUID `json:"employee_id"`
	LocationID     *uuid.UUID `json:"location_id"`
	CustomerName   string     `json:"customer_name" binding:"required,max=255"`
	CustomerPhone  string     `json:"customer_phone" binding:"max=50"`
	Title          string     `json:"title" binding:"max=255"`
	Notes          string     `json:"notes" binding:"max=2000"`
	StartsAt       time.Time  `json:"starts_at" binding:"required"`
	EndsAt         time.Time  `json:"ends_at" binding:"required"`
}

// ===========================================================================
// Handlers
// ===========================================================================

// SendMessage AI reply through the conversation's channel
// POST /internal/v1/messages/send
func (h *InternalHandler) SendMessage(c *gin.Context) {
	var req InternalSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "conversation_id gerekli")
		return
	}
	ctx := c.Request.Context()

	conv, err := h.messageService.FindConversation(ctx, req.ConversationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if conv.AIPaused {
		respondError(c, h.logger, apperrors.New(apperrors.ErrConflict, "bu konuşmada yapay zeka duraklatıldı"))
		return
	}

	msg, err := h.messageService.SendOutbound(ctx, conv, services.SendInput{
		Text:       req.Text,
		Attachment: req.Attachment,
		SenderType: models.SenderAI,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(msg))
}

// History recent messages, oldest first
// GET /internal/v1/conversations/:id/messages?limit=20
func (h *InternalHandler) History(c *gin.Context) {
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit pozitif bir sayı olmalı")
			return
		}
		limit = n
	}

	messages, err := h.messageService.History(c.Request.Context(), conversationID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(messages))
}

// SaveSummary POST /internal/v1/conversations/:id/summary
func (h *InternalHandler) SaveSummary(c *gin.Context) {
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "özet gerekli")
		return
	}
	h.saveSummary(c, conversationID, req.Summary)
}

// N8NSummary summary workflow callback
// POST /webhooks/n8n/summary
func (h *InternalHandler) N8NSummary(c *gin.Context) {
	var req N8NSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "conversation_id ve özet gerekli")
		return
	}
	h.saveSummary(c, req.ConversationID, req.Summary)
}

func (h *InternalHandler) saveSummary(c *gin.Context, conversationID uuid.UUID, summary string) {
	conv, err := h.messageService.SaveSummary(c.Request.Context(), conversationID, summary)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(conv))
}

// Handoff pauses the AI and notifies the team
// POST /internal/v1/conversations/:id/handoff
func (h *InternalHandler) Handoff(c *gin.Context) {
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req HandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "geçersiz devir isteği")
		return
	}

	conv, err := h.messageService.Handoff(c.Request.Context(), conversationID, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(conv))
}

// TenantContext business profile for the AI prompt
// GET /internal/v1/tenants/:id/context
func (h *InternalHandler) TenantContext(c *gin.Context) {
	tenantID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	out, err := h.agentService.Context(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(out))
}

// CreateAppointment booking made by the AI
// POST /internal/v1/appointments
func (h *InternalHandler) CreateAppointment(c *gin.Context) {
	var req InternalAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "tenant_id, müşteri adı, başlangıç ve bitiş zamanı gerekli")
		return
	}
	ctx := c.Request.Context()

	if req.ConversationID != nil {
		conv, err := h.messageService.FindConversation(ctx, *req.ConversationID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if conv.TenantID != req.TenantID {
			respondError(c, h.logger, apperrors.New(apperrors.ErrNotFound, "konuşma bulunamadı"))
			return
		}
	}

	appt, err := h.calendarService.CreateAppointment(ctx, req.TenantID, services.AppointmentInput{
		EmployeeID:     req.EmployeeID,
		LocationID:     req.LocationID,
		ConversationID: req.ConversationID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		Title:          req.Title,
		Notes:          req.Notes,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Source:         models.SourceAI,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(appt))
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes mounts the internal API on a group guarded by InternalAPIKey
func (h *InternalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/messages/send", h.SendMessage)
	rg.GET("/conversations/:id/messages", h.History)
	rg.POST("/conversations/:id/summary", h.SaveSummary)
	rg.POST("/conversations/:id/handoff", h.Handoff)
	rg.GET("/tenants/:id/context", h.TenantContext)
	rg.POST("/appointments", h.CreateAppointment)
}

// RegisterWebhookRoutes n8n callbacks on the /webhooks group, same secret
func (h *InternalHandler) RegisterWebhookRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	rg.POST("/n8n/summary", guard, h.N8NSummary)
}
