package handlers

import (
	"net/http"
	"strings"

	"uppypro/internal/dto"
	"uppypro/internal/models"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Conversation Handler
// Inbox API: conversations and their messages
// ===========================================================================

// ConversationHandler inbox endpoints
type ConversationHandler struct {
	conversationService services.ConversationService
	logger              *zap.Logger
}

// NewConversationHandler creates the handler
func NewConversationHandler(conversationService services.ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		logger:              logger,
	}
}

// ===========================================================================
// Request DTOs
// ===========================================================================

// ListConversationsQuery query params of the inbox list
type ListConversationsQuery struct {
	Status     string `form:"status" binding:"omitempty,oneof=open closed"`
	Channel    string `form:"channel" binding:"omitempty,oneof=whatsapp instagram"`
	AssignedTo string `form:"assigned_to"`
	Search     string `form:"q" binding:"max=100"`
}

// UpdateConversationBody body of PATCH /conversations/:id
type UpdateConversationBody struct {
	Status     *string    `json:"status" binding:"omitempty,oneof=open closed"`
	AssignedTo *uuid.UUID `json:"assigned_to"`
	Unassign   bool       `json:"unassign"`
}

// AIPauseBody body of POST /conversations/:id/ai-pause
type AIPauseBody struct {
	Paused *bool  `json:"paused" binding:"required"`
	Reason string `json:"reason" binding:"max=255"`
}

// SendMessageBody body of POST /conversations/:id/messages
type SendMessageBody struct {
	Text       string             `json:"text" binding:"max=4096"`
	Attachment *models.Attachment `json:"attachment"`
}

// ===========================================================================
// Handlers
// ===========================================================================

// List inbox of the active tenant
// GET /api/v1/conversations?status=open&channel=whatsapp&assigned_to=me&ai_paused=true&q=ali&page=1&limit=20
func (h *ConversationHandler) List(c *gin.Context) {
	tenantID, userID, ok := scope(c)
	if !ok {
		return
	}

	var query ListConversationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "geçersiz filtre")
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	filter := services.ConversationFilter{
		Status:   models.ConversationStatus(query.Status),
		Channel:  models.ChannelType(query.Channel),
		AIPaused: queryBool(c, "ai_paused"),
		Search:   strings.TrimSpace(query.Search),
	}
	switch query.AssignedTo {
	case "":
	case "me":
		filter.AssignedTo = &userID
	case "none":
		filter.Unassigned = true
	default:
		assignee, err := uuid.Parse(query.AssignedTo)
		if err != nil {
			badRequest(c, "assigned_to geçersiz")
			return
		}
		filter.AssignedTo = &assignee
	}

	conversations, total, err := h.conversationService.List(c.Request.Context(), tenantID, filter, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessWithMeta(conversations, dto.NewMeta(page.Page, page.Limit, total)))
}

// Get conversation detail
// GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	conversation, err := h.conversationService.Get(c.Request.Context(), tenantID, conversationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(conversation))
}

// Update status or assignee
// PATCH /api/v1/conversations/:id
func (h *ConversationHandler) Update(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var body UpdateConversationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "durum open veya closed olmalı")
		return
	}

	in := services.UpdateConversationInput{
		AssignedTo: body.AssignedTo,
		Unassign:   body.Unassign,
	}
	if body.Status != nil {
		status := models.ConversationStatus(*body.Status)
		in.Status = &status
	}

	conversation, err := h.conversationService.Update(c.Request.Context(), tenantID, conversationID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(conversation))
}

// MarkRead resets the unread counter
// POST /api/v1/conversations/:id/read
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.conversationService.MarkRead(c.Request.Context(), tenantID, conversationID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(gin.H{"unread_count": 0}))
}

// SetAIPaused pauses or resumes the AI for one conversation
// POST /api/v1/conversations/:id/ai-pause
func (h *ConversationHandler) SetAIPaused(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var body AIPauseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "paused alanı gerekli")
		return
	}

	conversation, err := h.conversationService.SetAIPaused(c.Request.Context(), tenantID, conversationID, *body.Paused, body.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(conversation))
}

// ListMessages chronological message page
// GET /api/v1/conversations/:id/messages?page=1&limit=50
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	messages, total, err := h.conversationService.ListMessages(c.Request.Context(), tenantID, conversationID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessWithMeta(messages, dto.NewMeta(page.Page, page.Limit, total)))
}

// SendMessage agent reply through the conversation's channel
// POST /api/v1/conversations/:id/messages
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	tenantID, userID, ok := scope(c)
	if !ok {
		return
	}
	conversationID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var body SendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "mesaj en fazla 4096 karakter olabilir")
		return
	}
	if strings.TrimSpace(body.Text) == "" && body.Attachment == nil {
		badRequest(c, "mesaj metni veya ek gerekli")
		return
	}

	message, err := h.conversationService.SendMessage(c.Request.Context(), tenantID, conversationID, userID, body.Text, body.Attachment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Success(message))
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes registers inbox routes
func (h *ConversationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	conversations := rg.Group("/conversations")
	{
		conversations.GET("", h.List)
		conversations.GET("/:id", h.Get)
		conversations.PATCH("/:id", h.Update)
		conversations.POST("/:id/read", h.MarkRead)
		conversations.POST("/:id/ai-pause", h.SetAIPaused)
		conversations.GET("/:id/messages", h.ListMessages)
		conversations.POST("/:id/messages", h.SendMessage)
	}
}
