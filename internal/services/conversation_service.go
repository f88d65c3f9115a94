package services

import (
	"context"

	"uppypro/internal/dto"
	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Conversation Service Interface
// Dashboard side of the inbox
// ===========================================================================

// ConversationFilter inbox list filter, zero values are ignored
type ConversationFilter struct {
	Status     models.ConversationStatus
	Channel    models.ChannelType
	AssignedTo *uuid.UUID
	Unassigned bool
	AIPaused   *bool
	Search     string
}

// UpdateConversationInput partial update, nil fields are untouched
type UpdateConversationInput struct {
	Status *models.ConversationStatus

	// AssignedTo new assignee, Unassign clears it
	AssignedTo *uuid.UUID
	Unassign   bool
}

// ConversationService interface
type ConversationService interface {
	List(ctx context.Context, tenantID uuid.UUID, filter ConversationFilter, page dto.PaginationRequest) ([]models.Conversation, int64, error)

	Get(ctx context.Context, tenantID, conversationID uuid.UUID) (*models.Conversation, error)

	Update(ctx context.Context, tenantID, conversationID uuid.UUID, in UpdateConversationInput) (*models.Conversation, error)

	MarkRead(ctx context.Context, tenantID, conversationID uuid.UUID) error

	// SetAIPaused pauses or resumes AI forwarding for one conversation
	SetAIPaused(ctx context.Context, tenantID, conversationID uuid.UUID, paused bool, reason string) (*models.Conversation, error)

	// ListMessages chronological page of messages
	ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID, page dto.PaginationRequest) ([]models.Message, int64, error)

	// SendMessage agent reply from the dashboard
	SendMessage(ctx context.Context, tenantID, conversationID, userID uuid.UUID, text string, attachment *models.Attachment) (*models.Message, error)
}
