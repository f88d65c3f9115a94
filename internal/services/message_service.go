package services

import (
	"context"

	"uppypro/internal/channel"
	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Message Service Interface
// Inbound flow: dedup -> find/create conversation -> save -> publish -> AI forward
// ===========================================================================

// ProcessResult outcome of ProcessInbound
type ProcessResult struct {
	// Duplicate the channel message id was already stored, nothing changed
	Duplicate bool `json:"duplicate"`

	ConversationID      uuid.UUID `json:"conversation_id"`
	ConversationCreated bool      `json:"conversation_created"`

	MessageID uuid.UUID `json:"message_id"`

	// Forwarded the message was handed to the AI webhook
	Forwarded bool `json:"forwarded"`
}

// SendInput outbound message
type SendInput struct {
	Text         string
	Attachment   *models.Attachment
	SenderType   models.SenderType
	SenderUserID *uuid.UUID
}

// MessageService interface
type MessageService interface {
	// ProcessInbound stores a customer message received on conn
	ProcessInbound(ctx context.Context, conn *models.ChannelConnection, inbound *channel.InboundMessage) (*ProcessResult, error)

	// ApplyStatus advances the delivery status of an outbound message.
	// Returns false for unknown messages and stale updates.
	ApplyStatus(ctx context.Context, update *channel.StatusUpdate) (bool, error)

	// SendOutbound sends through the conversation's channel and persists the OUT message.
	// A channel failure persists the message as failed and returns ErrExternal.
	SendOutbound(ctx context.Context, conv *models.Conversation, in SendInput) (*models.Message, error)

	// FindConversation without tenant scope, for the internal API
	FindConversation(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error)

	// History last limit messages, oldest first
	History(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)

	// SaveSummary stores the AI written summary
	SaveSummary(ctx context.Context, conversationID uuid.UUID, summary string) (*models.Conversation, error)

	// Handoff pauses the AI and notifies the team
	Handoff(ctx context.Context, conversationID uuid.UUID, reason string) (*models.Conversation, error)

	// Wait blocks until background AI forwards and profile lookups finish
	Wait()
}
