package repositories

import (
	"context"
	"time"

	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Channel Connection Repository Interface
// ===========================================================================

type ChannelConnectionRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ChannelConnection, error)

	// FindAnyByID without tenant scope, for webhook and internal API paths
	FindAnyByID(ctx context.Context, id uuid.UUID) (*models.ChannelConnection, error)

	// FindByExternalID resolves a Meta webhook target (phone_number_id, Instagram id)
	FindByExternalID(ctx context.Context, channel models.ChannelType, externalID string) (*models.ChannelConnection, error)

	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelConnection, error)

	Create(ctx context.Context, conn *models.ChannelConnection) error

	Update(ctx context.Context, conn *models.ChannelConnection) error
}

// ===========================================================================
// Conversation Repository Interface
// ===========================================================================

type ConversationRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Conversation, error)

	// FindAnyByID without tenant scope, for the internal API
	FindAnyByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)

	// FindByCustomer the thread of a customer on a connection
	FindByCustomer(ctx context.Context, connectionID uuid.UUID, customerHandle string) (*models.Conversation, error)

	// List conversations of a tenant.
	// Filters: "status", "channel", "assigned_to" (uuid), "unassigned" (bool),
	// "ai_paused" (bool), "search" (customer name or handle)
	List(ctx context.Context, tenantID uuid.UUID, opts FindOptions) ([]models.Conversation, int64, error)

	Create(ctx context.Context, conv *models.Conversation) error

	// Update writes only the named columns and reloads conv, leaving the
	// inbound counters to RecordInbound/RecordOutbound
	Update(ctx context.Context, conv *models.Conversation, columns ...string) error

	// RecordInbound bumps unread_count and the last message preview, reopening the thread
	RecordInbound(ctx context.Context, id uuid.UUID, at time.Time, preview string) error

	// RecordOutbound updates the last message preview, resetUnread clears unread_count
	RecordOutbound(ctx context.Context, id uuid.UUID, at time.Time, preview string, resetUnread bool) error

	// MarkRead clears unread_count
	MarkRead(ctx context.Context, tenantID, id uuid.UUID) error

	CountOpen(ctx context.Context, tenantID uuid.UUID) (int64, error)

	SumUnread(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// ===========================================================================
// Message Repository Interface
// ===========================================================================

type MessageRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Message, error)

	// FindByChannelMessageID dedup and status lookup by wamid / mid
	FindByChannelMessageID(ctx context.Context, channelMessageID string) (*models.Message, error)

	// ListByConversation messages in chronological order
	ListByConversation(ctx context.Context, conversationID uuid.UUID, opts FindOptions) ([]models.Message, int64, error)

	// ListRecent last limit messages, oldest first
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)

	// Create returns ErrDuplicateEntry when channel_message_id already exists
	Create(ctx context.Context, msg *models.Message) error

	Update(ctx context.Context, msg *models.Message) error
}

// ===========================================================================
// Agent Settings Repository Interface
// ===========================================================================

type AgentSettingsRepository interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.AgentSettings, error)

	// Save inserts or updates the tenant's row
	Save(ctx context.Context, settings *models.AgentSettings) error
}
