package realtime

import (
	"time"

	"github.com/google/uuid"
)

// ===========================================================================
// Realtime events pushed to the dashboard inbox
// ===========================================================================

// Event types
const (
	EventMessageCreated      = "message.created"
	EventMessageStatus       = "message.status"
	EventConversationUpdated = "conversation.updated"
	EventNotificationCreated = "notification.created"
)

// Publisher pushes tenant scoped events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishMessage(tenantID uuid.UUID, event *MessageEvent) error
	PublishConversation(tenantID uuid.UUID, event *ConversationEvent) error
	PublishNotification(tenantID uuid.UUID, event *NotificationEvent) error
}

// Envelope wire format: {"type": "...", "data": {...}}
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MessageEvent new message or delivery status change
type MessageEvent struct {
	Type           string    `json:"-"`
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Direction      string    `json:"direction"`
	SenderType     string    `json:"sender_type"`
	Text           string    `json:"text"`
	MessageType    string    `json:"message_type"`
	DeliveryStatus string    `json:"delivery_status"`
	SentAt         time.Time `json:"sent_at"`

	Channel      string `json:"channel,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// ConversationEvent conversation state change
type ConversationEvent struct {
	ConversationID     uuid.UUID  `json:"conversation_id"`
	Status             string     `json:"status,omitempty"`
	AssignedTo         *uuid.UUID `json:"assigned_to,omitempty"`
	AIPaused           bool       `json:"ai_paused"`
	UnreadCount        int        `json:"unread_count"`
	LastMessagePreview string     `json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
}

// NotificationEvent new notification. A nil UserID reaches every member.
type NotificationEvent struct {
	NotificationID uuid.UUID  `json:"notification_id"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	Kind           string     `json:"kind"`
	Title          string     `json:"title"`
	Body           string     `json:"body,omitempty"`
	Link           string     `json:"link,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// messageEventType defaults to message.created
func messageEventType(e *MessageEvent) string {
	if e.Type == "" {
		return EventMessageCreated
	}
	return e.Type
}

// ===========================================================================
// Noop Publisher
// ===========================================================================

// NoopPublisher discards events (realtime.driver=none)
type NoopPublisher struct{}

// NewNoopPublisher creates a NoopPublisher
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (n *NoopPublisher) PublishMessage(tenantID uuid.UUID, event *MessageEvent) error {
	return nil
}

func (n *NoopPublisher) PublishConversation(tenantID uuid.UUID, event *ConversationEvent) error {
	return nil
}

func (n *NoopPublisher) PublishNotification(tenantID uuid.UUID, event *NotificationEvent) error {
	return nil
}
