package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ===========================================================================
// Message
// One message in a conversation, inbound from the customer or outbound
// from an agent, the AI or the system
// ===========================================================================

// MessageDirection direction of the message
type MessageDirection string

const (
	// DirectionIn from the customer
	DirectionIn MessageDirection = "IN"

	// DirectionOut to the customer
	DirectionOut MessageDirection = "OUT"
)

// SenderType who wrote the message
type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
	SenderAI       SenderType = "ai"
	SenderSystem   SenderType = "system"
)

// MessageType content kind as reported by the channel
type MessageType string

const (
	MessageText        MessageType = "text"
	MessageImage       MessageType = "image"
	MessageAudio       MessageType = "audio"
	MessageVideo       MessageType = "video"
	MessageDocument    MessageType = "document"
	MessageSticker     MessageType = "sticker"
	MessageLocation    MessageType = "location"
	MessageUnsupported MessageType = "unsupported"
)

// DeliveryStatus delivery state of an outbound message
type DeliveryStatus string

const (
	DeliveryReceived  DeliveryStatus = "received"
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

func (s DeliveryStatus) rank() int {
	switch s {
	case DeliveryPending:
		return 1
	case DeliverySent:
		return 2
	case DeliveryDelivered:
		return 3
	case DeliveryRead:
		return 4
	}
	return 0
}

// CanAdvanceTo reports whether a status update from s to next moves forward.
// A message that reached the customer cannot fail afterwards.
func (s DeliveryStatus) CanAdvanceTo(next DeliveryStatus) bool {
	if s == DeliveryFailed {
		return false
	}
	if next == DeliveryFailed {
		return s.rank() < DeliveryDelivered.rank()
	}
	return next.rank() > s.rank()
}

// Attachment media attached to a message
type Attachment struct {
	Type     string `json:"type"`
	URL      string `json:"url,omitempty"`
	MediaID  string `json:"media_id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// Attachments JSON column
type Attachments []Attachment

// Value implements driver.Valuer
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]Attachment{})
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *Attachments) Scan(value interface{}) error {
	if value == nil {
		*a = Attachments{}
		return nil
	}
	return scanJSON(value, a)
}

// Message conversation message
type Message struct {
	BaseModel

	TenantID       uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_message_conversation_created" json:"conversation_id"`

	Direction  MessageDirection `gorm:"size:3;not null" json:"direction"`
	SenderType SenderType       `gorm:"size:20;not null" json:"sender_type"`

	// SenderUserID set when an agent wrote the message
	SenderUserID *uuid.UUID `gorm:"type:uuid" json:"sender_user_id,omitempty"`

	Text        string      `gorm:"type:text" json:"text"`
	MessageType MessageType `gorm:"size:20;not null;default:'text'" json:"message_type"`
	Attachments Attachments `gorm:"type:jsonb" json:"attachments"`

	// ChannelMessageID wamid or Instagram mid, dedup key
	ChannelMessageID *string `gorm:"size:255;uniqueIndex" json:"channel_message_id,omitempty"`

	DeliveryStatus DeliveryStatus `gorm:"size:20;not null" json:"delivery_status"`
	Error          *string        `gorm:"type:text" json:"error,omitempty"`

	// SentAt timestamp reported by the channel (inbound) or send time (outbound)
	SentAt time.Time `gorm:"not null;index:idx_message_conversation_created" json:"sent_at"`
}

// TableName returns the table name
func (Message) TableName() string {
	return "messages"
}

// IsInbound from the customer
func (m *Message) IsInbound() bool { return m.Direction == DirectionIn }

// IsOutbound to the customer
func (m *Message) IsOutbound() bool { return m.Direction == DirectionOut }

// HasAttachments reports whether media is attached
func (m *Message) HasAttachments() bool { return len(m.Attachments) > 0 }

// Preview text for the inbox list
func (m *Message) Preview() string {
	if m.Text != "" {
		return m.Text
	}
	if m.HasAttachments() {
		return "[" + m.Attachments[0].Type + "]"
	}
	return "[" + string(m.MessageType) + "]"
}

// ApplyStatus advances the delivery status, returns false for stale updates
func (m *Message) ApplyStatus(next DeliveryStatus, errMsg string) bool {
	if !m.DeliveryStatus.CanAdvanceTo(next) {
		return false
	}
	m.DeliveryStatus = next
	if next == DeliveryFailed && errMsg != "" {
		m.Error = &errMsg
	}
	return true
}
