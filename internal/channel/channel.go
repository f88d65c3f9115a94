package channel

import (
	"context"
	"time"

	"uppypro/internal/models"
)

// ===========================================================================
// Channel interfaces
// A channel is a Meta messaging product (WhatsApp Cloud API, Instagram DM)
// ===========================================================================

// InboundMessage customer message normalized from a webhook payload
type InboundMessage struct {
	Channel models.ChannelType

	// ExternalAccountID business side id: WhatsApp phone_number_id or Instagram account id.
	// Used to find the tenant's ChannelConnection.
	ExternalAccountID string

	// SenderID customer handle: WhatsApp wa_id or Instagram scoped id (IGSID)
	SenderID   string
	SenderName string

	// ChannelMessageID wamid or Instagram mid, dedup key
	ChannelMessageID string

	Text        string
	MessageType models.MessageType
	Attachments []models.Attachment

	Timestamp time.Time
}

// StatusUpdate delivery receipt for a message we sent
type StatusUpdate struct {
	Channel           models.ChannelType
	ExternalAccountID string
	ChannelMessageID  string
	Status            models.DeliveryStatus
	Timestamp         time.Time

	// Error set when Status is failed
	Error string
}

// Batch everything one webhook delivery carried
type Batch struct {
	Messages []InboundMessage
	Statuses []StatusUpdate
}

// IsEmpty no messages and no statuses
func (b *Batch) IsEmpty() bool {
	return b == nil || (len(b.Messages) == 0 && len(b.Statuses) == 0)
}

// OutboundMessage message sent to a customer
type OutboundMessage struct {
	RecipientID string
	Text        string

	// Attachment optional media sent by URL
	Attachment *models.Attachment
}

// SendResult channel side id of a sent message
type SendResult struct {
	ChannelMessageID string
}

// ===========================================================================
// Interfaces
// ===========================================================================

// Normalizer parses a raw webhook body into a Batch
type Normalizer interface {
	Normalize(ctx context.Context, body []byte) (*Batch, error)
}

// Sender delivers a message through the tenant's connection
type Sender interface {
	Send(ctx context.Context, conn *models.ChannelConnection, msg *OutboundMessage) (*SendResult, error)
}

// SignatureVerifier checks the webhook signature header against the raw body
type SignatureVerifier interface {
	Verify(signature string, body []byte, secret string) bool
}

// Channel adapter for one messaging product
type Channel interface {
	Normalizer
	Sender
	SignatureVerifier

	Type() models.ChannelType
}
