package services

import (
	"context"

	"uppypro/internal/models"
)

// ===========================================================================
// Inbox Webhook Service Interface
// Meta deliveries (WhatsApp Cloud API, Instagram messaging)
// ===========================================================================

// MetaDeliveryResult what one Meta delivery carried and what was done with it
type MetaDeliveryResult struct {
	Channel   models.ChannelType
	Duplicate bool
	Messages  int
	Statuses  int
	// Skipped entries addressed to unknown or disconnected connections
	Skipped int
}

// InboxWebhookService turns verified Meta deliveries into inbox messages
type InboxWebhookService interface {
	// HandleMeta processes a delivery whose signature was already verified.
	// Unknown objects and unknown connections are acknowledged without effect.
	HandleMeta(ctx context.Context, body []byte) (*MetaDeliveryResult, error)
}
