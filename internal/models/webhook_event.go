package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ===========================================================================
// WebhookEvent
// Deliveries from third parties, keyed by (provider, event_key) for idempotency
// ===========================================================================

// WebhookProvider sender of the webhook
type WebhookProvider string

const (
	WebhookMeta   WebhookProvider = "meta"
	WebhookIyzico WebhookProvider = "iyzico"
	WebhookPayTR  WebhookProvider = "paytr"
	WebhookN8N    WebhookProvider = "n8n"
)

// WebhookEventStatus processing state
type WebhookEventStatus string

const (
	WebhookStatusPending    WebhookEventStatus = "pending"
	WebhookStatusProcessing WebhookEventStatus = "processing"
	WebhookStatusProcessed  WebhookEventStatus = "processed"

	// WebhookStatusIgnored accepted but not applied (stale or unknown reference)
	WebhookStatusIgnored WebhookEventStatus = "ignored"

	WebhookStatusFailed WebhookEventStatus = "failed"
)

// WebhookEvent stored delivery
type WebhookEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Provider WebhookProvider `gorm:"size:20;not null;uniqueIndex:idx_webhook_provider_key" json:"provider"`
	EventKey string          `gorm:"size:255;not null;uniqueIndex:idx_webhook_provider_key" json:"event_key"`

	EventType string            `gorm:"size:100" json:"event_type"`
	Payload   datatypes.JSONMap `json:"payload"`

	Status       WebhookEventStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RetryCount   int                `gorm:"default:0" json:"retry_count"`
	ErrorMessage *string            `gorm:"type:text" json:"error_message,omitempty"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// BeforeCreate generates the UUID if missing
func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsDone processed or ignored, a redelivery is a duplicate
func (e *WebhookEvent) IsDone() bool {
	return e.Status == WebhookStatusProcessed || e.Status == WebhookStatusIgnored
}

// MarkProcessing claims the event
func (e *WebhookEvent) MarkProcessing() {
	e.Status = WebhookStatusProcessing
}

// MarkProcessed marks success
func (e *WebhookEvent) MarkProcessed() {
	e.Status = WebhookStatusProcessed
	now := time.Now()
	e.ProcessedAt = &now
	e.ErrorMessage = nil
}

// MarkIgnored marks the event as accepted without effect
func (e *WebhookEvent) MarkIgnored(reason string) {
	e.Status = WebhookStatusIgnored
	now := time.Now()
	e.ProcessedAt = &now
	if reason != "" {
		e.ErrorMessage = &reason
	}
}

// MarkFailed marks failure and counts the attempt
func (e *WebhookEvent) MarkFailed(err error) {
	e.Status = WebhookStatusFailed
	errMsg := err.Error()
	e.ErrorMessage = &errMsg
	e.RetryCount++
}

// CanRetry failed with attempts left
func (e *WebhookEvent) CanRetry(maxRetries int) bool {
	return e.Status == WebhookStatusFailed && e.RetryCount < maxRetries
}
