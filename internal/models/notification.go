package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationType kind of in-app notification
type NotificationType string

const (
	NotifyNewConversation    NotificationType = "new_conversation"
	NotifyAIHandoff          NotificationType = "ai_handoff"
	NotifyAppointmentBooked  NotificationType = "appointment_booked"
	NotifySubscriptionStatus NotificationType = "subscription_status"
	NotifyPaymentFailed      NotificationType = "payment_failed"
	NotifyPaymentSucceeded   NotificationType = "payment_succeeded"
	NotifyMemberJoined       NotificationType = "member_joined"
	NotifyChannelError       NotificationType = "channel_error"
)

// Notification in-app notification. A nil UserID addresses every member of the tenant.
type Notification struct {
	BaseModel

	TenantID uuid.UUID  `gorm:"type:uuid;not null;index:idx_notification_tenant_user" json:"tenant_id"`
	UserID   *uuid.UUID `gorm:"type:uuid;index:idx_notification_tenant_user" json:"user_id,omitempty"`

	Type  NotificationType `gorm:"size:50;not null" json:"type"`
	Title string           `gorm:"size:255;not null" json:"title"`
	Body  string           `gorm:"type:text" json:"body"`
	Link  string           `gorm:"size:500" json:"link,omitempty"`

	Data datatypes.JSONMap `json:"data,omitempty"`

	ReadAt *time.Time `gorm:"index" json:"read_at,omitempty"`
}

// TableName returns the table name
func (Notification) TableName() string {
	return "notifications"
}

// IsRead reports whether the notification was read
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// MarkRead marks the notification as read once
func (n *Notification) MarkRead(at time.Time) {
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
}
