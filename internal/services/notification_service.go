package services

import (
	"context"

	"uppypro/internal/dto"
	"uppypro/internal/models"

	"github.com/google/uuid"
)

// NotifyInput notification to create. A nil UserID addresses every member of the tenant.
type NotifyInput struct {
	TenantID uuid.UUID
	UserID   *uuid.UUID
	Type     models.NotificationType
	Title    string
	Body     string
	Link     string
	Data     map[string]interface{}
}

// NotificationService in-app notifications, optionally mirrored by email
type NotificationService interface {
	// Notify persists the notification and publishes it realtime
	Notify(ctx context.Context, in NotifyInput) (*models.Notification, error)

	// NotifyByEmail is Notify plus an email to the tenant's billing contact or owners
	NotifyByEmail(ctx context.Context, in NotifyInput) (*models.Notification, error)

	List(ctx context.Context, tenantID, userID uuid.UUID, unreadOnly bool, page dto.PaginationRequest) ([]models.Notification, int64, error)

	CountUnread(ctx context.Context, tenantID, userID uuid.UUID) (int64, error)

	MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID) error

	MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error)
}
