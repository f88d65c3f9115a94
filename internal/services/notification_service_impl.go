package services

import (
	"context"
	"strings"

	"uppypro/internal/dto"
	"uppypro/internal/models"
	"uppypro/internal/notify"
	"uppypro/internal/realtime"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type notificationService struct {
	repos       *repositories.Repositories
	publisher   realtime.Publisher
	mailer      notify.Mailer
	frontendURL string
	logger      *zap.Logger
}

// NewNotificationService creates the NotificationService
func NewNotificationService(
	repos *repositories.Repositories,
	publisher realtime.Publisher,
	mailer notify.Mailer,
	frontendURL string,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		repos:       repos,
		publisher:   publisher,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger.Named("notifications"),
	}
}

func (s *notificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	n := &models.Notification{
		TenantID: in.TenantID,
		UserID:   in.UserID,
		Type:     in.Type,
		Title:    in.Title,
		Body:     in.Body,
		Link:     in.Link,
	}
	if len(in.Data) > 0 {
		n.Data = datatypes.JSONMap(in.Data)
	}
	if err := s.repos.Notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		event := &realtime.NotificationEvent{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Kind:           string(n.Type),
			Title:          n.Title,
			Body:           n.Body,
			Link:           n.Link,
			CreatedAt:      n.CreatedAt,
		}
		go func() {
			if err := s.publisher.PublishNotification(in.TenantID, event); err != nil {
				s.logger.Warn("failed to publish notification", zap.Error(err))
			}
		}()
	}

	return n, nil
}

func (s *notificationService) NotifyByEmail(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	n, err := s.Notify(ctx, in)
	if err != nil {
		return nil, err
	}

	tenant, err := s.repos.Tenants.FindByID(ctx, in.TenantID)
	if err != nil {
		s.logger.Warn("notification email skipped, tenant lookup failed", zap.Error(err))
		return n, nil
	}

	to, err := s.recipients(ctx, tenant)
	if err != nil || len(to) == 0 {
		s.logger.Warn("notification email skipped, no recipients",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
		return n, nil
	}

	link := ""
	if in.Link != "" {
		link = s.frontendURL + in.Link
	}

	var email notify.Email
	if in.Type == models.NotifyPaymentFailed {
		email = notify.PaymentFailedEmail(to, tenant.Name, link)
	} else {
		email = notify.NotificationEmail(to, in.Title, in.Body, link)
	}

	if _, err := s.mailer.Send(ctx, email); err != nil {
		s.logger.Warn("notification email failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("type", string(in.Type)),
			zap.Error(err),
		)
	}
	return n, nil
}

// recipients notify_email from the tenant settings, else the owners
func (s *notificationService) recipients(ctx context.Context, tenant *models.Tenant) ([]string, error) {
	if addr := strings.TrimSpace(tenant.Settings.NotifyEmail); addr != "" {
		return []string{addr}, nil
	}
	return s.repos.Members.OwnerEmails(ctx, tenant.ID)
}

func (s *notificationService) List(ctx context.Context, tenantID, userID uuid.UUID, unreadOnly bool, page dto.PaginationRequest) ([]models.Notification, int64, error) {
	opts := findOptions(page, "created_at", map[string]interface{}{"unread": unreadOnly})
	return s.repos.Notifications.ListForUser(ctx, tenantID, userID, opts)
}

func (s *notificationService) CountUnread(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	return s.repos.Notifications.CountUnread(ctx, tenantID, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID) error {
	err := s.repos.Notifications.MarkRead(ctx, tenantID, userID, id, timeNow())
	return notFound(err, "bildirim bulunamadı")
}

func (s *notificationService) MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	return s.repos.Notifications.MarkAllRead(ctx, tenantID, userID, timeNow())
}
