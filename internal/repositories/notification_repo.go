package repositories

import (
	"context"
	"time"

	"uppypro/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ===========================================================================
// Notification Repository GORM Implementation
// ===========================================================================

type notificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

// visibleTo notifications addressed to userID or to the whole tenant
func visibleTo(db *gorm.DB, tenantID, userID uuid.UUID) *gorm.DB {
	return db.Where("tenant_id = ? AND (user_id IS NULL OR user_id = ?)", tenantID, userID)
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListForUser(ctx context.Context, tenantID, userID uuid.UUID, opts FindOptions) ([]models.Notification, int64, error) {
	opts.SetDefaults()
	opts.Restrict("created_at", "created_at")

	var items []models.Notification
	var total int64

	query := visibleTo(r.db.WithContext(ctx).Model(&models.Notification{}), tenantID, userID)
	if unread, ok := opts.filter("unread"); ok && unread.(bool) {
		query = query.Where("read_at IS NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := opts.apply(query).Find(&items).Error
	return items, total, err
}

func (r *notificationRepo) CountUnread(ctx context.Context, tenantID, userID uuid.UUID) (int64, error) {
	var count int64
	err := visibleTo(r.db.WithContext(ctx).Model(&models.Notification{}), tenantID, userID).
		Where("read_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, tenantID, userID, id uuid.UUID, at time.Time) error {
	var n models.Notification
	err := visibleTo(r.db.WithContext(ctx), tenantID, userID).
		Where("id = ?", id).
		First(&n).Error
	if err != nil {
		return translateError(err)
	}
	if n.IsRead() {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, tenantID, userID uuid.UUID, at time.Time) (int64, error) {
	res := visibleTo(r.db.WithContext(ctx).Model(&models.Notification{}), tenantID, userID).
		Where("read_at IS NULL").
		Update("read_at", at)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

