package repositories

import (
	"context"
	"time"

	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ===========================================================================
// Conversation Repository GORM Implementation
// ===========================================================================

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("ChannelConnection").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&conv).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &conv, nil
}

func (r *conversationRepo) FindAnyByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Preload("ChannelConnection").
		First(&conv, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &conv, nil
}

func (r *conversationRepo) FindByCustomer(ctx context.Context, connectionID uuid.UUID, customerHandle string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("channel_connection_id = ? AND customer_handle = ?", connectionID, customerHandle).
		First(&conv).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &conv, nil
}

func (r *conversationRepo) List(ctx context.Context, tenantID uuid.UUID, opts FindOptions) ([]models.Conversation, int64, error) {
	if opts.OrderBy == "" {
		opts.OrderBy = "last_message_at"
	}
	opts.SetDefaults()
	opts.Restrict("last_message_at", "last_message_at", "created_at", "unread_count")

	var conversations []models.Conversation
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("tenant_id = ?", tenantID)

	if status, ok := opts.filter("status"); ok {
		query = query.Where("status = ?", status)
	}
	if ch, ok := opts.filter("channel"); ok {
		query = query.Where("channel = ?", ch)
	}
	if assignedTo, ok := opts.filter("assigned_to"); ok {
		query = query.Where("assigned_to = ?", assignedTo)
	}
	if unassigned, ok := opts.filter("unassigned"); ok && unassigned.(bool) {
		query = query.Where("assigned_to IS NULL")
	}
	if paused, ok := opts.filter("ai_paused"); ok {
		query = query.Where("ai_paused = ?", paused)
	}
	if search, ok := opts.filter("search"); ok {
		p := likePattern(search.(string))
		query = query.Where("(LOWER(customer_name) LIKE ? ESCAPE '\\' OR LOWER(customer_handle) LIKE ? ESCAPE '\\')", p, p)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := opts.apply(query).Find(&conversations).Error
	return conversations, total, err
}

func (r *conversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	return translateError(r.db.WithContext(ctx).Omit("ChannelConnection").Create(conv).Error)
}

func (r *conversationRepo) Update(ctx context.Context, conv *models.Conversation, columns ...string) error {
	if len(columns) == 0 {
		return apperrors.New(apperrors.ErrInvalidInput, "no conversation columns to update")
	}
	res := r.db.WithContext(ctx).
		Model(conv).
		Select(columns).
		Updates(conv)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	// counters may have moved since conv was read
	return translateError(r.db.WithContext(ctx).
		Preload("ChannelConnection").
		First(conv, "id = ?", conv.ID).Error)
}

func (r *conversationRepo) RecordInbound(ctx context.Context, id uuid.UUID, at time.Time, preview string) error {
	preview = models.Truncate(preview, 200)
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"unread_count":         gorm.Expr("unread_count + 1"),
			"last_message_at":      at,
			"last_message_preview": preview,
			"status":               models.StatusOpen,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *conversationRepo) RecordOutbound(ctx context.Context, id uuid.UUID, at time.Time, preview string, resetUnread bool) error {
	updates := map[string]interface{}{
		"last_message_at":      at,
		"last_message_preview": models.Truncate(preview, 200),
	}
	if resetUnread {
		updates["unread_count"] = 0
	}
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *conversationRepo) MarkRead(ctx context.Context, tenantID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("unread_count", 0)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *conversationRepo) CountOpen(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("tenant_id = ? AND status = ?", tenantID, models.StatusOpen).
		Count(&count).Error
	return count, err
}

func (r *conversationRepo) SumUnread(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("tenant_id = ?", tenantID).
		Select("COALESCE(SUM(unread_count), 0)").
		Scan(&sum).Error
	return sum, err
}
