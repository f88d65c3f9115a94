package repositories

import (
	"context"

	"uppypro/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ===========================================================================
// Message Repository GORM Implementation
// ===========================================================================

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&msg).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &msg, nil
}

func (r *messageRepo) FindByChannelMessageID(ctx context.Context, channelMessageID string) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).
		Where("channel_message_id = ?", channelMessageID).
		First(&msg).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &msg, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, opts FindOptions) ([]models.Message, int64, error) {
	if opts.OrderBy == "" {
		opts.OrderBy = "sent_at"
		opts.OrderDir = "asc"
	}
	opts.SetDefaults()
	opts.Restrict("sent_at", "sent_at", "created_at")

	var messages []models.Message
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ?", conversationID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := opts.apply(query).Find(&messages).Error
	return messages, total, err
}

func (r *messageRepo) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	return translateError(r.db.WithContext(ctx).Create(msg).Error)
}

func (r *messageRepo) Update(ctx context.Context, msg *models.Message) error {
	return translateError(r.db.WithContext(ctx).Save(msg).Error)
}
