package repositories

import (
	"context"

	"uppypro/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ===========================================================================
// Channel Connection Repository GORM Implementation
// ===========================================================================

type channelConnectionRepo struct {
	db *gorm.DB
}

func NewChannelConnectionRepository(db *gorm.DB) ChannelConnectionRepository {
	return &channelConnectionRepo{db: db}
}

func (r *channelConnectionRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ChannelConnection, error) {
	var conn models.ChannelConnection
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&conn).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &conn, nil
}

func (r *channelConnectionRepo) FindAnyByID(ctx context.Context, id uuid.UUID) (*models.ChannelConnection, error) {
	var conn models.ChannelConnection
	if err := r.db.WithContext(ctx).First(&conn, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &conn, nil
}

func (r *channelConnectionRepo) FindByExternalID(ctx context.Context, channel models.ChannelType, externalID string) (*models.ChannelConnection, error) {
	var conn models.ChannelConnection
	err := r.db.WithContext(ctx).
		Where("channel = ? AND external_id = ?", channel, externalID).
		First(&conn).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &conn, nil
}

func (r *channelConnectionRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelConnection, error) {
	var conns []models.ChannelConnection
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&conns).Error
	return conns, err
}

func (r *channelConnectionRepo) Create(ctx context.Context, conn *models.ChannelConnection) error {
	return translateError(r.db.WithContext(ctx).Create(conn).Error)
}

func (r *channelConnectionRepo) Update(ctx context.Context, conn *models.ChannelConnection) error {
	return translateError(r.db.WithContext(ctx).Save(conn).Error)
}

// ===========================================================================
// Agent Settings Repository
// ===========================================================================

type agentSettingsRepo struct {
	db *gorm.DB
}

func NewAgentSettingsRepository(db *gorm.DB) AgentSettingsRepository {
	return &agentSettingsRepo{db: db}
}

func (r *agentSettingsRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.AgentSettings, error) {
	var settings models.AgentSettings
	if err := r.db.WithContext(ctx).First(&settings, "tenant_id = ?", tenantID).Error; err != nil {
		return nil, translateError(err)
	}
	return &settings, nil
}

func (r *agentSettingsRepo) Save(ctx context.Context, settings *models.AgentSettings) error {
	if settings.ID == uuid.Nil {
		existing, err := r.FindByTenant(ctx, settings.TenantID)
		if err == nil {
			settings.ID = existing.ID
			settings.CreatedAt = existing.CreatedAt
		}
	}
	if settings.ID == uuid.Nil {
		return translateError(r.db.WithContext(ctx).Create(settings).Error)
	}
	return translateError(r.db.WithContext(ctx).Save(settings).Error)
}
