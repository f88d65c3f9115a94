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
// Tenant Repository GORM Implementation
// ===========================================================================

type tenantRepo struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &tenant, nil
}

func (r *tenantRepo) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "slug = ?", slug).Error; err != nil {
		return nil, translateError(err)
	}
	return &tenant, nil
}

func (r *tenantRepo) List(ctx context.Context, opts FindOptions) ([]models.Tenant, int64, error) {
	opts.SetDefaults()
	opts.Restrict("created_at", "created_at", "name", "slug")

	var tenants []models.Tenant
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Tenant{})
	if search, ok := opts.filter("search"); ok {
		p := likePattern(search.(string))
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(slug) LIKE ? ESCAPE '\\')", p, p)
	}
	if active, ok := opts.filter("is_active"); ok {
		query = query.Where("is_active = ?", active)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	opts.Preloads = append(opts.Preloads, "Subscription", "Subscription.Plan")
	err := opts.apply(query).Find(&tenants).Error
	return tenants, total, err
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	return translateError(r.db.WithContext(ctx).Create(tenant).Error)
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	return translateError(r.db.WithContext(ctx).Omit("Members", "Subscription").Save(tenant).Error)
}

// ===========================================================================
// Invite Repository
// ===========================================================================

type inviteRepo struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepo{db: db}
}

func (r *inviteRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TenantInvite, error) {
	var invite models.TenantInvite
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&invite).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &invite, nil
}

func (r *inviteRepo) FindByTokenHash(ctx context.Context, hash string) (*models.TenantInvite, error) {
	var invite models.TenantInvite
	err := r.db.WithContext(ctx).
		Preload("Tenant").
		Where("token_hash = ?", hash).
		First(&invite).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &invite, nil
}

func (r *inviteRepo) ListPending(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.TenantInvite, error) {
	var invites []models.TenantInvite
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND accepted_at IS NULL AND expires_at > ?", tenantID, now).
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}

func (r *inviteRepo) Create(ctx context.Context, invite *models.TenantInvite) error {
	return translateError(r.db.WithContext(ctx).Create(invite).Error)
}

func (r *inviteRepo) MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.TenantInvite{}).
		Where("id = ? AND accepted_at IS NULL", id).
		Update("accepted_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *inviteRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.TenantInvite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ===========================================================================
// OAuth State Repository
// ===========================================================================

type oauthStateRepo struct {
	db *gorm.DB
}

func NewOAuthStateRepository(db *gorm.DB) OAuthStateRepository {
	return &oauthStateRepo{db: db}
}

func (r *oauthStateRepo) Create(ctx context.Context, state *models.OAuthState) error {
	return translateError(r.db.WithContext(ctx).Create(state).Error)
}

func (r *oauthStateRepo) Consume(ctx context.Context, hash string, now time.Time) (*models.OAuthState, error) {
	// atomic, a state can be consumed once
	res := r.db.WithContext(ctx).
		Model(&models.OAuthState{}).
		Where("state_hash = ? AND used_at IS NULL AND expires_at > ?", hash, now).
		Update("used_at", now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	var state models.OAuthState
	if err := r.db.WithContext(ctx).First(&state, "state_hash = ?", hash).Error; err != nil {
		return nil, translateError(err)
	}
	return &state, nil
}
