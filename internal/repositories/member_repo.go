package repositories

import (
	"context"

	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ===========================================================================
// Member Repository GORM Implementation
// ===========================================================================

type memberRepo struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepo{db: db}
}

func (r *memberRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TenantMember, error) {
	var member models.TenantMember
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&member).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &member, nil
}

func (r *memberRepo) FindByTenantAndUser(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantMember, error) {
	var member models.TenantMember
	err := r.db.WithContext(ctx).
		Preload("Tenant").
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&member).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &member, nil
}

func (r *memberRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]models.TenantMember, error) {
	var members []models.TenantMember
	err := r.db.WithContext(ctx).
		Preload("Tenant").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *memberRepo) IsAgencyAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TenantMember{}).
		Where("user_id = ? AND role = ?", userID, models.RoleAgencyAdmin).
		Count(&count).Error
	return count > 0, err
}

func (r *memberRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.TenantMember, error) {
	var members []models.TenantMember
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *memberRepo) CountByRole(ctx context.Context, tenantID uuid.UUID, role models.MemberRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TenantMember{}).
		Where("tenant_id = ? AND role = ?", tenantID, role).
		Count(&count).Error
	return count, err
}

func (r *memberRepo) OwnerEmails(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).
		Model(&models.TenantMember{}).
		Where("tenant_id = ? AND role = ?", tenantID, models.RoleTenantOwner).
		Pluck("email", &emails).Error
	return emails, err
}

func (r *memberRepo) Create(ctx context.Context, member *models.TenantMember) error {
	return translateError(r.db.WithContext(ctx).Create(member).Error)
}

func (r *memberRepo) Update(ctx context.Context, member *models.TenantMember) error {
	return translateError(r.db.WithContext(ctx).Omit("Tenant").Save(member).Error)
}

func (r *memberRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	// hard delete, (tenant_id, user_id) is unique
	res := r.db.WithContext(ctx).
		Unscoped().
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.TenantMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
