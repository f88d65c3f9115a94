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
// Location Repository GORM Implementation
// ===========================================================================

type locationRepo struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TenantLocation, error) {
	var loc models.TenantLocation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&loc).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &loc, nil
}

func (r *locationRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.TenantLocation, error) {
	var locs []models.TenantLocation
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("name ASC").Find(&locs).Error
	return locs, err
}

func (r *locationRepo) Create(ctx context.Context, location *models.TenantLocation) error {
	return translateError(r.db.WithContext(ctx).Create(location).Error)
}

func (r *locationRepo) Update(ctx context.Context, location *models.TenantLocation) error {
	return translateError(r.db.WithContext(ctx).Save(location).Error)
}

func (r *locationRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &models.TenantLocation{}, tenantID, id)
}

// ===========================================================================
// Employee Repository
// ===========================================================================

type employeeRepo struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepo{db: db}
}

func (r *employeeRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TenantEmployee, error) {
	var emp models.TenantEmployee
	err := r.db.WithContext(ctx).
		Preload("Location").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&emp).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &emp, nil
}

func (r *employeeRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, locationID *uuid.UUID, activeOnly bool) ([]models.TenantEmployee, error) {
	var emps []models.TenantEmployee
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("full_name ASC").Find(&emps).Error
	return emps, err
}

func (r *employeeRepo) Create(ctx context.Context, employee *models.TenantEmployee) error {
	return translateError(r.db.WithContext(ctx).Omit("Location").Create(employee).Error)
}

func (r *employeeRepo) Update(ctx context.Context, employee *models.TenantEmployee) error {
	return translateError(r.db.WithContext(ctx).Omit("Location").Save(employee).Error)
}

func (r *employeeRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return deleteScoped(ctx, r.db, &models.TenantEmployee{}, tenantID, id)
}

// deleteScoped soft deletes a tenant scoped row, ErrNotFound when nothing matched
func deleteScoped(ctx context.Context, db *gorm.DB, model interface{}, tenantID, id uuid.UUID) error {
	res := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ===========================================================================
// Appointment Repository
// ===========================================================================

type appointmentRepo struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Location").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&appt).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &appt, nil
}

func (r *appointmentRepo) List(ctx context.Context, tenantID uuid.UUID, filter AppointmentFilter) ([]models.Appointment, error) {
	query := r.db.WithContext(ctx).
		Preload("Employee").
		Preload("Location").
		Where("tenant_id = ?", tenantID)

	if !filter.From.IsZero() {
		query = query.Where("starts_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("starts_at < ?", filter.To)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var appts []models.Appointment
	err := query.Order("starts_at ASC").Find(&appts).Error
	return appts, err
}

func (r *appointmentRepo) HasOverlap(ctx context.Context, tenantID, employeeID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("tenant_id = ? AND employee_id = ? AND status <> ?", tenantID, employeeID, models.AppointmentCanceled).
		Where("starts_at < ? AND ends_at > ?", end, start)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *appointmentRepo) CountBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("tenant_id = ? AND status <> ?", tenantID, models.AppointmentCanceled).
		Where("starts_at >= ? AND starts_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *appointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	return translateError(r.db.WithContext(ctx).Omit("Employee", "Location").Create(appt).Error)
}

func (r *appointmentRepo) Update(ctx context.Context, appt *models.Appointment) error {
	return translateError(r.db.WithContext(ctx).Omit("Employee", "Location").Save(appt).Error)
}
