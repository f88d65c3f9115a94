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
// Subscription Repository GORM Implementation
// ===========================================================================

type subscriptionRepo struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) findOne(ctx context.Context, query string, args ...interface{}) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where(query, args...).
		First(&sub).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *subscriptionRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	return r.findOne(ctx, "tenant_id = ?", tenantID)
}

func (r *subscriptionRepo) FindByIyzicoRef(ctx context.Context, ref string) (*models.Subscription, error) {
	return r.findOne(ctx, "iyzico_subscription_ref = ?", ref)
}

func (r *subscriptionRepo) FindByCheckoutToken(ctx context.Context, token string) (*models.Subscription, error) {
	return r.findOne(ctx, "iyzico_checkout_token = ?", token)
}

func (r *subscriptionRepo) ListByStatus(ctx context.Context, statuses ...models.SubscriptionStatus) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.Version == 0 {
		sub.Version = 1
	}
	return translateError(r.db.WithContext(ctx).Omit("Plan").Create(sub).Error)
}

func (r *subscriptionRepo) UpdateVersioned(ctx context.Context, sub *models.Subscription) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(map[string]interface{}{
			"plan_id":                 sub.PlanID,
			"status":                  sub.Status,
			"provider":                sub.Provider,
			"iyzico_subscription_ref": sub.IyzicoSubscriptionRef,
			"iyzico_customer_ref":     sub.IyzicoCustomerRef,
			"iyzico_checkout_token":   sub.IyzicoCheckoutToken,
			"current_period_start":    sub.CurrentPeriodStart,
			"current_period_end":      sub.CurrentPeriodEnd,
			"past_due_since":          sub.PastDueSince,
			"canceled_at":             sub.CanceledAt,
			"last_event_at":           sub.LastEventAt,
			"version":                 gorm.Expr("version + 1"),
			"updated_at":              now,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	sub.Version++
	sub.UpdatedAt = now
	return nil
}

// ===========================================================================
// Pricing Plan Repository
// ===========================================================================

type pricingPlanRepo struct {
	db *gorm.DB
}

func NewPricingPlanRepository(db *gorm.DB) PricingPlanRepository {
	return &pricingPlanRepo{db: db}
}

func (r *pricingPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &plan, nil
}

func (r *pricingPlanRepo) FindByCode(ctx context.Context, code string) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	if err := r.db.WithContext(ctx).First(&plan, "code = ?", code).Error; err != nil {
		return nil, translateError(err)
	}
	return &plan, nil
}

func (r *pricingPlanRepo) List(ctx context.Context, activeOnly bool) ([]models.PricingPlan, error) {
	var plans []models.PricingPlan
	query := r.db.WithContext(ctx).Model(&models.PricingPlan{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("sort_order ASC, price ASC").Find(&plans).Error
	return plans, err
}

func (r *pricingPlanRepo) Create(ctx context.Context, plan *models.PricingPlan) error {
	return translateError(r.db.WithContext(ctx).Create(plan).Error)
}

func (r *pricingPlanRepo) Update(ctx context.Context, plan *models.PricingPlan) error {
	return translateError(r.db.WithContext(ctx).Save(plan).Error)
}

// ===========================================================================
// Payment Repository
// ===========================================================================

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) FindByProviderRef(ctx context.Context, provider models.PaymentProvider, ref string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_ref = ?", provider, ref).
		First(&payment).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &payment, nil
}

func (r *paymentRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, opts FindOptions) ([]models.Payment, int64, error) {
	opts.SetDefaults()
	opts.Restrict("created_at", "created_at", "paid_at", "amount")

	var payments []models.Payment
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("tenant_id = ?", tenantID)
	if status, ok := opts.filter("status"); ok {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := opts.apply(query).Find(&payments).Error
	return payments, total, err
}

func (r *paymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *paymentRepo) Update(ctx context.Context, payment *models.Payment) error {
	return translateError(r.db.WithContext(ctx).Save(payment).Error)
}
