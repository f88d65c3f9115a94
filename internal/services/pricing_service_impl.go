package services

import (
	"context"
	"strings"

	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type pricingService struct {
	repos  *repositories.Repositories
	logger *zap.Logger
}

// NewPricingService creates the PricingService
func NewPricingService(repos *repositories.Repositories, logger *zap.Logger) PricingService {
	return &pricingService{repos: repos, logger: logger.Named("pricing")}
}

func (s *pricingService) ListPlans(ctx context.Context, activeOnly bool) ([]models.PricingPlan, error) {
	return s.repos.Plans.List(ctx, activeOnly)
}

func (s *pricingService) CreatePlan(ctx context.Context, in PlanInput) (*models.PricingPlan, error) {
	code := strings.ToLower(strings.TrimSpace(in.Code))
	if !slugPattern.MatchString(code) {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "plan kodu küçük harf, rakam ve tire içermeli")
	}

	plan := &models.PricingPlan{Code: code, IsActive: true}
	if err := applyPlan(plan, in); err != nil {
		return nil, err
	}
	if err := s.repos.Plans.Create(ctx, plan); err != nil {
		if apperrors.Is(err, apperrors.ErrDuplicateEntry) {
			return nil, apperrors.New(apperrors.ErrDuplicateEntry, "bu plan kodu zaten kullanılıyor")
		}
		return nil, err
	}

	s.logger.Info("pricing plan created", zap.String("code", plan.Code), zap.String("price", plan.Price.StringFixed(2)))
	return plan, nil
}

func (s *pricingService) UpdatePlan(ctx context.Context, id uuid.UUID, in PlanInput) (*models.PricingPlan, error) {
	plan, err := s.repos.Plans.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "plan bulunamadı")
	}
	// the code is referenced by subscriptions and the dashboard, it never changes
	if err := applyPlan(plan, in); err != nil {
		return nil, err
	}
	if err := s.repos.Plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func applyPlan(plan *models.PricingPlan, in PlanInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "plan adı gerekli")
	}
	if in.Price.IsNegative() {
		return apperrors.New(apperrors.ErrInvalidInput, "fiyat negatif olamaz")
	}

	interval := in.Interval
	if interval == "" {
		interval = models.IntervalMonthly
	}
	if interval != models.IntervalMonthly && interval != models.IntervalYearly {
		return apperrors.New(apperrors.ErrInvalidInput, "geçersiz ödeme periyodu")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "TRY"
	}

	plan.Name = name
	plan.Description = strings.TrimSpace(in.Description)
	plan.Price = in.Price.Round(2)
	plan.Currency = currency
	plan.Interval = interval
	plan.IyzicoPlanRef = strings.TrimSpace(in.IyzicoPlanRef)
	plan.SetFeatures(in.Features)
	plan.SortOrder = in.SortOrder
	if in.IsActive != nil {
		plan.IsActive = *in.IsActive
	}
	return nil
}
