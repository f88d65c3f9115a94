package services

import (
	"context"

	"uppypro/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanInput pricing plan fields, nil pointers keep the current value on update
type PlanInput struct {
	Code          string
	Name          string
	Description   string
	Price         decimal.Decimal
	Currency      string
	Interval      models.PlanInterval
	IyzicoPlanRef string
	Features      []string
	IsActive      *bool
	SortOrder     int
}

// PricingService interface
type PricingService interface {
	// ListPlans ordered by sort_order, activeOnly for the public pricing page
	ListPlans(ctx context.Context, activeOnly bool) ([]models.PricingPlan, error)

	CreatePlan(ctx context.Context, in PlanInput) (*models.PricingPlan, error)

	UpdatePlan(ctx context.Context, id uuid.UUID, in PlanInput) (*models.PricingPlan, error)
}
