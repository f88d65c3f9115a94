package services

import (
	"context"
	"errors"
	"testing"

	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPricingPlans(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := NewPricingService(repos, zap.NewNop())

	starter, err := svc.CreatePlan(ctx, PlanInput{
		Code:      "Starter",
		Name:      "Başlangıç",
		Price:     decimal.RequireFromString("299.999"),
		Features:  []string{"1 WhatsApp numarası", "Yapay zeka asistanı"},
		SortOrder: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "starter", starter.Code)
	assert.Equal(t, "300.00", starter.Price.StringFixed(2))
	assert.Equal(t, "TRY", starter.Currency)
	assert.Equal(t, models.IntervalMonthly, starter.Interval)
	assert.Equal(t, []string{"1 WhatsApp numarası", "Yapay zeka asistanı"}, starter.FeatureList())

	_, err = svc.CreatePlan(ctx, PlanInput{Code: "starter", Name: "Kopya"})
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateEntry))

	_, err = svc.CreatePlan(ctx, PlanInput{Code: "pro plan", Name: "Pro"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.CreatePlan(ctx, PlanInput{Code: "neg", Name: "Negatif", Price: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.CreatePlan(ctx, PlanInput{Code: "weekly", Name: "Haftalık", Interval: "weekly"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.CreatePlan(ctx, PlanInput{
		Code: "pro", Name: "Pro", Price: decimal.NewFromInt(4990), Interval: models.IntervalYearly, SortOrder: 2,
	})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.UpdatePlan(ctx, starter.ID, PlanInput{Code: "ignored", Name: "Başlangıç", Price: decimal.NewFromInt(349), IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "starter", updated.Code, "code is immutable")
	assert.False(t, updated.IsActive)

	active, err := svc.ListPlans(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "pro", active[0].Code)

	all, err := svc.ListPlans(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.UpdatePlan(ctx, uuid.New(), PlanInput{Name: "Yok"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
