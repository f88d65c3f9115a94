package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"uppypro/internal/billing"
	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/notify"
	"uppypro/internal/notify/mocks"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testGrace = 3 * 24 * time.Hour

type mockIyzico struct {
	mock.Mock
}

func (m *mockIyzico) InitializeSubscriptionCheckout(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutForm, error) {
	args := m.Called(ctx, req)
	form, _ := args.Get(0).(*billing.CheckoutForm)
	return form, args.Error(1)
}

func (m *mockIyzico) RetrieveCheckoutResult(ctx context.Context, token string) (*billing.SubscriptionData, error) {
	args := m.Called(ctx, token)
	data, _ := args.Get(0).(*billing.SubscriptionData)
	return data, args.Error(1)
}

func (m *mockIyzico) CancelSubscription(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

type mockPayTR struct {
	mock.Mock
}

func (m *mockPayTR) GetIframeToken(ctx context.Context, req billing.IframeRequest) (*billing.IframeToken, error) {
	args := m.Called(ctx, req)
	token, _ := args.Get(0).(*billing.IframeToken)
	return token, args.Error(1)
}

type subscriptionFixture struct {
	db     *gorm.DB
	repos  *repositories.Repositories
	svc    SubscriptionService
	iyzico *mockIyzico
	paytr  *mockPayTR
	tenant *models.Tenant
	plan   *models.PricingPlan
}

func newSubscriptionFixture(t *testing.T, mailer notify.Mailer) *subscriptionFixture {
	t.Helper()
	db := newTestDB(t)
	repos := repositories.NewRepositories(db)
	tenant := seedTenant(t, repos, "guzellik")
	seedMember(t, repos, tenant.ID, "owner@guzellik.test", models.RoleTenantOwner)

	plan := &models.PricingPlan{
		Code:          "pro",
		Name:          "Pro",
		Price:         decimal.NewFromInt(499),
		Currency:      "TRY",
		Interval:      models.IntervalMonthly,
		IyzicoPlanRef: "plan-ref-pro",
		IsActive:      true,
	}
	require.NoError(t, repos.Plans.Create(context.Background(), plan))

	f := &subscriptionFixture{
		db:     db,
		repos:  repos,
		iyzico: &mockIyzico{},
		paytr:  &mockPayTR{},
		tenant: tenant,
		plan:   plan,
	}
	f.svc = NewSubscriptionService(repos, f.iyzico, f.paytr, newNotifications(repos, mailer), testGrace, 3, zap.NewNop())
	return f
}

func (f *subscriptionFixture) seedSubscription(t *testing.T, status models.SubscriptionStatus, periodEnd time.Time, ref string) *models.Subscription {
	t.Helper()
	start := periodEnd.AddDate(0, -1, 0)
	sub := &models.Subscription{
		TenantID:           f.tenant.ID,
		PlanID:             &f.plan.ID,
		Status:             status,
		Provider:           models.ProviderIyzico,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &periodEnd,
	}
	if ref != "" {
		sub.IyzicoSubscriptionRef = &ref
	}
	require.NoError(t, f.repos.Subscriptions.Create(context.Background(), sub))
	return sub
}

func (f *subscriptionFixture) reload(t *testing.T) *models.Subscription {
	t.Helper()
	sub, err := f.repos.Subscriptions.FindByTenant(context.Background(), f.tenant.ID)
	require.NoError(t, err)
	return sub
}

func TestApplyBillingEventRenewal(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	sub := f.seedSubscription(t, models.SubscriptionPastDue, past, "sub-ref-1")
	_ = sub

	ev := BillingEvent{
		Provider:        models.WebhookIyzico,
		EventKey:        "iyzi-evt-1",
		Type:            BillingPaymentSucceeded,
		SubscriptionRef: "sub-ref-1",
		OrderRef:        "order-1",
		OccurredAt:      now,
	}
	res, err := f.svc.ApplyBillingEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.SubscriptionPastDue, res.From)
	assert.Equal(t, models.SubscriptionActive, res.To)
	assert.True(t, res.Changed())

	updated := f.reload(t)
	assert.Equal(t, models.SubscriptionActive, updated.Status)
	require.NotNil(t, updated.CurrentPeriodEnd)
	assert.True(t, updated.CurrentPeriodEnd.After(now.AddDate(0, 1, -1)))
	assert.Nil(t, updated.PastDueSince)

	payment, err := f.repos.Payments.FindByProviderRef(ctx, models.ProviderIyzico, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, payment.Status)
	assert.Equal(t, models.PurposeRenewal, payment.Purpose)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(499)))

	// redelivery changes nothing
	again, err := f.svc.ApplyBillingEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, again.Outcome)
	assert.Equal(t, updated.Version, f.reload(t).Version)
}

func TestApplyBillingEventIgnoresStaleEvents(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	now := time.Now().UTC()
	f.seedSubscription(t, models.SubscriptionPastDue, now.Add(-time.Hour), "sub-ref-2")

	_, err := f.svc.ApplyBillingEvent(ctx, BillingEvent{
		Provider:        models.WebhookIyzico,
		EventKey:        "newer",
		Type:            BillingPaymentSucceeded,
		SubscriptionRef: "sub-ref-2",
		OccurredAt:      now,
	})
	require.NoError(t, err)

	// a failure that happened before the success arrives late
	res, err := f.svc.ApplyBillingEvent(ctx, BillingEvent{
		Provider:        models.WebhookIyzico,
		EventKey:        "older",
		Type:            BillingPaymentFailed,
		SubscriptionRef: "sub-ref-2",
		OccurredAt:      now.Add(-10 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, "stale event", res.Reason)
	assert.Equal(t, models.SubscriptionActive, f.reload(t).Status)
}

func TestApplyBillingEventFailureEmailsOwner(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, email notify.Email) (string, error) {
		assert.Equal(t, []string{"owner@guzellik.test"}, email.To)
		assert.Equal(t, "Ödemeniz alınamadı", email.Subject)
		assert.Contains(t, email.HTML, "https://app.test/billing")
		return "email-1", nil
	}).Times(1)

	f := newSubscriptionFixture(t, mailer)
	now := time.Now().UTC()
	f.seedSubscription(t, models.SubscriptionActive, now.Add(time.Hour), "sub-ref-3")

	res, err := f.svc.ApplyBillingEvent(ctx, BillingEvent{
		Provider:        models.WebhookIyzico,
		EventKey:        "fail-1",
		Type:            BillingPaymentFailed,
		SubscriptionRef: "sub-ref-3",
		OrderRef:        "order-fail",
		Reason:          "insufficient funds",
		OccurredAt:      now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, res.To)

	sub := f.reload(t)
	require.NotNil(t, sub.PastDueSince)
	access := billing.Access(sub, now.Add(time.Hour), testGrace)
	assert.True(t, access.Allowed)
	assert.True(t, access.InGrace)

	payment, err := f.repos.Payments.FindByProviderRef(ctx, models.ProviderIyzico, "order-fail")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.Status)
	require.NotNil(t, payment.FailureReason)
	assert.Equal(t, "insufficient funds", *payment.FailureReason)
}

func TestApplyBillingEventUnknownReference(t *testing.T) {
	f := newSubscriptionFixture(t, nil)

	res, err := f.svc.ApplyBillingEvent(context.Background(), BillingEvent{
		Provider:        models.WebhookIyzico,
		EventKey:        "unknown-1",
		Type:            BillingPaymentSucceeded,
		SubscriptionRef: "nope",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)

	_, err = f.svc.ApplyBillingEvent(context.Background(), BillingEvent{Provider: models.WebhookIyzico})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestPayTRPaymentFlow(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)

	f.paytr.On("GetIframeToken", mock.Anything, mock.MatchedBy(func(req billing.IframeRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(499)) && req.UserIP == "10.0.0.1" && req.Email == "owner@guzellik.test"
	})).Return(&billing.IframeToken{Token: "ptr-token", IframeURL: "https://paytr.test/odeme/guvenli/ptr-token"}, nil).Once()

	started, err := f.svc.StartPayTRPayment(ctx, f.tenant.ID, "pro", models.PurposeSubscription, Buyer{
		Name:  "Ayşe",
		Email: "owner@guzellik.test",
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "ptr-token", started.Iframe.Token)
	assert.Equal(t, models.PaymentPending, started.Payment.Status)
	oid := started.Payment.ProviderRef
	assert.Regexp(t, `^UP[0-9a-f]{32}$`, oid)

	sub := f.reload(t)
	assert.Equal(t, models.SubscriptionPendingPayment, sub.Status)
	assert.Equal(t, models.ProviderPayTR, sub.Provider)

	res, err := f.svc.ApplyBillingEvent(ctx, BillingEvent{
		Provider:   models.WebhookPayTR,
		EventKey:   oid,
		Type:       BillingPaymentSucceeded,
		OrderRef:   oid,
		Amount:     decimal.NewFromInt(499),
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.SubscriptionActive, f.reload(t).Status)

	payment, err := f.repos.Payments.FindByProviderRef(ctx, models.ProviderPayTR, oid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, payment.Status)

	payments, total, err := f.svc.ListPayments(ctx, f.tenant.ID, "", dto.PaginationRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, payments, 1)
}

func TestPayTRPlanChange(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	now := time.Now().UTC()

	yearly := &models.PricingPlan{
		Code:     "pro-yillik",
		Name:     "Pro Yıllık",
		Price:    decimal.NewFromInt(4990),
		Currency: "TRY",
		Interval: models.IntervalYearly,
		IsActive: true,
	}
	require.NoError(t, f.repos.Plans.Create(ctx, yearly))

	periodEnd := now.Add(24 * time.Hour)
	f.seedSubscription(t, models.SubscriptionActive, periodEnd, "")

	f.paytr.On("GetIframeToken", mock.Anything, mock.MatchedBy(func(req billing.IframeRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(4990))
	})).Return(&billing.IframeToken{Token: "ptr-yearly"}, nil).Once()

	started, err := f.svc.StartPayTRPayment(ctx, f.tenant.ID, "pro-yillik", models.PurposeSubscription, Buyer{Email: "owner@guzellik.test"}, "10.0.0.2")
	require.NoError(t, err)
	oid := started.Payment.ProviderRef

	// the running monthly period stays untouched until the money arrives
	assert.Equal(t, f.plan.ID, *f.reload(t).PlanID)

	res, err := f.svc.ApplyBillingEvent(ctx, BillingEvent{
		Provider:   models.WebhookPayTR,
		EventKey:   oid,
		Type:       BillingPaymentSucceeded,
		OrderRef:   oid,
		Amount:     decimal.NewFromInt(4990),
		OccurredAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	sub := f.reload(t)
	require.NotNil(t, sub.PlanID)
	assert.Equal(t, yearly.ID, *sub.PlanID)
	assert.Equal(t, models.ProviderPayTR, sub.Provider)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.WithinDuration(t, periodEnd.AddDate(1, 0, 0), *sub.CurrentPeriodEnd, time.Second)
	require.NotNil(t, sub.CurrentPeriodStart)
	assert.WithinDuration(t, periodEnd, *sub.CurrentPeriodStart, time.Second)
}

func TestPayTRAddonKeepsPlan(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	now := time.Now().UTC()

	periodEnd := now.Add(10 * 24 * time.Hour)
	f.seedSubscription(t, models.SubscriptionActive, periodEnd, "")

	f.paytr.On("GetIframeToken", mock.Anything, mock.Anything).Return(&billing.IframeToken{Token: "ptr-addon"}, nil).Once()

	started, err := f.svc.StartPayTRPayment(ctx, f.tenant.ID, "pro", models.PurposeAddon, Buyer{}, "10.0.0.3")
	require.NoError(t, err)
	oid := started.Payment.ProviderRef

	_, err = f.svc.ApplyBillingEvent(ctx, BillingEvent{
		Provider:   models.WebhookPayTR,
		EventKey:   oid,
		Type:       BillingPaymentSucceeded,
		OrderRef:   oid,
		OccurredAt: now,
	})
	require.NoError(t, err)

	sub := f.reload(t)
	assert.Equal(t, f.plan.ID, *sub.PlanID)
	assert.WithinDuration(t, periodEnd, *sub.CurrentPeriodEnd, time.Second)

	payment, err := f.repos.Payments.FindByProviderRef(ctx, models.ProviderPayTR, oid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, payment.Status)
}

func TestApplyBillingEventRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	now := time.Now().UTC()
	f.seedSubscription(t, models.SubscriptionPastDue, now.Add(-time.Hour), "sub-ref-r")

	paymentsDown := true
	require.NoError(t, f.db.Callback().Query().Before("gorm:query").Register("test:payments_down", func(tx *gorm.DB) {
		if paymentsDown && tx.Statement.Table == "payments" {
			_ = tx.AddError(errors.New("payments unavailable"))
		}
	}))

	ev := BillingEvent{
		Provider:        models.WebhookIyzico,
		EventKey:        "iyzi-retry-1",
		Type:            BillingPaymentSucceeded,
		SubscriptionRef: "sub-ref-r",
		OrderRef:        "order-r",
		OccurredAt:      now,
	}

	_, err := f.svc.ApplyBillingEvent(ctx, ev)
	require.Error(t, err)

	// the transaction rolled back with the failed payment write
	sub := f.reload(t)
	assert.Equal(t, models.SubscriptionPastDue, sub.Status)
	assert.Nil(t, sub.LastEventAt)

	var stored models.WebhookEvent
	require.NoError(t, f.db.Where("event_key = ?", ev.EventKey).First(&stored).Error)
	assert.Equal(t, models.WebhookStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)

	paymentsDown = false

	res, err := f.svc.ApplyBillingEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.SubscriptionActive, res.To)
	assert.Equal(t, models.SubscriptionActive, f.reload(t).Status)

	require.NoError(t, f.db.Where("event_key = ?", ev.EventKey).First(&stored).Error)
	assert.Equal(t, models.WebhookStatusProcessed, stored.Status)
	assert.Nil(t, stored.ErrorMessage)

	payment, err := f.repos.Payments.FindByProviderRef(ctx, models.ProviderIyzico, "order-r")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, payment.Status)

	again, err := f.svc.ApplyBillingEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, again.Outcome)
}

func TestIyzicoCheckoutFlow(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	now := time.Now().UTC()

	f.iyzico.On("InitializeSubscriptionCheckout", mock.Anything, mock.MatchedBy(func(req billing.CheckoutRequest) bool {
		return req.PlanRef == "plan-ref-pro" && req.Customer.BillingAddress.Country == "Turkey"
	})).Return(&billing.CheckoutForm{Token: "chk-1", CheckoutFormContent: "<script></script>"}, nil).Once()

	form, err := f.svc.StartCheckout(ctx, f.tenant.ID, "pro", Buyer{Name: "Ayşe", Surname: "Yılmaz", Email: "owner@guzellik.test"})
	require.NoError(t, err)
	assert.Equal(t, "chk-1", form.Token)

	f.iyzico.On("RetrieveCheckoutResult", mock.Anything, "chk-1").Return(&billing.SubscriptionData{
		ReferenceCode:         "sub-ref-new",
		CustomerReferenceCode: "cust-1",
		SubscriptionStatus:    "ACTIVE",
		StartDate:             now.UnixMilli(),
		EndDate:               now.AddDate(0, 1, 0).UnixMilli(),
	}, nil).Once()

	sub, err := f.svc.CompleteCheckout(ctx, "chk-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.IyzicoSubscriptionRef)
	assert.Equal(t, "sub-ref-new", *sub.IyzicoSubscriptionRef)

	// callback replays do not call Iyzico again
	_, err = f.svc.CompleteCheckout(ctx, "chk-1")
	require.NoError(t, err)
	f.iyzico.AssertExpectations(t)

	// the webhook for the first order does not extend the period a second time
	periodEnd := *f.reload(t).CurrentPeriodEnd
	res, err := f.svc.ApplyBillingEvent(ctx, BillingEvent{
		Provider:        models.WebhookIyzico,
		EventKey:        "first-order",
		Type:            BillingPaymentSucceeded,
		SubscriptionRef: "sub-ref-new",
		OccurredAt:      now.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.True(t, periodEnd.Equal(*f.reload(t).CurrentPeriodEnd))

	_, err = f.svc.StartCheckout(ctx, f.tenant.ID, "pro", Buyer{})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestCancelKeepsAccessUntilPeriodEnd(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	now := time.Now().UTC()
	f.seedSubscription(t, models.SubscriptionActive, now.Add(10*24*time.Hour), "sub-ref-c")

	f.iyzico.On("CancelSubscription", mock.Anything, "sub-ref-c").Return(nil).Once()

	sub, err := f.svc.Cancel(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCanceled, sub.Status)
	f.iyzico.AssertExpectations(t)

	access, err := f.svc.CheckAccess(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.True(t, access.Allowed)
	assert.Equal(t, "canceled_until_period_end", access.Reason)
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	now := time.Now().UTC()

	lapsed := f.seedSubscription(t, models.SubscriptionActive, now.Add(-testGrace-time.Hour), "")

	other := seedTenant(t, f.repos, "berber")
	since := now.Add(-testGrace - time.Hour)
	end := since
	dunning := &models.Subscription{
		TenantID:         other.ID,
		Status:           models.SubscriptionPastDue,
		CurrentPeriodEnd: &end,
		PastDueSince:     &since,
	}
	require.NoError(t, f.repos.Subscriptions.Create(ctx, dunning))

	changed, err := f.svc.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	got, err := f.repos.Subscriptions.FindByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, got.Status)
	require.NotNil(t, got.PastDueSince)
	assert.WithinDuration(t, *lapsed.CurrentPeriodEnd, *got.PastDueSince, time.Second)

	// the lapsed tenant was already past its grace, the move to past_due keeps it blocked
	access, err := f.svc.CheckAccess(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.False(t, access.Allowed)
	assert.False(t, access.InGrace)
	assert.Equal(t, "past_due", access.Reason)

	got, err = f.repos.Subscriptions.FindByID(ctx, dunning.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionSuspended, got.Status)

	changed, err = f.svc.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	got, err = f.repos.Subscriptions.FindByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionSuspended, got.Status)

	changed, err = f.svc.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestMutateRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	sub := f.seedSubscription(t, models.SubscriptionActive, time.Now().Add(time.Hour), "")

	stale := *sub
	svc := f.svc.(*subscriptionService)

	// another writer bumps the version first
	_, _, _, err := svc.mutate(ctx, sub, func(_ *repositories.Repositories, s *models.Subscription) (string, error) {
		s.Suspend()
		return "", nil
	})
	require.NoError(t, err)

	calls := 0
	updated, from, _, err := svc.mutate(ctx, &stale, func(_ *repositories.Repositories, s *models.Subscription) (string, error) {
		calls++
		s.Cancel(time.Now())
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, models.SubscriptionSuspended, from, "the retry sees the concurrent write")
	assert.Equal(t, models.SubscriptionCanceled, updated.Status)
}

func TestSetStatusOverride(t *testing.T) {
	ctx := context.Background()
	f := newSubscriptionFixture(t, nil)
	f.seedSubscription(t, models.SubscriptionActive, time.Now().Add(time.Hour), "")

	sub, err := f.svc.SetStatus(ctx, f.tenant.ID, models.SubscriptionSuspended)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionSuspended, sub.Status)

	access, err := f.svc.CheckAccess(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.False(t, access.Allowed)

	_, err = f.svc.SetStatus(ctx, f.tenant.ID, "bogus")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = f.svc.SetStatus(ctx, uuid.New(), models.SubscriptionActive)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
