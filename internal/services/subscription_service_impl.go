package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"uppypro/internal/billing"
	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/metrics"
	"uppypro/internal/models"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ===========================================================================
// Subscription Service Implementation
// ===========================================================================

// maxVersionRetries attempts of a versioned subscription write before ErrConflict
const maxVersionRetries = 3

// initialOrderWindow an Iyzico order success this close to the paid checkout is the
// first order, already applied by the checkout callback
const initialOrderWindow = 24 * time.Hour

type subscriptionService struct {
	repos         *repositories.Repositories
	iyzico        IyzicoGateway
	paytr         PayTRGateway
	notifications NotificationService
	grace         time.Duration
	maxRetries    int
	logger        *zap.Logger
}

// NewSubscriptionService creates the SubscriptionService
func NewSubscriptionService(
	repos *repositories.Repositories,
	iyzico IyzicoGateway,
	paytr PayTRGateway,
	notifications NotificationService,
	grace time.Duration,
	maxRetries int,
	logger *zap.Logger,
) SubscriptionService {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &subscriptionService{
		repos:         repos,
		iyzico:        iyzico,
		paytr:         paytr,
		notifications: notifications,
		grace:         grace,
		maxRetries:    maxRetries,
		logger:        logger.Named("subscriptions"),
	}
}

// ===========================================================================
// Billing events
// ===========================================================================

func (s *subscriptionService) ApplyBillingEvent(ctx context.Context, ev BillingEvent) (*ApplyResult, error) {
	if ev.EventKey == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "missing event key")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = timeNow()
	}
	provider := string(ev.Provider)

	row := &models.WebhookEvent{
		Provider:  ev.Provider,
		EventKey:  ev.EventKey,
		EventType: string(ev.Type),
		Payload:   datatypes.JSONMap(ev.Payload),
		Status:    models.WebhookStatusProcessing,
	}
	stored, claim, err := s.repos.WebhookEvents.Claim(ctx, row, s.maxRetries)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("provider", provider),
		zap.String("event_key", ev.EventKey),
		zap.String("event_type", string(ev.Type)),
		zap.String("claim", claim.String()),
	)

	switch claim {
	case repositories.ClaimDuplicate:
		metrics.RecordWebhook(provider, string(OutcomeDuplicate))
		log.Info("duplicate billing event")
		return &ApplyResult{Outcome: OutcomeDuplicate}, nil
	case repositories.ClaimInProgress:
		log.Info("billing event is being processed elsewhere")
		return &ApplyResult{Outcome: OutcomeInProgress}, nil
	case repositories.ClaimExhausted:
		metrics.RecordWebhook(provider, string(OutcomeExhausted))
		log.Error("billing event retries exhausted", zap.Int("retry_count", stored.RetryCount))
		return &ApplyResult{Outcome: OutcomeExhausted}, nil
	}

	result, sub, err := s.apply(ctx, ev)
	if err != nil {
		stored.MarkFailed(err)
		if saveErr := s.repos.WebhookEvents.Save(ctx, stored); saveErr != nil {
			log.Error("failed to record billing event failure", zap.Error(saveErr))
		}
		metrics.RecordWebhook(provider, "failed")
		log.Warn("billing event failed", zap.Error(err))
		return nil, err
	}

	if result.Outcome == OutcomeIgnored {
		stored.MarkIgnored(result.Reason)
	} else {
		stored.MarkProcessed()
	}
	if err := s.repos.WebhookEvents.Save(ctx, stored); err != nil {
		log.Error("failed to record billing event outcome", zap.Error(err))
	}
	metrics.RecordWebhook(provider, string(result.Outcome))

	log.Info("billing event handled",
		zap.String("outcome", string(result.Outcome)),
		zap.String("from", string(result.From)),
		zap.String("to", string(result.To)),
		zap.String("reason", result.Reason),
	)

	if sub != nil && result.Outcome == OutcomeApplied {
		s.afterBillingEvent(ctx, sub, result, ev)
	}
	return result, nil
}

// apply resolves the subscription and runs the transition under the version guard
func (s *subscriptionService) apply(ctx context.Context, ev BillingEvent) (*ApplyResult, *models.Subscription, error) {
	sub, payment, reason, err := s.resolve(ctx, ev)
	if err != nil {
		return nil, nil, err
	}
	if reason != "" {
		return &ApplyResult{Outcome: OutcomeIgnored, Reason: reason}, nil, nil
	}

	interval := s.intervalFor(ctx, sub)
	addon := payment != nil && payment.Purpose == models.PurposeAddon

	// a purchase may switch plans, the paid plan decides the new period
	var purchased *models.PricingPlan
	if payment != nil && !addon && payment.PlanID != nil {
		plan, err := s.repos.Plans.FindByID(ctx, *payment.PlanID)
		switch {
		case err == nil:
			purchased = plan
			interval = plan.Interval
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, nil, err
		}
	}

	updated, from, skip, err := s.mutate(ctx, sub, func(tx *repositories.Repositories, sub *models.Subscription) (string, error) {
		if sub.IsStale(ev.OccurredAt) {
			return "stale event", nil
		}
		now := timeNow()

		if !addon {
			switch ev.Type {
			case BillingPaymentSucceeded:
				if ev.Provider == models.WebhookIyzico && isInitialOrder(ctx, tx, sub, ev.OccurredAt) {
					return "initial order already applied", nil
				}
				sub.ApplyPaymentSuccess(now, interval)
				sub.Provider = paymentProvider(ev.Provider)
				if purchased != nil {
					sub.PlanID = &purchased.ID
					sub.Plan = purchased
				}
			case BillingPaymentFailed:
				sub.ApplyPaymentFailure(now, s.grace)
			case BillingSubscriptionCanceled:
				sub.Cancel(ev.OccurredAt)
			default:
				return "unsupported event type", nil
			}
		}
		sub.MarkEvent(ev.OccurredAt)

		return "", s.recordPayment(ctx, tx, sub, ev, now)
	})
	if err != nil {
		return nil, nil, err
	}

	result := &ApplyResult{SubscriptionID: &sub.ID}
	if skip != "" {
		result.Outcome = OutcomeIgnored
		result.Reason = skip
		return result, nil, nil
	}
	result.Outcome = OutcomeApplied
	result.From = from
	result.To = updated.Status
	return result, updated, nil
}

// resolve finds the subscription an event refers to. A non-empty reason means
// the event cannot be matched and is ignored.
func (s *subscriptionService) resolve(ctx context.Context, ev BillingEvent) (*models.Subscription, *models.Payment, string, error) {
	switch ev.Provider {
	case models.WebhookIyzico:
		if ev.SubscriptionRef != "" {
			sub, err := s.repos.Subscriptions.FindByIyzicoRef(ctx, ev.SubscriptionRef)
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, nil, "unknown subscription reference", nil
			}
			return sub, nil, "", err
		}
		if ev.OrderRef == "" {
			return nil, nil, "missing reference", nil
		}
		return s.resolveByPayment(ctx, models.ProviderIyzico, ev.OrderRef)

	case models.WebhookPayTR:
		return s.resolveByPayment(ctx, models.ProviderPayTR, ev.OrderRef)
	}
	return nil, nil, "", apperrors.Newf(apperrors.ErrInvalidInput, "unsupported billing provider %q", ev.Provider)
}

func (s *subscriptionService) resolveByPayment(ctx context.Context, provider models.PaymentProvider, ref string) (*models.Subscription, *models.Payment, string, error) {
	payment, err := s.repos.Payments.FindByProviderRef(ctx, provider, ref)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, "unknown order reference", nil
	}
	if err != nil {
		return nil, nil, "", err
	}
	sub, err := s.repos.Subscriptions.FindByTenant(ctx, payment.TenantID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, "tenant has no subscription", nil
	}
	return sub, payment, "", err
}

// recordPayment marks the order's payment paid or failed, creating it for Iyzico renewals
func (s *subscriptionService) recordPayment(ctx context.Context, tx *repositories.Repositories, sub *models.Subscription, ev BillingEvent, now time.Time) error {
	if ev.OrderRef == "" || (ev.Type != BillingPaymentSucceeded && ev.Type != BillingPaymentFailed) {
		return nil
	}
	provider := paymentProvider(ev.Provider)

	payment, err := tx.Payments.FindByProviderRef(ctx, provider, ev.OrderRef)
	create := false
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		create = true
		amount := ev.Amount
		if amount.IsZero() && sub.Plan != nil {
			amount = sub.Plan.Price
		}
		payment = &models.Payment{
			TenantID:       sub.TenantID,
			SubscriptionID: &sub.ID,
			PlanID:         sub.PlanID,
			Provider:       provider,
			ProviderRef:    ev.OrderRef,
			Amount:         amount,
			Currency:       "TRY",
			Status:         models.PaymentPending,
			Purpose:        models.PurposeRenewal,
		}
	case err != nil:
		return err
	}

	if ev.Type == BillingPaymentSucceeded {
		payment.MarkPaid(now)
	} else {
		payment.MarkFailed(ev.Reason)
	}
	if len(ev.Payload) > 0 {
		payment.Raw = datatypes.JSONMap(ev.Payload)
	}

	if create {
		return tx.Payments.Create(ctx, payment)
	}
	return tx.Payments.Update(ctx, payment)
}

func (s *subscriptionService) afterBillingEvent(ctx context.Context, sub *models.Subscription, result *ApplyResult, ev BillingEvent) {
	if result.Changed() {
		s.recordTransition(sub, result.From)
	}

	switch ev.Type {
	case BillingPaymentFailed:
		s.notify(ctx, true, NotifyInput{
			TenantID: sub.TenantID,
			Type:     models.NotifyPaymentFailed,
			Title:    "Ödeme alınamadı",
			Body:     "Abonelik ödemeniz başarısız oldu. Lütfen ödeme bilgilerinizi güncelleyin.",
			Link:     "/billing",
			Data:     map[string]interface{}{"status": string(sub.Status)},
		})
	case BillingPaymentSucceeded:
		s.notify(ctx, false, NotifyInput{
			TenantID: sub.TenantID,
			Type:     models.NotifyPaymentSucceeded,
			Title:    "Ödeme alındı",
			Body:     "Aboneliğiniz yenilendi.",
			Link:     "/billing",
		})
	default:
		if result.Changed() {
			s.notifyStatus(ctx, sub, result.From)
		}
	}
}

// ===========================================================================
// Checkout flows
// ===========================================================================

func (s *subscriptionService) StartCheckout(ctx context.Context, tenantID uuid.UUID, planCode string, buyer Buyer) (*billing.CheckoutForm, error) {
	plan, err := s.activePlan(ctx, planCode)
	if err != nil {
		return nil, err
	}
	if plan.IyzicoPlanRef == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "bu plan kartla abonelik için kullanılamaz")
	}

	sub, err := s.ensureSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionActive {
		return nil, apperrors.New(apperrors.ErrConflict, "zaten aktif bir aboneliğiniz var")
	}

	form, err := s.iyzico.InitializeSubscriptionCheckout(ctx, billing.CheckoutRequest{
		ConversationID: sub.ID.String(),
		PlanRef:        plan.IyzicoPlanRef,
		Customer:       iyzicoCustomer(buyer),
	})
	if err != nil {
		return nil, err
	}

	_, from, _, err := s.mutate(ctx, sub, func(tx *repositories.Repositories, sub *models.Subscription) (string, error) {
		if sub.Status != models.SubscriptionActive {
			sub.Status = models.SubscriptionPendingPayment
		}
		sub.PlanID = &plan.ID
		sub.Provider = models.ProviderIyzico
		sub.IyzicoCheckoutToken = &form.Token
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	if from != models.SubscriptionPendingPayment {
		metrics.RecordSubscriptionTransition(string(from), string(models.SubscriptionPendingPayment))
	}

	s.logger.Info("iyzico checkout started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan", plan.Code),
	)
	return form, nil
}

func (s *subscriptionService) CompleteCheckout(ctx context.Context, token string) (*models.Subscription, error) {
	if token == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "ödeme oturumu eksik")
	}

	sub, err := s.repos.Subscriptions.FindByCheckoutToken(ctx, token)
	if err != nil {
		return nil, notFound(err, "ödeme oturumu bulunamadı")
	}

	paymentRef := checkoutPaymentRef(token)
	if _, err := s.repos.Payments.FindByProviderRef(ctx, models.ProviderIyzico, paymentRef); err == nil {
		return sub, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	data, err := s.iyzico.RetrieveCheckoutResult(ctx, token)
	if err != nil {
		return nil, err
	}

	interval := s.intervalFor(ctx, sub)
	updated, from, _, err := s.mutate(ctx, sub, func(tx *repositories.Repositories, sub *models.Subscription) (string, error) {
		now := timeNow()
		if data.ReferenceCode != "" {
			ref := data.ReferenceCode
			sub.IyzicoSubscriptionRef = &ref
		}
		if data.CustomerReferenceCode != "" {
			cref := data.CustomerReferenceCode
			sub.IyzicoCustomerRef = &cref
		}

		payment := &models.Payment{
			TenantID:       sub.TenantID,
			SubscriptionID: &sub.ID,
			PlanID:         sub.PlanID,
			Provider:       models.ProviderIyzico,
			ProviderRef:    paymentRef,
			Currency:       "TRY",
			Status:         models.PaymentPending,
			Purpose:        models.PurposeSubscription,
		}
		if sub.Plan != nil {
			payment.Amount = sub.Plan.Price
			payment.Currency = sub.Plan.Currency
		}

		if data.IsActive() {
			sub.Provider = models.ProviderIyzico
			if start, end := data.PeriodStart(), data.PeriodEnd(); !start.IsZero() && end.After(start) {
				sub.Status = models.SubscriptionActive
				sub.CurrentPeriodStart = &start
				sub.CurrentPeriodEnd = &end
				sub.PastDueSince = nil
				sub.CanceledAt = nil
			} else {
				sub.ApplyPaymentSuccess(now, interval)
			}
			payment.MarkPaid(now)
		} else {
			payment.MarkFailed("iyzico subscription status " + data.SubscriptionStatus)
		}
		return "", tx.Payments.Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	if updated.Status != from {
		s.recordTransition(updated, from)
		s.notify(ctx, false, NotifyInput{
			TenantID: updated.TenantID,
			Type:     models.NotifyPaymentSucceeded,
			Title:    "Aboneliğiniz başladı",
			Body:     "Ödemeniz alındı, UppyPro'yu kullanmaya başlayabilirsiniz.",
			Link:     "/billing",
		})
	}
	return updated, nil
}

func (s *subscriptionService) StartPayTRPayment(ctx context.Context, tenantID uuid.UUID, planCode string, purpose models.PaymentPurpose, buyer Buyer, userIP string) (*PayTRPayment, error) {
	plan, err := s.activePlan(ctx, planCode)
	if err != nil {
		return nil, err
	}
	if purpose == "" {
		purpose = models.PurposeSubscription
	}

	sub, err := s.ensureSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		TenantID:       tenantID,
		SubscriptionID: &sub.ID,
		PlanID:         &plan.ID,
		Provider:       models.ProviderPayTR,
		ProviderRef:    merchantOID(),
		Amount:         plan.Price,
		Currency:       plan.Currency,
		Status:         models.PaymentPending,
		Purpose:        purpose,
	}
	if err := s.repos.Payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	iframe, err := s.paytr.GetIframeToken(ctx, billing.IframeRequest{
		MerchantOID: payment.ProviderRef,
		Email:       buyer.Email,
		Amount:      plan.Price,
		Currency:    plan.Currency,
		UserIP:      userIP,
		UserName:    strings.TrimSpace(buyer.Name + " " + buyer.Surname),
		UserAddress: buyer.Address,
		UserPhone:   buyer.Phone,
		Basket:      []billing.BasketItem{{Name: plan.Name, Price: plan.Price, Quantity: 1}},
	})
	if err != nil {
		payment.MarkFailed(err.Error())
		if uerr := s.repos.Payments.Update(ctx, payment); uerr != nil {
			s.logger.Warn("failed to mark paytr payment failed", zap.Error(uerr))
		}
		return nil, err
	}

	if purpose != models.PurposeAddon && sub.Status != models.SubscriptionActive {
		if _, _, _, err := s.mutate(ctx, sub, func(tx *repositories.Repositories, sub *models.Subscription) (string, error) {
			sub.PlanID = &plan.ID
			sub.Provider = models.ProviderPayTR
			return "", nil
		}); err != nil {
			s.logger.Warn("failed to attach plan to subscription", zap.Error(err))
		}
	}

	s.logger.Info("paytr payment started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("merchant_oid", payment.ProviderRef),
		zap.String("amount", plan.Price.String()),
	)
	return &PayTRPayment{Payment: payment, Iframe: iframe}, nil
}

// ===========================================================================
// Lifecycle
// ===========================================================================

func (s *subscriptionService) Cancel(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repos.Subscriptions.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, notFound(err, "abonelik bulunamadı")
	}
	if sub.Status == models.SubscriptionCanceled {
		return sub, nil
	}

	if sub.IyzicoSubscriptionRef != nil && *sub.IyzicoSubscriptionRef != "" {
		if err := s.iyzico.CancelSubscription(ctx, *sub.IyzicoSubscriptionRef); err != nil {
			return nil, err
		}
	}

	updated, from, _, err := s.mutate(ctx, sub, func(tx *repositories.Repositories, sub *models.Subscription) (string, error) {
		sub.Cancel(timeNow())
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	if updated.Status != from {
		s.recordTransition(updated, from)
		s.notifyStatus(ctx, updated, from)
	}
	return updated, nil
}

func (s *subscriptionService) Status(ctx context.Context, tenantID uuid.UUID) (*SubscriptionView, error) {
	sub, err := s.repos.Subscriptions.FindByTenant(ctx, tenantID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &SubscriptionView{Access: billing.Access(nil, timeNow(), s.grace)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SubscriptionView{
		Subscription: sub,
		Plan:         sub.Plan,
		Access:       billing.Access(sub, timeNow(), s.grace),
	}, nil
}

func (s *subscriptionService) CheckAccess(ctx context.Context, tenantID uuid.UUID) (models.AccessState, error) {
	sub, err := s.repos.Subscriptions.FindByTenant(ctx, tenantID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return billing.Access(nil, timeNow(), s.grace), nil
	}
	if err != nil {
		return models.AccessState{}, err
	}
	return billing.Access(sub, timeNow(), s.grace), nil
}

func (s *subscriptionService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	subs, err := s.repos.Subscriptions.ListByStatus(ctx,
		models.SubscriptionActive,
		models.SubscriptionPastDue,
		models.SubscriptionUnpaid,
	)
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range subs {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		updated, from, skip, err := s.mutate(ctx, &subs[i], func(tx *repositories.Repositories, sub *models.Subscription) (string, error) {
			if !sub.Expire(now, s.grace) {
				return "unchanged", nil
			}
			return "", nil
		})
		if err != nil {
			s.logger.Warn("sweep: subscription update failed",
				zap.String("subscription_id", subs[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		if skip != "" || updated.Status == from {
			continue
		}

		changed++
		s.recordTransition(updated, from)
		s.notifyStatus(ctx, updated, from)
	}

	if changed > 0 {
		s.logger.Info("subscription sweep done", zap.Int("changed", changed), zap.Int("checked", len(subs)))
	}
	return changed, nil
}

func (s *subscriptionService) SetStatus(ctx context.Context, tenantID uuid.UUID, status models.SubscriptionStatus) (*models.Subscription, error) {
	if !status.IsValid() {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz abonelik durumu")
	}

	sub, err := s.repos.Subscriptions.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, notFound(err, "abonelik bulunamadı")
	}
	interval := s.intervalFor(ctx, sub)

	updated, from, _, err := s.mutate(ctx, sub, func(tx *repositories.Repositories, sub *models.Subscription) (string, error) {
		now := timeNow()
		switch status {
		case models.SubscriptionActive:
			if sub.Status != models.SubscriptionActive || sub.CurrentPeriodEnd == nil || !now.Before(*sub.CurrentPeriodEnd) {
				sub.ApplyPaymentSuccess(now, interval)
			}
		case models.SubscriptionCanceled:
			sub.Cancel(now)
		case models.SubscriptionSuspended:
			sub.Suspend()
		case models.SubscriptionPastDue, models.SubscriptionUnpaid:
			sub.Status = status
			if sub.PastDueSince == nil {
				sub.PastDueSince = &now
			}
		default:
			sub.Status = status
		}
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status != from {
		s.recordTransition(updated, from)
		s.notifyStatus(ctx, updated, from)
	}
	s.logger.Info("subscription status overridden",
		zap.String("tenant_id", tenantID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

func (s *subscriptionService) ListPayments(ctx context.Context, tenantID uuid.UUID, status string, page dto.PaginationRequest) ([]models.Payment, int64, error) {
	opts := findOptions(page, "created_at", map[string]interface{}{"status": status})
	return s.repos.Payments.ListByTenant(ctx, tenantID, opts)
}

// ===========================================================================
// Helpers
// ===========================================================================

// mutate applies fn and writes the subscription with the version guard, reloading
// and retrying on conflicts. A non-empty skip reason from fn leaves the row untouched.
func (s *subscriptionService) mutate(
	ctx context.Context,
	sub *models.Subscription,
	fn func(tx *repositories.Repositories, sub *models.Subscription) (string, error),
) (*models.Subscription, models.SubscriptionStatus, string, error) {
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		if attempt > 0 {
			fresh, err := s.repos.Subscriptions.FindByID(ctx, sub.ID)
			if err != nil {
				return nil, "", "", err
			}
			sub = fresh
		}

		from := sub.Status
		skip := ""
		err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
			var err error
			skip, err = fn(tx, sub)
			if err != nil || skip != "" {
				return err
			}
			return tx.Subscriptions.UpdateVersioned(ctx, sub)
		})
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.Debug("subscription version conflict",
				zap.String("subscription_id", sub.ID.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, from, "", err
		}
		return sub, from, skip, nil
	}

	return nil, "", "", apperrors.New(apperrors.ErrConflict, "subscription was modified concurrently")
}

func (s *subscriptionService) ensureSubscription(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repos.Subscriptions.FindByTenant(ctx, tenantID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	sub = &models.Subscription{
		TenantID: tenantID,
		Status:   models.SubscriptionPendingPayment,
	}
	if err := s.repos.Subscriptions.Create(ctx, sub); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			return s.repos.Subscriptions.FindByTenant(ctx, tenantID)
		}
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) activePlan(ctx context.Context, code string) (*models.PricingPlan, error) {
	plan, err := s.repos.Plans.FindByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, "plan bulunamadı")
	}
	if !plan.IsActive {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "plan satışta değil")
	}
	return plan, nil
}

func (s *subscriptionService) intervalFor(ctx context.Context, sub *models.Subscription) models.PlanInterval {
	if sub.Plan != nil {
		return sub.Plan.Interval
	}
	if sub.PlanID != nil {
		if plan, err := s.repos.Plans.FindByID(ctx, *sub.PlanID); err == nil {
			return plan.Interval
		}
	}
	return models.IntervalMonthly
}

func (s *subscriptionService) recordTransition(sub *models.Subscription, from models.SubscriptionStatus) {
	metrics.RecordSubscriptionTransition(string(from), string(sub.Status))
	s.logger.Info("subscription transition",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(sub.Status)),
	)
}

var statusTitles = map[models.SubscriptionStatus]string{
	models.SubscriptionActive:    "Aboneliğiniz aktif",
	models.SubscriptionCanceled:  "Aboneliğiniz iptal edildi",
	models.SubscriptionPastDue:   "Abonelik ödemesi gecikti",
	models.SubscriptionUnpaid:    "Abonelik ödenmedi",
	models.SubscriptionSuspended: "Hesabınız askıya alındı",
}

func (s *subscriptionService) notifyStatus(ctx context.Context, sub *models.Subscription, from models.SubscriptionStatus) {
	title, ok := statusTitles[sub.Status]
	if !ok {
		title = "Abonelik durumu güncellendi"
	}
	email := sub.Status == models.SubscriptionSuspended || sub.Status == models.SubscriptionPastDue
	s.notify(ctx, email, NotifyInput{
		TenantID: sub.TenantID,
		Type:     models.NotifySubscriptionStatus,
		Title:    title,
		Link:     "/billing",
		Data: map[string]interface{}{
			"from": string(from),
			"to":   string(sub.Status),
		},
	})
}

func (s *subscriptionService) notify(ctx context.Context, email bool, in NotifyInput) {
	if s.notifications == nil {
		return
	}
	var err error
	if email {
		_, err = s.notifications.NotifyByEmail(ctx, in)
	} else {
		_, err = s.notifications.Notify(ctx, in)
	}
	if err != nil {
		s.logger.Warn("subscription notification failed", zap.Error(err))
	}
}

func checkoutPaymentRef(token string) string {
	return "checkout:" + token
}

// isInitialOrder reports whether an Iyzico order success at `at` is the first order
// of the checkout that activated sub
func isInitialOrder(ctx context.Context, tx *repositories.Repositories, sub *models.Subscription, at time.Time) bool {
	if sub.Status != models.SubscriptionActive || sub.IyzicoCheckoutToken == nil {
		return false
	}
	payment, err := tx.Payments.FindByProviderRef(ctx, models.ProviderIyzico, checkoutPaymentRef(*sub.IyzicoCheckoutToken))
	if err != nil || payment.PaidAt == nil {
		return false
	}
	return at.Before(payment.PaidAt.Add(initialOrderWindow))
}

func paymentProvider(p models.WebhookProvider) models.PaymentProvider {
	if p == models.WebhookPayTR {
		return models.ProviderPayTR
	}
	return models.ProviderIyzico
}

// merchantOID unique alphanumeric PayTR order id
func merchantOID() string {
	return "UP" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func iyzicoCustomer(b Buyer) billing.IyzicoCustomer {
	country := b.Country
	if country == "" {
		country = "Turkey"
	}
	addr := billing.IyzicoAddress{
		ContactName: strings.TrimSpace(b.Name + " " + b.Surname),
		City:        b.City,
		Country:     country,
		Address:     b.Address,
		ZipCode:     b.ZipCode,
	}
	return billing.IyzicoCustomer{
		Name:            b.Name,
		Surname:         b.Surname,
		Email:           b.Email,
		GsmNumber:       b.Phone,
		IdentityNumber:  b.IdentityNumber,
		BillingAddress:  addr,
		ShippingAddress: addr,
	}
}
