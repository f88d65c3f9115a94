package repositories

import (
	"context"

	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Subscription Repository Interface
// ===========================================================================

type SubscriptionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)

	// FindByTenant subscription of the tenant, with the plan preloaded
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)

	// FindByIyzicoRef looks up by Iyzico subscriptionReferenceCode
	FindByIyzicoRef(ctx context.Context, ref string) (*models.Subscription, error)

	// FindByCheckoutToken looks up by the Iyzico checkout form token
	FindByCheckoutToken(ctx context.Context, token string) (*models.Subscription, error)

	// ListByStatus subscriptions in any of statuses, plan preloaded
	ListByStatus(ctx context.Context, statuses ...models.SubscriptionStatus) ([]models.Subscription, error)

	Create(ctx context.Context, sub *models.Subscription) error

	// UpdateVersioned writes sub only if its version is unchanged in the database
	// and bumps the version. A concurrent writer makes it return ErrConflict.
	UpdateVersioned(ctx context.Context, sub *models.Subscription) error
}

// ===========================================================================
// Pricing Plan Repository Interface
// ===========================================================================

type PricingPlanRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingPlan, error)

	FindByCode(ctx context.Context, code string) (*models.PricingPlan, error)

	// List plans ordered by sort_order, activeOnly hides retired plans
	List(ctx context.Context, activeOnly bool) ([]models.PricingPlan, error)

	Create(ctx context.Context, plan *models.PricingPlan) error

	Update(ctx context.Context, plan *models.PricingPlan) error
}

// ===========================================================================
// Payment Repository Interface
// ===========================================================================

type PaymentRepository interface {
	FindByProviderRef(ctx context.Context, provider models.PaymentProvider, ref string) (*models.Payment, error)

	// ListByTenant payment history, newest first. Filters: "status"
	ListByTenant(ctx context.Context, tenantID uuid.UUID, opts FindOptions) ([]models.Payment, int64, error)

	Create(ctx context.Context, payment *models.Payment) error

	Update(ctx context.Context, payment *models.Payment) error
}

// ===========================================================================
// Webhook Event Repository Interface
// ===========================================================================

// ClaimResult outcome of claiming a webhook delivery
type ClaimResult int

const (
	// ClaimNew first delivery, the caller owns processing
	ClaimNew ClaimResult = iota

	// ClaimRetry earlier attempt failed, the caller owns reprocessing
	ClaimRetry

	// ClaimDuplicate already processed or ignored
	ClaimDuplicate

	// ClaimInProgress another worker is processing the same delivery
	ClaimInProgress

	// ClaimExhausted failed too many times, given up
	ClaimExhausted
)

// Owned reports whether the caller must process the event
func (c ClaimResult) Owned() bool {
	return c == ClaimNew || c == ClaimRetry
}

func (c ClaimResult) String() string {
	switch c {
	case ClaimNew:
		return "new"
	case ClaimRetry:
		return "retry"
	case ClaimDuplicate:
		return "duplicate"
	case ClaimInProgress:
		return "in_progress"
	case ClaimExhausted:
		return "exhausted"
	}
	return "unknown"
}

type WebhookEventRepository interface {
	// Claim inserts event as processing if (provider, event_key) is new, or
	// re-claims a failed one with retries left. The returned event is the stored row.
	Claim(ctx context.Context, event *models.WebhookEvent, maxRetries int) (*models.WebhookEvent, ClaimResult, error)

	// Save persists the processing outcome
	Save(ctx context.Context, event *models.WebhookEvent) error
}
