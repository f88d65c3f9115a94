package services

import (
	"context"
	"time"

	"uppypro/internal/billing"
	"uppypro/internal/dto"
	"uppypro/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===========================================================================
// Subscription Service Interface
// Billing event reconciliation, checkout flows and access checks
// ===========================================================================

// BillingEventType provider neutral billing event
type BillingEventType string

const (
	BillingPaymentSucceeded     BillingEventType = "payment.succeeded"
	BillingPaymentFailed        BillingEventType = "payment.failed"
	BillingSubscriptionCanceled BillingEventType = "subscription.canceled"
)

// BillingEvent normalized Iyzico webhook or PayTR callback
type BillingEvent struct {
	Provider models.WebhookProvider

	// EventKey provider delivery identity, dedup key with Provider
	EventKey string

	Type BillingEventType

	// SubscriptionRef Iyzico subscriptionReferenceCode
	SubscriptionRef string

	// OrderRef Iyzico orderReferenceCode or PayTR merchant_oid
	OrderRef string

	OccurredAt time.Time
	Amount     decimal.Decimal
	Reason     string
	Payload    map[string]interface{}
}

// ApplyOutcome result of ApplyBillingEvent
type ApplyOutcome string

const (
	OutcomeApplied    ApplyOutcome = "applied"
	OutcomeDuplicate  ApplyOutcome = "duplicate"
	OutcomeIgnored    ApplyOutcome = "ignored"
	OutcomeInProgress ApplyOutcome = "in_progress"
	OutcomeExhausted  ApplyOutcome = "exhausted"
)

// ApplyResult what ApplyBillingEvent did
type ApplyResult struct {
	Outcome        ApplyOutcome
	SubscriptionID *uuid.UUID
	From           models.SubscriptionStatus
	To             models.SubscriptionStatus
	Reason         string
}

// Changed status transition happened
func (r *ApplyResult) Changed() bool {
	return r.Outcome == OutcomeApplied && r.From != r.To
}

// Buyer billing details collected by the checkout page
type Buyer struct {
	Name           string
	Surname        string
	Email          string
	Phone          string
	IdentityNumber string
	City           string
	Country        string
	Address        string
	ZipCode        string
}

// PayTRPayment pending payment and its iframe
type PayTRPayment struct {
	Payment *models.Payment      `json:"payment"`
	Iframe  *billing.IframeToken `json:"iframe"`
}

// SubscriptionView subscription with plan and access state
type SubscriptionView struct {
	Subscription *models.Subscription `json:"subscription"`
	Plan         *models.PricingPlan  `json:"plan,omitempty"`
	Access       models.AccessState   `json:"access"`
}

// IyzicoGateway Iyzico subscription API
type IyzicoGateway interface {
	InitializeSubscriptionCheckout(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutForm, error)
	RetrieveCheckoutResult(ctx context.Context, token string) (*billing.SubscriptionData, error)
	CancelSubscription(ctx context.Context, ref string) error
}

// PayTRGateway PayTR iframe API
type PayTRGateway interface {
	GetIframeToken(ctx context.Context, req billing.IframeRequest) (*billing.IframeToken, error)
}

// SubscriptionService interface
type SubscriptionService interface {
	// ApplyBillingEvent applies a provider event exactly once, in order, without
	// losing concurrent updates. Errors mean the provider should retry.
	ApplyBillingEvent(ctx context.Context, ev BillingEvent) (*ApplyResult, error)

	// StartCheckout initializes an Iyzico subscription checkout form
	StartCheckout(ctx context.Context, tenantID uuid.UUID, planCode string, buyer Buyer) (*billing.CheckoutForm, error)

	// CompleteCheckout handles the Iyzico checkout callback
	CompleteCheckout(ctx context.Context, token string) (*models.Subscription, error)

	// StartPayTRPayment creates a pending payment and returns its iframe token
	StartPayTRPayment(ctx context.Context, tenantID uuid.UUID, planCode string, purpose models.PaymentPurpose, buyer Buyer, userIP string) (*PayTRPayment, error)

	// Cancel stops renewals, access continues until the period ends
	Cancel(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error)

	Status(ctx context.Context, tenantID uuid.UUID) (*SubscriptionView, error)

	// CheckAccess grace period aware access decision
	CheckAccess(ctx context.Context, tenantID uuid.UUID) (models.AccessState, error)

	// SweepExpired advances time based states, returns the number of changed subscriptions
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	// SetStatus manual override by an agency admin
	SetStatus(ctx context.Context, tenantID uuid.UUID, status models.SubscriptionStatus) (*models.Subscription, error)

	ListPayments(ctx context.Context, tenantID uuid.UUID, status string, page dto.PaginationRequest) ([]models.Payment, int64, error)
}
