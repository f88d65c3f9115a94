package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ===========================================================================
// PricingPlan
// Public price list. Managed by agency admins, not tenant scoped.
// ===========================================================================

// PlanInterval billing interval
type PlanInterval string

const (
	IntervalMonthly PlanInterval = "monthly"
	IntervalYearly  PlanInterval = "yearly"
)

// AddTo returns t advanced by one interval
func (i PlanInterval) AddTo(t time.Time) time.Time {
	if i == IntervalYearly {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

type PricingPlan struct {
	BaseModel

	// Code stable identifier used by the dashboard (starter, pro, ...)
	Code string `gorm:"size:50;not null;uniqueIndex" json:"code"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Currency string          `gorm:"size:3;not null;default:'TRY'" json:"currency"`
	Interval PlanInterval    `gorm:"size:20;not null;default:'monthly'" json:"interval"`

	// IyzicoPlanRef pricingPlanReferenceCode on Iyzico
	IyzicoPlanRef string `gorm:"size:100" json:"-"`

	// Features list of feature bullet points, JSON array of strings
	Features datatypes.JSON `json:"features"`

	IsActive  bool `gorm:"default:true" json:"is_active"`
	SortOrder int  `gorm:"default:0" json:"sort_order"`
}

// TableName returns the table name
func (PricingPlan) TableName() string {
	return "pricing_plans"
}

// FeatureList decodes Features
func (p *PricingPlan) FeatureList() []string {
	var out []string
	if len(p.Features) == 0 {
		return out
	}
	_ = json.Unmarshal(p.Features, &out)
	return out
}

// SetFeatures encodes features into the JSON column
func (p *PricingPlan) SetFeatures(features []string) {
	if features == nil {
		features = []string{}
	}
	raw, _ := json.Marshal(features)
	p.Features = datatypes.JSON(raw)
}

// ===========================================================================
// Payment
// ===========================================================================

// PaymentProvider payment gateway
type PaymentProvider string

const (
	ProviderIyzico PaymentProvider = "iyzico"
	ProviderPayTR  PaymentProvider = "paytr"
)

// PaymentStatus state of a single charge
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentPurpose what the charge pays for
type PaymentPurpose string

const (
	PurposeSubscription PaymentPurpose = "subscription"
	PurposeRenewal      PaymentPurpose = "renewal"
	PurposeAddon        PaymentPurpose = "addon"
)

type Payment struct {
	BaseModel

	TenantID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SubscriptionID *uuid.UUID `gorm:"type:uuid;index" json:"subscription_id,omitempty"`
	PlanID         *uuid.UUID `gorm:"type:uuid" json:"plan_id,omitempty"`

	Provider PaymentProvider `gorm:"size:20;not null;uniqueIndex:idx_payment_provider_ref" json:"provider"`

	// ProviderRef merchant_oid for PayTR, order reference code for Iyzico
	ProviderRef string `gorm:"size:100;not null;uniqueIndex:idx_payment_provider_ref" json:"provider_ref"`

	Amount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency string          `gorm:"size:3;not null;default:'TRY'" json:"currency"`

	Status  PaymentStatus  `gorm:"size:20;not null;index" json:"status"`
	Purpose PaymentPurpose `gorm:"size:20;not null" json:"purpose"`

	PaidAt        *time.Time `json:"paid_at,omitempty"`
	FailureReason *string    `gorm:"type:text" json:"failure_reason,omitempty"`

	// Raw last provider payload for support investigations
	Raw datatypes.JSONMap `json:"-"`
}

// TableName returns the table name
func (Payment) TableName() string {
	return "payments"
}

// MarkPaid marks the payment as collected
func (p *Payment) MarkPaid(at time.Time) {
	p.Status = PaymentPaid
	p.PaidAt = &at
	p.FailureReason = nil
}

// MarkFailed marks the payment as declined
func (p *Payment) MarkFailed(reason string) {
	p.Status = PaymentFailed
	if reason != "" {
		p.FailureReason = &reason
	}
}
