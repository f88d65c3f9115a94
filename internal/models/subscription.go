package models

import (
	"time"

	"github.com/google/uuid"
)

// ===========================================================================
// Subscription
// One per tenant. Driven by Iyzico subscription webhooks and PayTR callbacks.
// ===========================================================================

// SubscriptionStatus lifecycle states
type SubscriptionStatus string

const (
	SubscriptionActive         SubscriptionStatus = "active"
	SubscriptionCanceled       SubscriptionStatus = "canceled"
	SubscriptionPastDue        SubscriptionStatus = "past_due"
	SubscriptionUnpaid         SubscriptionStatus = "unpaid"
	SubscriptionSuspended      SubscriptionStatus = "suspended"
	SubscriptionPendingPayment SubscriptionStatus = "pending_payment"
)

// IsValid reports whether s is a known status
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionCanceled, SubscriptionPastDue,
		SubscriptionUnpaid, SubscriptionSuspended, SubscriptionPendingPayment:
		return true
	}
	return false
}

// Subscription billing state of a tenant
type Subscription struct {
	BaseModel

	TenantID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	PlanID   *uuid.UUID `gorm:"type:uuid" json:"plan_id,omitempty"`

	Status SubscriptionStatus `gorm:"size:30;not null;index" json:"status"`

	// Provider billing the current period (iyzico, paytr)
	Provider PaymentProvider `gorm:"size:20" json:"provider,omitempty"`

	// Iyzico references
	IyzicoSubscriptionRef *string `gorm:"size:100;uniqueIndex" json:"iyzico_subscription_ref,omitempty"`
	IyzicoCustomerRef     *string `gorm:"size:100" json:"iyzico_customer_ref,omitempty"`
	IyzicoCheckoutToken   *string `gorm:"size:255;index" json:"-"`

	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`

	// PastDueSince first failed charge of the current dunning cycle
	PastDueSince *time.Time `json:"past_due_since,omitempty"`
	CanceledAt   *time.Time `json:"canceled_at,omitempty"`

	// LastEventAt occurrence time of the newest applied billing event
	LastEventAt *time.Time `json:"last_event_at,omitempty"`

	// Version optimistic concurrency counter, bumped on every write
	Version int `gorm:"not null;default:1" json:"-"`

	Plan *PricingPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// TableName returns the table name
func (Subscription) TableName() string {
	return "subscriptions"
}

// ===========================================================================
// Access (grace period logic)
// ===========================================================================

// AccessState answer to "may this tenant use the dashboard right now"
type AccessState struct {
	Allowed    bool       `json:"allowed"`
	InGrace    bool       `json:"in_grace"`
	GraceUntil *time.Time `json:"grace_until,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// Access evaluates the subscription at now with the given grace period
func (s *Subscription) Access(now time.Time, grace time.Duration) AccessState {
	if s == nil {
		return AccessState{Reason: "no_subscription"}
	}

	switch s.Status {
	case SubscriptionActive:
		if s.CurrentPeriodEnd == nil || now.Before(*s.CurrentPeriodEnd) {
			return AccessState{Allowed: true}
		}
		until := s.CurrentPeriodEnd.Add(grace)
		if now.Before(until) {
			return AccessState{Allowed: true, InGrace: true, GraceUntil: &until, Reason: "renewal_pending"}
		}
		return AccessState{Reason: "period_ended"}

	case SubscriptionCanceled:
		if s.CurrentPeriodEnd != nil && now.Before(*s.CurrentPeriodEnd) {
			return AccessState{Allowed: true, Reason: "canceled_until_period_end"}
		}
		return AccessState{Reason: "canceled"}

	case SubscriptionPastDue, SubscriptionUnpaid:
		until := s.graceBase().Add(grace)
		if now.Before(until) {
			return AccessState{Allowed: true, InGrace: true, GraceUntil: &until, Reason: string(s.Status)}
		}
		return AccessState{Reason: string(s.Status)}

	case SubscriptionSuspended:
		return AccessState{Reason: "suspended"}

	case SubscriptionPendingPayment:
		return AccessState{Reason: "pending_payment"}
	}

	return AccessState{Reason: "unknown_status"}
}

// graceBase start of the grace window for a subscription in dunning
func (s *Subscription) graceBase() time.Time {
	if s.PastDueSince != nil {
		return *s.PastDueSince
	}
	if s.CurrentPeriodEnd != nil {
		return *s.CurrentPeriodEnd
	}
	return s.UpdatedAt
}

// ===========================================================================
// Transitions
// Each returns true when the status changed
// ===========================================================================

// IsStale reports whether an event that occurred at `at` predates the last applied one
func (s *Subscription) IsStale(at time.Time) bool {
	return s.LastEventAt != nil && at.Before(*s.LastEventAt)
}

// MarkEvent records the occurrence time of an applied event
func (s *Subscription) MarkEvent(at time.Time) {
	if s.LastEventAt == nil || at.After(*s.LastEventAt) {
		s.LastEventAt = &at
	}
}

// ApplyPaymentSuccess activates the subscription and moves it to the next period of one
// interval. A renewal paid before the period ends starts where the current period ends.
func (s *Subscription) ApplyPaymentSuccess(at time.Time, interval PlanInterval) bool {
	prev := s.Status

	start := at
	if s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(at) && s.Status == SubscriptionActive {
		start = *s.CurrentPeriodEnd
	}
	end := interval.AddTo(start)

	s.CurrentPeriodStart = &start
	s.CurrentPeriodEnd = &end
	s.Status = SubscriptionActive
	s.PastDueSince = nil
	s.CanceledAt = nil

	return prev != s.Status
}

// ApplyPaymentFailure moves an active subscription into dunning, and a past_due one
// that already exhausted its grace period to unpaid.
func (s *Subscription) ApplyPaymentFailure(at time.Time, grace time.Duration) bool {
	prev := s.Status

	switch s.Status {
	case SubscriptionActive:
		s.Status = SubscriptionPastDue
		if s.PastDueSince == nil {
			s.PastDueSince = &at
		}
	case SubscriptionPastDue:
		if !at.Before(s.graceBase().Add(grace)) {
			s.Status = SubscriptionUnpaid
		}
	}

	return prev != s.Status
}

// Cancel stops renewals. Access continues until the current period ends.
func (s *Subscription) Cancel(at time.Time) bool {
	prev := s.Status
	s.Status = SubscriptionCanceled
	if s.CanceledAt == nil {
		s.CanceledAt = &at
	}
	return prev != s.Status
}

// Suspend blocks access immediately
func (s *Subscription) Suspend() bool {
	prev := s.Status
	s.Status = SubscriptionSuspended
	return prev != s.Status
}

// Expire advances time based states, used by the periodic sweep
func (s *Subscription) Expire(now time.Time, grace time.Duration) bool {
	prev := s.Status

	switch s.Status {
	case SubscriptionActive:
		if s.CurrentPeriodEnd != nil && !now.Before(s.CurrentPeriodEnd.Add(grace)) {
			// the grace window already ran from the period end
			lapsed := *s.CurrentPeriodEnd
			s.Status = SubscriptionPastDue
			s.PastDueSince = &lapsed
		}
	case SubscriptionPastDue, SubscriptionUnpaid:
		if !now.Before(s.graceBase().Add(grace)) {
			s.Status = SubscriptionSuspended
		}
	}

	return prev != s.Status
}
