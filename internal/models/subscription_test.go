package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGrace = 72 * time.Hour

func timePtr(t time.Time) *time.Time { return &t }

func TestSubscriptionAccess(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		sub       *Subscription
		allowed   bool
		inGrace   bool
		reason    string
		wantGrace *time.Time
	}{
		{
			name:   "nil subscription is blocked",
			sub:    nil,
			reason: "no_subscription",
		},
		{
			name:    "active within period",
			sub:     &Subscription{Status: SubscriptionActive, CurrentPeriodEnd: timePtr(now.Add(24 * time.Hour))},
			allowed: true,
		},
		{
			name:      "active past period end within grace",
			sub:       &Subscription{Status: SubscriptionActive, CurrentPeriodEnd: timePtr(now.Add(-24 * time.Hour))},
			allowed:   true,
			inGrace:   true,
			reason:    "renewal_pending",
			wantGrace: timePtr(now.Add(48 * time.Hour)),
		},
		{
			name:   "active past grace",
			sub:    &Subscription{Status: SubscriptionActive, CurrentPeriodEnd: timePtr(now.Add(-100 * time.Hour))},
			reason: "period_ended",
		},
		{
			name:    "canceled before period end",
			sub:     &Subscription{Status: SubscriptionCanceled, CurrentPeriodEnd: timePtr(now.Add(time.Hour))},
			allowed: true,
			reason:  "canceled_until_period_end",
		},
		{
			name:   "canceled after period end",
			sub:    &Subscription{Status: SubscriptionCanceled, CurrentPeriodEnd: timePtr(now.Add(-time.Hour))},
			reason: "canceled",
		},
		{
			name:      "past due within grace",
			sub:       &Subscription{Status: SubscriptionPastDue, PastDueSince: timePtr(now.Add(-24 * time.Hour))},
			allowed:   true,
			inGrace:   true,
			reason:    "past_due",
			wantGrace: timePtr(now.Add(48 * time.Hour)),
		},
		{
			name:   "unpaid past grace",
			sub:    &Subscription{Status: SubscriptionUnpaid, PastDueSince: timePtr(now.Add(-73 * time.Hour))},
			reason: "unpaid",
		},
		{
			name:      "past due falls back to period end",
			sub:       &Subscription{Status: SubscriptionPastDue, CurrentPeriodEnd: timePtr(now.Add(-time.Hour))},
			allowed:   true,
			inGrace:   true,
			reason:    "past_due",
			wantGrace: timePtr(now.Add(71 * time.Hour)),
		},
		{
			name:   "suspended",
			sub:    &Subscription{Status: SubscriptionSuspended, CurrentPeriodEnd: timePtr(now.Add(240 * time.Hour))},
			reason: "suspended",
		},
		{
			name:   "pending payment",
			sub:    &Subscription{Status: SubscriptionPendingPayment},
			reason: "pending_payment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sub.Access(now, testGrace)
			assert.Equal(t, tt.allowed, got.Allowed)
			assert.Equal(t, tt.inGrace, got.InGrace)
			assert.Equal(t, tt.reason, got.Reason)
			if tt.wantGrace != nil {
				require.NotNil(t, got.GraceUntil)
				assert.True(t, tt.wantGrace.Equal(*got.GraceUntil))
			} else {
				assert.Nil(t, got.GraceUntil)
			}
		})
	}
}

func TestSubscriptionApplyPaymentSuccess(t *testing.T) {
	at := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	t.Run("activates pending subscription from payment time", func(t *testing.T) {
		s := &Subscription{Status: SubscriptionPendingPayment}

		changed := s.ApplyPaymentSuccess(at, IntervalMonthly)

		assert.True(t, changed)
		assert.Equal(t, SubscriptionActive, s.Status)
		require.NotNil(t, s.CurrentPeriodEnd)
		assert.True(t, s.CurrentPeriodEnd.Equal(at.AddDate(0, 1, 0)))
		assert.True(t, s.CurrentPeriodStart.Equal(at))
	})

	t.Run("early renewal stacks on current period", func(t *testing.T) {
		end := at.Add(5 * 24 * time.Hour)
		s := &Subscription{Status: SubscriptionActive, CurrentPeriodStart: timePtr(at.AddDate(0, -1, 0)), CurrentPeriodEnd: &end}

		changed := s.ApplyPaymentSuccess(at, IntervalMonthly)

		assert.False(t, changed)
		assert.True(t, s.CurrentPeriodStart.Equal(end))
		assert.True(t, s.CurrentPeriodEnd.Equal(end.AddDate(0, 1, 0)))
	})

	t.Run("renewal after period end starts at payment time", func(t *testing.T) {
		end := at.Add(-time.Hour)
		s := &Subscription{Status: SubscriptionActive, CurrentPeriodStart: timePtr(end.AddDate(0, -1, 0)), CurrentPeriodEnd: &end}

		s.ApplyPaymentSuccess(at, IntervalMonthly)

		assert.True(t, s.CurrentPeriodStart.Equal(at))
		assert.True(t, s.CurrentPeriodEnd.Equal(at.AddDate(0, 1, 0)))
	})

	t.Run("recovers past due and clears dunning", func(t *testing.T) {
		s := &Subscription{Status: SubscriptionPastDue, PastDueSince: timePtr(at.Add(-time.Hour)), CurrentPeriodEnd: timePtr(at.Add(-2 * time.Hour))}

		changed := s.ApplyPaymentSuccess(at, IntervalYearly)

		assert.True(t, changed)
		assert.Nil(t, s.PastDueSince)
		assert.True(t, s.CurrentPeriodEnd.Equal(at.AddDate(1, 0, 0)))
	})
}

func TestSubscriptionApplyPaymentFailure(t *testing.T) {
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	s := &Subscription{Status: SubscriptionActive}
	assert.True(t, s.ApplyPaymentFailure(at, testGrace))
	assert.Equal(t, SubscriptionPastDue, s.Status)
	require.NotNil(t, s.PastDueSince)
	assert.True(t, s.PastDueSince.Equal(at))

	// second failure inside grace keeps past_due and the original start
	assert.False(t, s.ApplyPaymentFailure(at.Add(24*time.Hour), testGrace))
	assert.Equal(t, SubscriptionPastDue, s.Status)
	assert.True(t, s.PastDueSince.Equal(at))

	assert.True(t, s.ApplyPaymentFailure(at.Add(testGrace), testGrace))
	assert.Equal(t, SubscriptionUnpaid, s.Status)

	canceled := &Subscription{Status: SubscriptionCanceled}
	assert.False(t, canceled.ApplyPaymentFailure(at, testGrace))
	assert.Equal(t, SubscriptionCanceled, canceled.Status)
}

func TestSubscriptionExpire(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	lapsedAt := now.Add(-testGrace - time.Minute)
	active := &Subscription{Status: SubscriptionActive, CurrentPeriodEnd: timePtr(lapsedAt)}
	assert.False(t, active.Access(now, testGrace).Allowed)
	assert.True(t, active.Expire(now, testGrace))
	assert.Equal(t, SubscriptionPastDue, active.Status)
	assert.True(t, active.PastDueSince.Equal(lapsedAt))

	// the grace window is not granted a second time
	access := active.Access(now, testGrace)
	assert.False(t, access.Allowed)
	assert.Equal(t, "past_due", access.Reason)

	assert.True(t, active.Expire(now, testGrace))
	assert.Equal(t, SubscriptionSuspended, active.Status)

	fresh := &Subscription{Status: SubscriptionActive, CurrentPeriodEnd: timePtr(now.Add(-time.Hour))}
	assert.False(t, fresh.Expire(now, testGrace))

	unpaid := &Subscription{Status: SubscriptionUnpaid, PastDueSince: timePtr(now.Add(-testGrace))}
	assert.True(t, unpaid.Expire(now, testGrace))
	assert.Equal(t, SubscriptionSuspended, unpaid.Status)

	canceled := &Subscription{Status: SubscriptionCanceled, CurrentPeriodEnd: timePtr(now.Add(-1000 * time.Hour))}
	assert.False(t, canceled.Expire(now, testGrace))
}

func TestSubscriptionEventOrdering(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	s := &Subscription{}
	assert.False(t, s.IsStale(t1))

	s.MarkEvent(t2)
	assert.True(t, s.IsStale(t1))
	assert.False(t, s.IsStale(t2))

	s.MarkEvent(t1)
	assert.True(t, s.LastEventAt.Equal(t2))
}

func TestSubscriptionCancel(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Subscription{Status: SubscriptionActive}

	assert.True(t, s.Cancel(at))
	assert.False(t, s.Cancel(at.Add(time.Hour)))
	assert.True(t, s.CanceledAt.Equal(at))
}
