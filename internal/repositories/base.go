package repositories

import (
	"context"
	"errors"
	"strings"

	apperrors "uppypro/internal/errors"

	"gorm.io/gorm"
)

// ===========================================================================
// Repository base types
// ===========================================================================

// FindOptions query options for list methods
type FindOptions struct {
	// Offset for pagination
	Offset int

	// Limit max records
	Limit int

	// OrderBy column to sort by
	OrderBy string

	// OrderDir "asc" or "desc"
	OrderDir string

	// Preloads relations to eager load
	Preloads []string

	// Filters repository specific filters
	Filters map[string]interface{}
}

// SetDefaults fills missing values
func (o *FindOptions) SetDefaults() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 200 {
		o.Limit = 200
	}
	if o.OrderBy == "" {
		o.OrderBy = "created_at"
	}
	if o.OrderDir == "" {
		o.OrderDir = "desc"
	}
}

// Restrict resets OrderBy to fallback unless it is one of allowed columns
func (o *FindOptions) Restrict(fallback string, allowed ...string) {
	ok := false
	for _, col := range allowed {
		if o.OrderBy == col {
			ok = true
			break
		}
	}
	if !ok {
		o.OrderBy = fallback
	}
	if d := strings.ToLower(o.OrderDir); d != "asc" && d != "desc" {
		o.OrderDir = "desc"
	}
}

// GetOrderClause returns the ORDER BY clause
func (o *FindOptions) GetOrderClause() string {
	return o.OrderBy + " " + o.OrderDir
}

// filter returns Filters[key] when present and non-empty
func (o *FindOptions) filter(key string) (interface{}, bool) {
	if o.Filters == nil {
		return nil, false
	}
	v, ok := o.Filters[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return nil, false
	}
	return v, true
}

func (o *FindOptions) apply(db *gorm.DB) *gorm.DB {
	for _, p := range o.Preloads {
		db = db.Preload(p)
	}
	return db.Order(o.GetOrderClause()).Offset(o.Offset).Limit(o.Limit)
}

// likePattern lowercase contains pattern, with LIKE wildcards escaped
func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(q)
	return "%" + q + "%"
}

// translateError maps GORM errors to application sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrDuplicateEntry
	}
	return err
}

// ===========================================================================
// Repositories
// All repositories bound to one *gorm.DB, so a transaction can hand out a
// consistent set
// ===========================================================================

type Repositories struct {
	db *gorm.DB

	Tenants       TenantRepository
	Members       MemberRepository
	Invites       InviteRepository
	OAuthStates   OAuthStateRepository
	Subscriptions SubscriptionRepository
	Plans         PricingPlanRepository
	Payments      PaymentRepository
	WebhookEvents WebhookEventRepository
	Connections   ChannelConnectionRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	AgentSettings AgentSettingsRepository
	Locations     LocationRepository
	Employees     EmployeeRepository
	Appointments  AppointmentRepository
	Notifications NotificationRepository
}

// NewRepositories builds every repository on db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:            db,
		Tenants:       NewTenantRepository(db),
		Members:       NewMemberRepository(db),
		Invites:       NewInviteRepository(db),
		OAuthStates:   NewOAuthStateRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		Plans:         NewPricingPlanRepository(db),
		Payments:      NewPaymentRepository(db),
		WebhookEvents: NewWebhookEventRepository(db),
		Connections:   NewChannelConnectionRepository(db),
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db),
		AgentSettings: NewAgentSettingsRepository(db),
		Locations:     NewLocationRepository(db),
		Employees:     NewEmployeeRepository(db),
		Appointments:  NewAppointmentRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single transaction
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Ping checks database connectivity, used by /health
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
