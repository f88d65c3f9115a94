package services

import (
	"context"

	"uppypro/internal/dto"
	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Tenant Service Interface
// Tenants, memberships and invites
// ===========================================================================

// CreateTenantInput new business account
type CreateTenantInput struct {
	Name     string
	Slug     string
	Email    *string
	Phone    *string
	Timezone string
	Locale   string
}

// UpdateTenantInput partial tenant update, nil fields are left unchanged
type UpdateTenantInput struct {
	Name        *string
	Email       *string
	Phone       *string
	Timezone    *string
	Locale      *string
	NotifyEmail *string
}

// DashboardSummary counters shown on the dashboard home
type DashboardSummary struct {
	OpenConversations   int64 `json:"open_conversations"`
	UnreadMessages      int64 `json:"unread_messages"`
	TodayAppointments   int64 `json:"today_appointments"`
	UnreadNotifications int64 `json:"unread_notifications"`
}

// InviteResult created invite. Token is the raw token, only returned once.
type InviteResult struct {
	Invite *models.TenantInvite
	Token  string
}

// TenantService interface
type TenantService interface {
	// Create creates the tenant with the actor as owner, a pending subscription
	// and default agent settings, in one transaction
	Create(ctx context.Context, actor Actor, in CreateTenantInput) (*models.Tenant, error)

	// Me memberships of the actor with their tenants
	Me(ctx context.Context, actor Actor) ([]models.TenantMember, error)

	Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)

	Update(ctx context.Context, tenantID uuid.UUID, in UpdateTenantInput) (*models.Tenant, error)

	Dashboard(ctx context.Context, tenantID, userID uuid.UUID) (*DashboardSummary, error)

	ListMembers(ctx context.Context, tenantID uuid.UUID) ([]models.TenantMember, error)

	// UpdateMemberRole refuses to demote the last owner
	UpdateMemberRole(ctx context.Context, tenantID, memberID uuid.UUID, role models.MemberRole) (*models.TenantMember, error)

	// RemoveMember refuses to remove the last owner
	RemoveMember(ctx context.Context, tenantID, memberID uuid.UUID) error

	// Invite stores a hashed token valid 7 days and emails the link
	Invite(ctx context.Context, tenantID uuid.UUID, inviter Actor, email string, role models.MemberRole) (*InviteResult, error)

	// AcceptInvite turns a usable invite addressed to the actor's email into a membership
	AcceptInvite(ctx context.Context, actor Actor, rawToken string) (*models.TenantMember, error)

	ListInvites(ctx context.Context, tenantID uuid.UUID) ([]models.TenantInvite, error)

	RevokeInvite(ctx context.Context, tenantID, inviteID uuid.UUID) error

	// ListTenants every tenant with its subscription (agency admin)
	ListTenants(ctx context.Context, search string, page dto.PaginationRequest) ([]models.Tenant, int64, error)

	// ResolveMembership picks the active tenant for userID. A nil tenantID selects
	// the user's only membership. Agency admins resolve into any existing tenant.
	ResolveMembership(ctx context.Context, userID uuid.UUID, tenantID *uuid.UUID) (*models.TenantMember, error)
}
