package repositories

import (
	"context"
	"time"

	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Tenant Repository Interface
// ===========================================================================

type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)

	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)

	// List all tenants with their subscription (agency admin).
	// Filters: "search" (name/slug), "is_active" (bool)
	List(ctx context.Context, opts FindOptions) ([]models.Tenant, int64, error)

	Create(ctx context.Context, tenant *models.Tenant) error

	Update(ctx context.Context, tenant *models.Tenant) error
}

// ===========================================================================
// Member Repository Interface
// ===========================================================================

type MemberRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TenantMember, error)

	// FindByTenantAndUser membership of userID in tenantID
	FindByTenantAndUser(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantMember, error)

	// FindByUser every membership of userID, with the tenant preloaded
	FindByUser(ctx context.Context, userID uuid.UUID) ([]models.TenantMember, error)

	// IsAgencyAdmin reports whether userID holds an agency_admin membership anywhere
	IsAgencyAdmin(ctx context.Context, userID uuid.UUID) (bool, error)

	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.TenantMember, error)

	CountByRole(ctx context.Context, tenantID uuid.UUID, role models.MemberRole) (int64, error)

	// OwnerEmails emails of the tenant owners
	OwnerEmails(ctx context.Context, tenantID uuid.UUID) ([]string, error)

	Create(ctx context.Context, member *models.TenantMember) error

	Update(ctx context.Context, member *models.TenantMember) error

	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// ===========================================================================
// Invite Repository Interface
// ===========================================================================

type InviteRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TenantInvite, error)

	FindByTokenHash(ctx context.Context, hash string) (*models.TenantInvite, error)

	// ListPending invites neither accepted nor expired at now
	ListPending(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]models.TenantInvite, error)

	Create(ctx context.Context, invite *models.TenantInvite) error

	// MarkAccepted sets accepted_at only if still unaccepted, returns ErrConflict otherwise
	MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time) error

	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// ===========================================================================
// OAuth State Repository Interface
// ===========================================================================

type OAuthStateRepository interface {
	Create(ctx context.Context, state *models.OAuthState) error

	// Consume marks the state used and returns it. Expired, unknown or already
	// used states give ErrNotFound.
	Consume(ctx context.Context, hash string, now time.Time) (*models.OAuthState, error)
}
