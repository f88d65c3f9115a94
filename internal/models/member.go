package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ===========================================================================
// TenantMember
// Link between an identity-provider user and a tenant, with a role.
// Users themselves live in the identity provider, only their subject id is stored.
// ===========================================================================

// MemberRole role inside a tenant
type MemberRole string

const (
	// RoleAgencyAdmin platform operator, may act on any tenant
	RoleAgencyAdmin MemberRole = "agency_admin"

	// RoleTenantOwner owns the business account, manages billing and members
	RoleTenantOwner MemberRole = "tenant_owner"

	// RoleTenantEmployee staff member, works the inbox and calendar
	RoleTenantEmployee MemberRole = "tenant_employee"
)

// IsValid reports whether r is a known role
func (r MemberRole) IsValid() bool {
	switch r {
	case RoleAgencyAdmin, RoleTenantOwner, RoleTenantEmployee:
		return true
	}
	return false
}

// TenantMember membership row
type TenantMember struct {
	BaseModel

	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_tenant_user" json:"tenant_id"`

	// UserID subject (sub claim) from the identity provider
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_tenant_user;index" json:"user_id"`

	Email    string `gorm:"size:255;not null" json:"email"`
	FullName string `gorm:"size:255" json:"full_name"`

	Role MemberRole `gorm:"size:30;not null;default:'tenant_employee'" json:"role"`

	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName returns the table name
func (TenantMember) TableName() string {
	return "tenant_members"
}

// IsOwner tenant owner or agency admin
func (m *TenantMember) IsOwner() bool {
	return m.Role == RoleTenantOwner || m.Role == RoleAgencyAdmin
}

// IsAgencyAdmin platform operator
func (m *TenantMember) IsAgencyAdmin() bool {
	return m.Role == RoleAgencyAdmin
}

// ===========================================================================
// TenantInvite
// Pending invitation. Only the sha256 of the token is stored.
// ===========================================================================

type TenantInvite struct {
	BaseModel

	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`

	Email string     `gorm:"size:255;not null;index" json:"email"`
	Role  MemberRole `gorm:"size:30;not null" json:"role"`

	// TokenHash sha256 hex of the emailed token
	TokenHash string `gorm:"size:64;not null;uniqueIndex" json:"-"`

	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	InvitedBy  uuid.UUID  `gorm:"type:uuid;not null" json:"invited_by"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// TableName returns the table name
func (TenantInvite) TableName() string {
	return "tenant_invites"
}

// IsUsable invite not accepted and not expired
func (i *TenantInvite) IsUsable(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}

// MatchesEmail case-insensitive email comparison
func (i *TenantInvite) MatchesEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(i.Email), strings.TrimSpace(email))
}

// ===========================================================================
// OAuthState
// Short lived state token binding an OAuth redirect to the tenant that started it
// ===========================================================================

type OAuthState struct {
	BaseModel

	StateHash string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null" json:"tenant_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Provider  string    `gorm:"size:30;not null" json:"provider"`

	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// TableName returns the table name
func (OAuthState) TableName() string {
	return "oauth_states"
}

// IsUsable state not consumed and not expired
func (s *OAuthState) IsUsable(now time.Time) bool {
	return s.UsedAt == nil && now.Before(s.ExpiresAt)
}
