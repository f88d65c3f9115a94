package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"uppypro/internal/auth"
	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/notify"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ===========================================================================
// Tenant Service Implementation
// ===========================================================================

// inviteTTL lifetime of an invite link
const inviteTTL = 7 * 24 * time.Hour

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type tenantService struct {
	repos         *repositories.Repositories
	notifications NotificationService
	mailer        notify.Mailer
	frontendURL   string
	logger        *zap.Logger
}

// NewTenantService creates the TenantService
func NewTenantService(
	repos *repositories.Repositories,
	notifications NotificationService,
	mailer notify.Mailer,
	frontendURL string,
	logger *zap.Logger,
) TenantService {
	return &tenantService{
		repos:         repos,
		notifications: notifications,
		mailer:        mailer,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		logger:        logger.Named("tenants"),
	}
}

// ===========================================================================
// Tenants
// ===========================================================================

func (s *tenantService) Create(ctx context.Context, actor Actor, in CreateTenantInput) (*models.Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "işletme adı zorunludur")
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugPattern.MatchString(slug) || len(slug) > 100 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz kısa ad")
	}

	if _, err := s.repos.Tenants.FindBySlug(ctx, slug); err == nil {
		return nil, apperrors.New(apperrors.ErrDuplicateEntry, "bu kısa ad kullanımda")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	tenant := &models.Tenant{
		Name:  name,
		Slug:  slug,
		Email: in.Email,
		Phone: in.Phone,
		Settings: models.TenantSettings{
			Timezone: in.Timezone,
			Locale:   in.Locale,
		},
		IsActive: true,
	}
	if tenant.Settings.Timezone == "" {
		tenant.Settings.Timezone = "Europe/Istanbul"
	}
	if _, err := time.LoadLocation(tenant.Settings.Timezone); err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz saat dilimi")
	}
	if tenant.Settings.Locale == "" {
		tenant.Settings.Locale = "tr"
	}

	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		if err := tx.Tenants.Create(ctx, tenant); err != nil {
			return err
		}
		owner := &models.TenantMember{
			TenantID: tenant.ID,
			UserID:   actor.UserID,
			Email:    actor.Email,
			FullName: actor.FullName,
			Role:     models.RoleTenantOwner,
		}
		if err := tx.Members.Create(ctx, owner); err != nil {
			return err
		}
		sub := &models.Subscription{
			TenantID: tenant.ID,
			Status:   models.SubscriptionPendingPayment,
		}
		if err := tx.Subscriptions.Create(ctx, sub); err != nil {
			return err
		}
		return tx.AgentSettings.Save(ctx, models.DefaultAgentSettings(tenant.ID))
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEntry) {
			return nil, apperrors.New(apperrors.ErrDuplicateEntry, "bu kısa ad kullanımda")
		}
		return nil, err
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
		zap.String("owner", actor.UserID.String()),
	)
	return tenant, nil
}

func (s *tenantService) Me(ctx context.Context, actor Actor) ([]models.TenantMember, error) {
	return s.repos.Members.FindByUser(ctx, actor.UserID)
}

func (s *tenantService) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.repos.Tenants.FindByID(ctx, tenantID)
	return tenant, notFound(err, "işletme bulunamadı")
}

func (s *tenantService) Update(ctx context.Context, tenantID uuid.UUID, in UpdateTenantInput) (*models.Tenant, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.ErrInvalidInput, "işletme adı zorunludur")
		}
		tenant.Name = name
	}
	if in.Email != nil {
		tenant.Email = in.Email
	}
	if in.Phone != nil {
		tenant.Phone = in.Phone
	}
	if in.Timezone != nil {
		if _, err := time.LoadLocation(*in.Timezone); err != nil || *in.Timezone == "" {
			return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz saat dilimi")
		}
		tenant.Settings.Timezone = *in.Timezone
	}
	if in.Locale != nil {
		tenant.Settings.Locale = *in.Locale
	}
	if in.NotifyEmail != nil {
		tenant.Settings.NotifyEmail = strings.TrimSpace(*in.NotifyEmail)
	}

	if err := s.repos.Tenants.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) Dashboard(ctx context.Context, tenantID, userID uuid.UUID) (*DashboardSummary, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	loc := tenant.Location()
	now := timeNow().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var summary DashboardSummary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repos.Conversations.CountOpen(gctx, tenantID)
		summary.OpenConversations = n
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Conversations.SumUnread(gctx, tenantID)
		summary.UnreadMessages = n
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Appointments.CountBetween(gctx, tenantID, dayStart.UTC(), dayEnd.UTC())
		summary.TodayAppointments = n
		return err
	})
	g.Go(func() error {
		n, err := s.repos.Notifications.CountUnread(gctx, tenantID, userID)
		summary.UnreadNotifications = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *tenantService) ListTenants(ctx context.Context, search string, page dto.PaginationRequest) ([]models.Tenant, int64, error) {
	opts := findOptions(page, "created_at", map[string]interface{}{"search": search})
	return s.repos.Tenants.List(ctx, opts)
}

// ===========================================================================
// Membership resolution
// ===========================================================================

func (s *tenantService) ResolveMembership(ctx context.Context, userID uuid.UUID, tenantID *uuid.UUID) (*models.TenantMember, error) {
	if tenantID == nil {
		memberships, err := s.repos.Members.FindByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		switch len(memberships) {
		case 0:
			return nil, apperrors.New(apperrors.ErrForbidden, "no tenant membership")
		case 1:
			return &memberships[0], nil
		default:
			return nil, apperrors.New(apperrors.ErrInvalidInput, "tenant selection required")
		}
	}

	member, err := s.repos.Members.FindByTenantAndUser(ctx, *tenantID, userID)
	if err == nil {
		if member.Tenant != nil && !member.Tenant.IsActive && !member.IsAgencyAdmin() {
			return nil, apperrors.New(apperrors.ErrForbidden, "tenant is disabled")
		}
		return member, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	isAdmin, err := s.repos.Members.IsAgencyAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, apperrors.New(apperrors.ErrForbidden, "not a member of this tenant")
	}

	tenant, err := s.repos.Tenants.FindByID(ctx, *tenantID)
	if err != nil {
		return nil, err
	}
	return &models.TenantMember{
		TenantID: tenant.ID,
		UserID:   userID,
		Role:     models.RoleAgencyAdmin,
		Tenant:   tenant,
	}, nil
}

// ===========================================================================
// Members
// ===========================================================================

func (s *tenantService) ListMembers(ctx context.Context, tenantID uuid.UUID) ([]models.TenantMember, error) {
	return s.repos.Members.ListByTenant(ctx, tenantID)
}

func (s *tenantService) UpdateMemberRole(ctx context.Context, tenantID, memberID uuid.UUID, role models.MemberRole) (*models.TenantMember, error) {
	if role != models.RoleTenantOwner && role != models.RoleTenantEmployee {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz rol")
	}

	var member *models.TenantMember
	err := s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		var err error
		member, err = tx.Members.FindByID(ctx, tenantID, memberID)
		if err != nil {
			return notFound(err, "üye bulunamadı")
		}
		if member.Role == role {
			return nil
		}
		if member.Role == models.RoleAgencyAdmin {
			return apperrors.New(apperrors.ErrForbidden, "ajans yöneticisinin rolü değiştirilemez")
		}
		if member.Role == models.RoleTenantOwner {
			if err := s.ensureAnotherOwner(ctx, tx, tenantID); err != nil {
				return err
			}
		}
		member.Role = role
		return tx.Members.Update(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *tenantService) RemoveMember(ctx context.Context, tenantID, memberID uuid.UUID) error {
	return s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		member, err := tx.Members.FindByID(ctx, tenantID, memberID)
		if err != nil {
			return notFound(err, "üye bulunamadı")
		}
		if member.Role == models.RoleTenantOwner {
			if err := s.ensureAnotherOwner(ctx, tx, tenantID); err != nil {
				return err
			}
		}
		return tx.Members.Delete(ctx, tenantID, memberID)
	})
}

func (s *tenantService) ensureAnotherOwner(ctx context.Context, tx *repositories.Repositories, tenantID uuid.UUID) error {
	owners, err := tx.Members.CountByRole(ctx, tenantID, models.RoleTenantOwner)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return apperrors.New(apperrors.ErrConflict, "son işletme sahibi kaldırılamaz")
	}
	return nil
}

// ===========================================================================
// Invites
// ===========================================================================

func (s *tenantService) Invite(ctx context.Context, tenantID uuid.UUID, inviter Actor, email string, role models.MemberRole) (*InviteResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz e-posta adresi")
	}
	if role == "" {
		role = models.RoleTenantEmployee
	}
	if role != models.RoleTenantOwner && role != models.RoleTenantEmployee {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "geçersiz rol")
	}

	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	raw, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	invite := &models.TenantInvite{
		TenantID:  tenantID,
		Email:     email,
		Role:      role,
		TokenHash: hash,
		ExpiresAt: timeNow().Add(inviteTTL),
		InvitedBy: inviter.UserID,
	}
	if err := s.repos.Invites.Create(ctx, invite); err != nil {
		return nil, err
	}

	link := s.frontendURL + "/invite?token=" + raw
	if _, err := s.mailer.Send(ctx, notify.InviteEmail(email, tenant.Name, link)); err != nil {
		s.logger.Warn("invite email failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("invite_id", invite.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("member invited",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invite_id", invite.ID.String()),
		zap.String("role", string(role)),
	)
	return &InviteResult{Invite: invite, Token: raw}, nil
}

func (s *tenantService) AcceptInvite(ctx context.Context, actor Actor, rawToken string) (*models.TenantMember, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "davet kodu zorunludur")
	}

	invite, err := s.repos.Invites.FindByTokenHash(ctx, auth.HashToken(rawToken))
	if err != nil {
		return nil, notFound(err, "davet bulunamadı")
	}

	now := timeNow()
	if invite.AcceptedAt != nil {
		return nil, apperrors.New(apperrors.ErrConflict, "davet zaten kullanılmış")
	}
	if !invite.IsUsable(now) {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "davetin süresi dolmuş")
	}
	if !invite.MatchesEmail(actor.Email) {
		return nil, apperrors.New(apperrors.ErrForbidden, "davet başka bir e-posta adresine gönderilmiş")
	}

	member := &models.TenantMember{
		TenantID: invite.TenantID,
		UserID:   actor.UserID,
		Email:    actor.Email,
		FullName: actor.FullName,
		Role:     invite.Role,
	}
	err = s.repos.Transaction(ctx, func(tx *repositories.Repositories) error {
		if err := tx.Invites.MarkAccepted(ctx, invite.ID, now); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return apperrors.New(apperrors.ErrConflict, "davet zaten kullanılmış")
			}
			return err
		}
		if err := tx.Members.Create(ctx, member); err != nil {
			if errors.Is(err, apperrors.ErrDuplicateEntry) {
				return apperrors.New(apperrors.ErrDuplicateEntry, "zaten bu işletmenin üyesisiniz")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	name := actor.FullName
	if name == "" {
		name = actor.Email
	}
	if _, err := s.notifications.Notify(ctx, NotifyInput{
		TenantID: invite.TenantID,
		Type:     models.NotifyMemberJoined,
		Title:    "Yeni ekip üyesi",
		Body:     name + " ekibe katıldı",
		Link:     "/settings/members",
	}); err != nil {
		s.logger.Warn("member joined notification failed", zap.Error(err))
	}

	return member, nil
}

func (s *tenantService) ListInvites(ctx context.Context, tenantID uuid.UUID) ([]models.TenantInvite, error) {
	return s.repos.Invites.ListPending(ctx, tenantID, timeNow())
}

func (s *tenantService) RevokeInvite(ctx context.Context, tenantID, inviteID uuid.UUID) error {
	return notFound(s.repos.Invites.Delete(ctx, tenantID, inviteID), "davet bulunamadı")
}

// ===========================================================================
// Helpers
// ===========================================================================

var slugReplacer = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	"Ç", "c", "Ğ", "g", "İ", "i", "Ö", "o", "Ş", "s", "Ü", "u",
)

// Slugify derives a URL friendly identifier from a business name
func Slugify(name string) string {
	s := strings.ToLower(slugReplacer.Replace(strings.TrimSpace(name)))

	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if len(out) > 100 {
		out = strings.TrimRight(out[:100], "-")
	}
	return out
}
