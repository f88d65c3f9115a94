package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/notify"
	"uppypro/internal/notify/mocks"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func newTenantService(t *testing.T, repos *repositories.Repositories, mailer notify.Mailer) TenantService {
	t.Helper()
	if mailer == nil {
		mailer = nopMailer{}
	}
	return NewTenantService(repos, newNotifications(repos, nil), mailer, "https://app.test", zap.NewNop())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "guzellik-salonu-ayse", Slugify("Güzellik Salonu Ayşe"))
	assert.Equal(t, "cicek-dukkani", Slugify("  Çiçek   Dükkanı! "))
}

func TestCreateTenant(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := newTenantService(t, repos, nil)
	actor := Actor{UserID: uuid.New(), Email: "ayse@test.com", FullName: "Ayşe"}

	tenant, err := svc.Create(ctx, actor, CreateTenantInput{Name: "Güzellik Salonu Ayşe"})
	require.NoError(t, err)
	assert.Equal(t, "guzellik-salonu-ayse", tenant.Slug)
	assert.Equal(t, "Europe/Istanbul", tenant.Settings.Timezone)

	member, err := repos.Members.FindByTenantAndUser(ctx, tenant.ID, actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTenantOwner, member.Role)

	sub, err := repos.Subscriptions.FindByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPendingPayment, sub.Status)

	settings, err := repos.AgentSettings.FindByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, settings.IsActive())

	_, err = svc.Create(ctx, actor, CreateTenantInput{Name: "Başka", Slug: "guzellik-salonu-ayse"})
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateEntry))

	_, err = svc.Create(ctx, actor, CreateTenantInput{Name: "X", Slug: "Bad Slug"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.Create(ctx, actor, CreateTenantInput{Name: "Y", Timezone: "Mars/Olympus"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestLastOwnerIsProtected(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := newTenantService(t, repos, nil)
	tenant := seedTenant(t, repos, "salon")
	owner := seedMember(t, repos, tenant.ID, "owner@salon.test", models.RoleTenantOwner)
	employee := seedMember(t, repos, tenant.ID, "emp@salon.test", models.RoleTenantEmployee)

	_, err := svc.UpdateMemberRole(ctx, tenant.ID, owner.ID, models.RoleTenantEmployee)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	err = svc.RemoveMember(ctx, tenant.ID, owner.ID)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	promoted, err := svc.UpdateMemberRole(ctx, tenant.ID, employee.ID, models.RoleTenantOwner)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTenantOwner, promoted.Role)

	// with a second owner the first may step down
	_, err = svc.UpdateMemberRole(ctx, tenant.ID, owner.ID, models.RoleTenantEmployee)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMember(ctx, tenant.ID, owner.ID))

	members, err := svc.ListMembers(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestInviteAndAccept(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "berber")
	owner := Actor{UserID: uuid.New(), Email: "owner@berber.test"}

	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)
	var sentLink string
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, email notify.Email) (string, error) {
		assert.Equal(t, []string{"yeni@berber.test"}, email.To)
		sentLink = email.Text
		return "email-1", nil
	})

	svc := newTenantService(t, repos, mailer)

	res, err := svc.Invite(ctx, tenant.ID, owner, " Yeni@Berber.test ", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTenantEmployee, res.Invite.Role)
	assert.NotEqual(t, res.Token, res.Invite.TokenHash, "only the hash is stored")
	assert.True(t, strings.Contains(sentLink, "https://app.test/invite?token="+res.Token))

	pending, err := svc.ListInvites(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = svc.AcceptInvite(ctx, Actor{UserID: uuid.New(), Email: "baska@test.com"}, res.Token)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	joiner := Actor{UserID: uuid.New(), Email: "YENI@berber.test", FullName: "Mehmet"}
	member, err := svc.AcceptInvite(ctx, joiner, res.Token)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, member.TenantID)
	assert.Equal(t, models.RoleTenantEmployee, member.Role)

	_, err = svc.AcceptInvite(ctx, joiner, res.Token)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "single use")

	_, err = svc.AcceptInvite(ctx, joiner, "not-a-token")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = svc.Invite(ctx, tenant.ID, owner, "x@test.com", models.RoleAgencyAdmin)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestAcceptExpiredInvite(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "kafe")
	svc := newTenantService(t, repos, nil)

	res, err := svc.Invite(ctx, tenant.ID, Actor{UserID: uuid.New()}, "a@kafe.test", models.RoleTenantOwner)
	require.NoError(t, err)

	restore := timeNow
	timeNow = func() time.Time { return time.Now().UTC().Add(8 * 24 * time.Hour) }
	defer func() { timeNow = restore }()

	_, err = svc.AcceptInvite(ctx, Actor{UserID: uuid.New(), Email: "a@kafe.test"}, res.Token)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestResolveMembership(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := newTenantService(t, repos, nil)

	first := seedTenant(t, repos, "bir")
	second := seedTenant(t, repos, "iki")
	member := seedMember(t, repos, first.ID, "u@test.com", models.RoleTenantEmployee)

	got, err := svc.ResolveMembership(ctx, member.UserID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.TenantID)

	_, err = svc.ResolveMembership(ctx, member.UserID, &second.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	admin := seedMember(t, repos, first.ID, "admin@uppypro.test", models.RoleAgencyAdmin)
	got, err = svc.ResolveMembership(ctx, admin.UserID, &second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.TenantID)
	assert.True(t, got.IsAgencyAdmin())

	missing := uuid.New()
	_, err = svc.ResolveMembership(ctx, admin.UserID, &missing)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	second.IsActive = false
	require.NoError(t, repos.Tenants.Update(ctx, second))
	seedMember(t, repos, second.ID, "u2@test.com", models.RoleTenantOwner)
	_, err = svc.ResolveMembership(ctx, member.UserID, &second.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := newTenantService(t, repos, nil)
	tenant := seedTenant(t, repos, "panel")
	conn := seedConnection(t, repos, tenant.ID, models.ChannelWhatsApp, "p-1")

	for i, handle := range []string{"905001", "905002"} {
		conv := &models.Conversation{
			TenantID:            tenant.ID,
			ChannelConnectionID: conn.ID,
			Channel:             models.ChannelWhatsApp,
			CustomerHandle:      handle,
			Status:              models.StatusOpen,
			UnreadCount:         i + 2,
		}
		require.NoError(t, repos.Conversations.Create(ctx, conv))
	}

	now := time.Now().In(tenant.Location())
	noon := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, tenant.Location())
	require.NoError(t, repos.Appointments.Create(ctx, &models.Appointment{
		TenantID:     tenant.ID,
		CustomerName: "Zeynep",
		StartsAt:     noon.UTC(),
		EndsAt:       noon.Add(time.Hour).UTC(),
		Status:       models.AppointmentScheduled,
		Source:       models.SourceManual,
	}))

	summary, err := svc.Dashboard(ctx, tenant.ID, uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.OpenConversations)
	assert.EqualValues(t, 5, summary.UnreadMessages)
	assert.EqualValues(t, 1, summary.TodayAppointments)
	assert.EqualValues(t, 0, summary.UnreadNotifications)
}
