package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"uppypro/internal/database"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db, err := database.OpenMemory(uuid.NewString(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return NewRepositories(db)
}

func seedTenant(t *testing.T, repos *Repositories, slug string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{Name: slug, Slug: slug, IsActive: true}
	require.NoError(t, repos.Tenants.Create(context.Background(), tenant))
	return tenant
}

func seedConnection(t *testing.T, repos *Repositories, tenantID uuid.UUID, externalID string) *models.ChannelConnection {
	t.Helper()
	conn := &models.ChannelConnection{
		TenantID:    tenantID,
		Channel:     models.ChannelWhatsApp,
		Status:      models.ConnectionConnected,
		ExternalID:  externalID,
		Credentials: models.ChannelCredentials{AccessToken: "tok"},
	}
	require.NoError(t, repos.Connections.Create(context.Background(), conn))
	return conn
}

func TestWebhookEventClaim(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	newEvent := func() *models.WebhookEvent {
		return &models.WebhookEvent{Provider: models.WebhookIyzico, EventKey: "ref-1", EventType: "subscription.order.success"}
	}

	ev, res, err := repos.WebhookEvents.Claim(ctx, newEvent(), 3)
	require.NoError(t, err)
	assert.Equal(t, ClaimNew, res)
	assert.True(t, res.Owned())

	// same delivery while the first is still processing
	_, res, err = repos.WebhookEvents.Claim(ctx, newEvent(), 3)
	require.NoError(t, err)
	assert.Equal(t, ClaimInProgress, res)

	ev.MarkFailed(errors.New("db down"))
	require.NoError(t, repos.WebhookEvents.Save(ctx, ev))

	retried, res, err := repos.WebhookEvents.Claim(ctx, newEvent(), 3)
	require.NoError(t, err)
	assert.Equal(t, ClaimRetry, res)
	assert.Equal(t, ev.ID, retried.ID)
	assert.Equal(t, models.WebhookStatusProcessing, retried.Status)

	retried.MarkProcessed()
	require.NoError(t, repos.WebhookEvents.Save(ctx, retried))

	_, res, err = repos.WebhookEvents.Claim(ctx, newEvent(), 3)
	require.NoError(t, err)
	assert.Equal(t, ClaimDuplicate, res)
	assert.False(t, res.Owned())

	// a different provider with the same key is a different event
	_, res, err = repos.WebhookEvents.Claim(ctx, &models.WebhookEvent{Provider: models.WebhookPayTR, EventKey: "ref-1"}, 3)
	require.NoError(t, err)
	assert.Equal(t, ClaimNew, res)
}

func TestWebhookEventClaimExhausted(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	ev, _, err := repos.WebhookEvents.Claim(ctx, &models.WebhookEvent{Provider: models.WebhookIyzico, EventKey: "k"}, 1)
	require.NoError(t, err)
	ev.MarkFailed(errors.New("boom"))
	require.NoError(t, repos.WebhookEvents.Save(ctx, ev))

	_, res, err := repos.WebhookEvents.Claim(ctx, &models.WebhookEvent{Provider: models.WebhookIyzico, EventKey: "k"}, 1)
	require.NoError(t, err)
	assert.Equal(t, ClaimExhausted, res)
}

func TestSubscriptionUpdateVersioned(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "salon")

	sub := &models.Subscription{TenantID: tenant.ID, Status: models.SubscriptionPendingPayment}
	require.NoError(t, repos.Subscriptions.Create(ctx, sub))
	assert.Equal(t, 1, sub.Version)

	a, err := repos.Subscriptions.FindByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	b, err := repos.Subscriptions.FindByTenant(ctx, tenant.ID)
	require.NoError(t, err)

	a.ApplyPaymentSuccess(time.Now().UTC(), models.IntervalMonthly)
	require.NoError(t, repos.Subscriptions.UpdateVersioned(ctx, a))
	assert.Equal(t, 2, a.Version)

	b.Cancel(time.Now().UTC())
	err = repos.Subscriptions.UpdateVersioned(ctx, b)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, err := repos.Subscriptions.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, stored.Status)
	assert.Equal(t, 2, stored.Version)
	assert.Nil(t, stored.CanceledAt)
}

func TestOAuthStateConsume(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	now := time.Now().UTC()

	require.NoError(t, repos.OAuthStates.Create(ctx, &models.OAuthState{
		StateHash: "live", TenantID: uuid.New(), UserID: uuid.New(), Provider: "instagram", ExpiresAt: now.Add(10 * time.Minute),
	}))
	require.NoError(t, repos.OAuthStates.Create(ctx, &models.OAuthState{
		StateHash: "old", TenantID: uuid.New(), UserID: uuid.New(), Provider: "instagram", ExpiresAt: now.Add(-time.Minute),
	}))

	state, err := repos.OAuthStates.Consume(ctx, "live", now)
	require.NoError(t, err)
	assert.NotNil(t, state.UsedAt)

	_, err = repos.OAuthStates.Consume(ctx, "live", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repos.OAuthStates.Consume(ctx, "old", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repos.OAuthStates.Consume(ctx, "missing", now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConversationListAndCounters(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "salon")
	other := seedTenant(t, repos, "other")
	conn := seedConnection(t, repos, tenant.ID, "pn-1")
	otherConn := seedConnection(t, repos, other.ID, "pn-2")

	ayse := &models.Conversation{TenantID: tenant.ID, ChannelConnectionID: conn.ID, Channel: models.ChannelWhatsApp, CustomerHandle: "905551112233", CustomerName: "Ayşe Kaya", Status: models.StatusOpen}
	mehmet := &models.Conversation{TenantID: tenant.ID, ChannelConnectionID: conn.ID, Channel: models.ChannelWhatsApp, CustomerHandle: "905554445566", CustomerName: "Mehmet", Status: models.StatusClosed}
	foreign := &models.Conversation{TenantID: other.ID, ChannelConnectionID: otherConn.ID, Channel: models.ChannelWhatsApp, CustomerHandle: "905551112233", CustomerName: "Ayşe", Status: models.StatusOpen}
	for _, c := range []*models.Conversation{ayse, mehmet, foreign} {
		require.NoError(t, repos.Conversations.Create(ctx, c))
	}

	// unique per (connection, customer)
	dup := &models.Conversation{TenantID: tenant.ID, ChannelConnectionID: conn.ID, Channel: models.ChannelWhatsApp, CustomerHandle: "905551112233"}
	assert.ErrorIs(t, repos.Conversations.Create(ctx, dup), apperrors.ErrDuplicateEntry)

	list, total, err := repos.Conversations.List(ctx, tenant.ID, FindOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	list, total, err = repos.Conversations.List(ctx, tenant.ID, FindOptions{Filters: map[string]interface{}{"status": models.StatusOpen}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, ayse.ID, list[0].ID)

	_, total, err = repos.Conversations.List(ctx, tenant.ID, FindOptions{Filters: map[string]interface{}{"search": "MEHM"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, total, err = repos.Conversations.List(ctx, tenant.ID, FindOptions{Filters: map[string]interface{}{"search": "4445"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	now := time.Now().UTC()
	require.NoError(t, repos.Conversations.RecordInbound(ctx, mehmet.ID, now, "tekrar merhaba"))
	require.NoError(t, repos.Conversations.RecordInbound(ctx, mehmet.ID, now, "orada mısınız"))
	require.NoError(t, repos.Conversations.RecordInbound(ctx, ayse.ID, now, "selam"))

	reloaded, err := repos.Conversations.FindByID(ctx, tenant.ID, mehmet.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.UnreadCount)
	assert.Equal(t, models.StatusOpen, reloaded.Status)
	assert.Equal(t, "orada mısınız", *reloaded.LastMessagePreview)
	require.NotNil(t, reloaded.ChannelConnection)

	unread, err := repos.Conversations.SumUnread(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	open, err := repos.Conversations.CountOpen(ctx, tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, open)

	require.NoError(t, repos.Conversations.MarkRead(ctx, tenant.ID, mehmet.ID))
	assert.ErrorIs(t, repos.Conversations.MarkRead(ctx, other.ID, mehmet.ID), apperrors.ErrNotFound)

	_, err = repos.Conversations.FindByID(ctx, other.ID, ayse.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConversationUpdateKeepsInboundCounters(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "kuafor")
	conn := seedConnection(t, repos, tenant.ID, "pn-3")

	conv := &models.Conversation{TenantID: tenant.ID, ChannelConnectionID: conn.ID, Channel: models.ChannelWhatsApp, CustomerHandle: "905557778899", Status: models.StatusClosed}
	require.NoError(t, repos.Conversations.Create(ctx, conv))

	loaded, err := repos.Conversations.FindByID(ctx, tenant.ID, conv.ID)
	require.NoError(t, err)

	// a customer message lands after the handoff read the row
	require.NoError(t, repos.Conversations.RecordInbound(ctx, conv.ID, time.Now().UTC(), "hâlâ bekliyorum"))

	loaded.PauseAI("müşteri temsilci istedi")
	require.NoError(t, repos.Conversations.Update(ctx, loaded, "ai_paused", "ai_paused_reason"))

	assert.True(t, loaded.AIPaused)
	assert.Equal(t, 1, loaded.UnreadCount, "reloaded after the write")

	got, err := repos.Conversations.FindByID(ctx, tenant.ID, conv.ID)
	require.NoError(t, err)
	assert.True(t, got.AIPaused)
	assert.Equal(t, 1, got.UnreadCount)
	assert.Equal(t, models.StatusOpen, got.Status)
	require.NotNil(t, got.LastMessagePreview)
	assert.Equal(t, "hâlâ bekliyorum", *got.LastMessagePreview)

	assert.ErrorIs(t, repos.Conversations.Update(ctx, loaded), apperrors.ErrInvalidInput)
	assert.ErrorIs(t, repos.Conversations.Update(ctx, &models.Conversation{BaseModel: models.BaseModel{ID: uuid.New()}}, "status"), apperrors.ErrNotFound)
}

func TestMessageDedupAndOrdering(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "salon")
	conn := seedConnection(t, repos, tenant.ID, "pn-1")
	conv := &models.Conversation{TenantID: tenant.ID, ChannelConnectionID: conn.ID, Channel: models.ChannelWhatsApp, CustomerHandle: "90555", Status: models.StatusOpen}
	require.NoError(t, repos.Conversations.Create(ctx, conv))

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, text := range []string{"bir", "iki", "üç"} {
		wamid := "wamid." + text
		require.NoError(t, repos.Messages.Create(ctx, &models.Message{
			TenantID: tenant.ID, ConversationID: conv.ID, Direction: models.DirectionIn, SenderType: models.SenderCustomer,
			Text: text, MessageType: models.MessageText, ChannelMessageID: &wamid, DeliveryStatus: models.DeliveryReceived,
			SentAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	dupID := "wamid.bir"
	err := repos.Messages.Create(ctx, &models.Message{
		TenantID: tenant.ID, ConversationID: conv.ID, Direction: models.DirectionIn, SenderType: models.SenderCustomer,
		Text: "bir", ChannelMessageID: &dupID, DeliveryStatus: models.DeliveryReceived, SentAt: base,
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEntry)

	// outbound failures have no channel id, several may coexist
	for i := 0; i < 2; i++ {
		require.NoError(t, repos.Messages.Create(ctx, &models.Message{
			TenantID: tenant.ID, ConversationID: conv.ID, Direction: models.DirectionOut, SenderType: models.SenderAgent,
			Text: "yanıt", DeliveryStatus: models.DeliveryFailed, SentAt: base.Add(time.Hour),
		}))
	}

	recent, err := repos.Messages.ListRecent(ctx, conv.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "üç", recent[0].Text)
	assert.Equal(t, "yanıt", recent[2].Text)

	page, total, err := repos.Messages.ListByConversation(ctx, conv.ID, FindOptions{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Equal(t, "bir", page[0].Text)

	found, err := repos.Messages.FindByChannelMessageID(ctx, "wamid.iki")
	require.NoError(t, err)
	assert.Equal(t, "iki", found.Text)
}

func TestAppointmentHasOverlap(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "salon")
	emp := &models.TenantEmployee{TenantID: tenant.ID, FullName: "Zeynep", IsActive: true}
	require.NoError(t, repos.Employees.Create(ctx, emp))

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	appt := &models.Appointment{TenantID: tenant.ID, EmployeeID: &emp.ID, CustomerName: "Ayşe", StartsAt: start, EndsAt: start.Add(time.Hour), Status: models.AppointmentScheduled, Source: models.SourceManual}
	require.NoError(t, repos.Appointments.Create(ctx, appt))

	overlap, err := repos.Appointments.HasOverlap(ctx, tenant.ID, emp.ID, start.Add(30*time.Minute), start.Add(90*time.Minute), nil)
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = repos.Appointments.HasOverlap(ctx, tenant.ID, emp.ID, start.Add(time.Hour), start.Add(2*time.Hour), nil)
	require.NoError(t, err)
	assert.False(t, overlap, "back to back is allowed")

	overlap, err = repos.Appointments.HasOverlap(ctx, tenant.ID, emp.ID, start, start.Add(time.Hour), &appt.ID)
	require.NoError(t, err)
	assert.False(t, overlap, "an appointment does not overlap itself")

	appt.Status = models.AppointmentCanceled
	require.NoError(t, repos.Appointments.Update(ctx, appt))
	overlap, err = repos.Appointments.HasOverlap(ctx, tenant.ID, emp.ID, start, start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.False(t, overlap)

	count, err := repos.Appointments.CountBetween(ctx, tenant.ID, start.Add(-time.Hour), start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationVisibility(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenantID := uuid.New()
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, repos.Notifications.Create(ctx, &models.Notification{TenantID: tenantID, Type: models.NotifyNewConversation, Title: "Yeni konuşma"}))
	require.NoError(t, repos.Notifications.Create(ctx, &models.Notification{TenantID: tenantID, UserID: &alice, Type: models.NotifyAIHandoff, Title: "Devir"}))
	require.NoError(t, repos.Notifications.Create(ctx, &models.Notification{TenantID: uuid.New(), Type: models.NotifyNewConversation, Title: "başka"}))

	items, total, err := repos.Notifications.ListForUser(ctx, tenantID, alice, FindOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	_, total, err = repos.Notifications.ListForUser(ctx, tenantID, bob, FindOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	n, err := repos.Notifications.MarkAllRead(ctx, tenantID, alice, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	unread, err := repos.Notifications.CountUnread(ctx, tenantID, alice)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestMemberRepository(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "salon")
	userID := uuid.New()

	owner := &models.TenantMember{TenantID: tenant.ID, UserID: userID, Email: "owner@salon.com", Role: models.RoleTenantOwner}
	require.NoError(t, repos.Members.Create(ctx, owner))
	assert.ErrorIs(t, repos.Members.Create(ctx, &models.TenantMember{TenantID: tenant.ID, UserID: userID, Email: "x", Role: models.RoleTenantEmployee}), apperrors.ErrDuplicateEntry)

	emails, err := repos.Members.OwnerEmails(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@salon.com"}, emails)

	memberships, err := repos.Members.FindByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	require.NotNil(t, memberships[0].Tenant)
	assert.Equal(t, "salon", memberships[0].Tenant.Slug)

	isAdmin, err := repos.Members.IsAgencyAdmin(ctx, userID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, repos.Members.Delete(ctx, tenant.ID, owner.ID))
	require.NoError(t, repos.Members.Create(ctx, &models.TenantMember{TenantID: tenant.ID, UserID: userID, Email: "owner@salon.com", Role: models.RoleTenantOwner}))
}

func TestRepositoriesTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	err := repos.Transaction(ctx, func(tx *Repositories) error {
		if err := tx.Tenants.Create(ctx, &models.Tenant{Name: "x", Slug: "x"}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = repos.Tenants.FindBySlug(ctx, "x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
