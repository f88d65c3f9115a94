package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"uppypro/internal/agent"
	"uppypro/internal/channel"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type messageFixture struct {
	repos     *repositories.Repositories
	svc       MessageService
	fake      *channel.FakeChannel
	forwarder *mockForwarder
	publisher *recordingPublisher
	tenant    *models.Tenant
	conn      *models.ChannelConnection
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "kuafor")
	conn := seedConnection(t, repos, tenant.ID, models.ChannelWhatsApp, "phone-1")

	f := &messageFixture{
		repos:     repos,
		fake:      channel.NewFakeChannel(models.ChannelWhatsApp),
		forwarder: &mockForwarder{},
		publisher: &recordingPublisher{},
		tenant:    tenant,
		conn:      conn,
	}
	f.svc = NewMessageService(
		repos,
		channel.NewRegistry(f.fake),
		f.forwarder,
		newNotifications(repos, nil),
		f.publisher,
		"https://api.test/",
		zap.NewNop(),
	)
	return f
}

func (f *messageFixture) enableAgent(t *testing.T, mode models.ReplyMode) {
	t.Helper()
	require.NoError(t, f.repos.AgentSettings.Save(context.Background(), &models.AgentSettings{
		TenantID:   f.tenant.ID,
		WebhookURL: "https://n8n.test/hook",
		Enabled:    true,
		ReplyMode:  mode,
	}))
}

func inbound(id, text string) *channel.InboundMessage {
	return &channel.InboundMessage{
		Channel:           models.ChannelWhatsApp,
		ExternalAccountID: "phone-1",
		SenderID:          "905551112233",
		SenderName:        "Ayşe",
		ChannelMessageID:  id,
		Text:              text,
		MessageType:       models.MessageText,
		Timestamp:         time.Now().UTC().Truncate(time.Second),
	}
}

func TestProcessInboundCreatesConversation(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	res, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.1", "Merhaba, randevu almak istiyorum"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.True(t, res.ConversationCreated)
	assert.False(t, res.Forwarded)

	conv, err := f.repos.Conversations.FindByID(ctx, f.tenant.ID, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "Ayşe", conv.CustomerName)
	assert.Equal(t, 1, conv.UnreadCount)
	require.NotNil(t, conv.LastMessagePreview)
	assert.Equal(t, "Merhaba, randevu almak istiyorum", *conv.LastMessagePreview)

	msgs, total, err := f.repos.Messages.ListByConversation(ctx, conv.ID, repositories.FindOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, models.DirectionIn, msgs[0].Direction)
	assert.Equal(t, models.DeliveryReceived, msgs[0].DeliveryStatus)

	unread, err := f.repos.Notifications.CountUnread(ctx, f.tenant.ID, uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread, "tenant-wide new conversation notification")

	assert.Eventually(t, func() bool { return f.publisher.messageCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestProcessInboundDeduplicates(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	first, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.dup", "selam"))
	require.NoError(t, err)

	second, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.dup", "selam"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.MessageID, second.MessageID)

	conv, err := f.repos.Conversations.FindByID(ctx, f.tenant.ID, first.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 1, conv.UnreadCount)
}

func TestProcessInboundReopensClosedConversation(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	first, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.a", "ilk"))
	require.NoError(t, err)

	conv, err := f.repos.Conversations.FindByID(ctx, f.tenant.ID, first.ConversationID)
	require.NoError(t, err)
	conv.Close()
	require.NoError(t, f.repos.Conversations.Update(ctx, conv, "status"))

	second, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.b", "tekrar ben"))
	require.NoError(t, err)
	assert.False(t, second.ConversationCreated)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	conv, err = f.repos.Conversations.FindByID(ctx, f.tenant.ID, first.ConversationID)
	require.NoError(t, err)
	assert.True(t, conv.IsOpen())
	assert.Equal(t, 2, conv.UnreadCount)
}

func TestProcessInboundSyncReplyAndHandoff(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	f.enableAgent(t, models.ReplySync)

	f.forwarder.On("Forward", mock.Anything, "https://n8n.test/hook", mock.MatchedBy(func(req *agent.Request) bool {
		return req.Text == "fiyat nedir" &&
			req.Customer.Handle == "905551112233" &&
			req.Callbacks.SendMessage == "https://api.test/internal/v1/messages/send"
	})).Return(&agent.Reply{Reply: "Saç kesimi 300 TL", Handoff: true, HandoffReason: "fiyat pazarlığı"}, nil).Once()

	res, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.ai", "fiyat nedir"))
	require.NoError(t, err)
	assert.True(t, res.Forwarded)

	f.svc.Wait()
	f.forwarder.AssertExpectations(t)

	sent := f.fake.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Saç kesimi 300 TL", sent[0].Text)
	assert.Equal(t, "905551112233", sent[0].RecipientID)

	msgs, _, err := f.repos.Messages.ListByConversation(ctx, res.ConversationID, repositories.FindOptions{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderAI, msgs[1].SenderType)
	assert.Equal(t, models.DeliverySent, msgs[1].DeliveryStatus)

	conv, err := f.repos.Conversations.FindByID(ctx, f.tenant.ID, res.ConversationID)
	require.NoError(t, err)
	assert.True(t, conv.AIPaused)
	require.NotNil(t, conv.AIPausedReason)
	assert.Equal(t, "fiyat pazarlığı", *conv.AIPausedReason)
	assert.Equal(t, 1, conv.UnreadCount, "an AI reply leaves the inbox unread")
}

func TestProcessInboundAgentFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)
	f.enableAgent(t, models.ReplySync)

	f.forwarder.On("Forward", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrTimeout).Once()

	res, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.t", "merhaba"))
	require.NoError(t, err)
	assert.True(t, res.Forwarded)

	f.svc.Wait()
	assert.Empty(t, f.fake.Sent())
}

func TestProcessInboundSkipsPausedConversation(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	first, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.p1", "merhaba"))
	require.NoError(t, err)
	_, err = f.svc.Handoff(ctx, first.ConversationID, "")
	require.NoError(t, err)

	f.enableAgent(t, models.ReplyAsync)
	res, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.p2", "orada mısınız"))
	require.NoError(t, err)
	assert.False(t, res.Forwarded)

	f.svc.Wait()
	f.forwarder.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendOutboundAndStatusUpdates(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	res, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.in", "merhaba"))
	require.NoError(t, err)
	conv, err := f.svc.FindConversation(ctx, res.ConversationID)
	require.NoError(t, err)

	agentID := uuid.New()
	msg, err := f.svc.SendOutbound(ctx, conv, SendInput{Text: " Hoş geldiniz ", SenderType: models.SenderAgent, SenderUserID: &agentID})
	require.NoError(t, err)
	assert.Equal(t, "Hoş geldiniz", msg.Text)
	require.NotNil(t, msg.ChannelMessageID)

	stored, err := f.repos.Conversations.FindByID(ctx, f.tenant.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCount, "agent reply resets unread")

	ok, err := f.svc.ApplyStatus(ctx, &channel.StatusUpdate{ChannelMessageID: *msg.ChannelMessageID, Status: models.DeliveryRead})
	require.NoError(t, err)
	assert.True(t, ok)

	// delivered after read is stale
	ok, err = f.svc.ApplyStatus(ctx, &channel.StatusUpdate{ChannelMessageID: *msg.ChannelMessageID, Status: models.DeliveryDelivered})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.repos.Messages.FindByID(ctx, f.tenant.ID, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryRead, got.DeliveryStatus)

	// inbound messages never take delivery updates
	ok, err = f.svc.ApplyStatus(ctx, &channel.StatusUpdate{ChannelMessageID: "wamid.in", Status: models.DeliveryRead})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.ApplyStatus(ctx, &channel.StatusUpdate{ChannelMessageID: "unknown", Status: models.DeliveryRead})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendOutboundFailures(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	res, err := f.svc.ProcessInbound(ctx, f.conn, inbound("wamid.x", "merhaba"))
	require.NoError(t, err)
	conv, err := f.svc.FindConversation(ctx, res.ConversationID)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := f.svc.SendOutbound(ctx, conv, SendInput{Text: "   "})
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("token rejected", func(t *testing.T) {
		f.fake.SendErr = apperrors.NewExternal("meta", 401, []byte(`{"error":{"message":"expired"}}`))
		defer func() { f.fake.SendErr = nil }()

		_, err := f.svc.SendOutbound(ctx, conv, SendInput{Text: "deneme"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrExternal))

		msgs, _, err := f.repos.Messages.ListByConversation(ctx, conv.ID, repositories.FindOptions{})
		require.NoError(t, err)
		last := msgs[len(msgs)-1]
		assert.Equal(t, models.DeliveryFailed, last.DeliveryStatus)
		assert.NotNil(t, last.Error)

		stored, err := f.repos.Connections.FindByID(ctx, f.tenant.ID, f.conn.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionError, stored.Status)
	})

	t.Run("disconnected", func(t *testing.T) {
		stored, err := f.repos.Connections.FindByID(ctx, f.tenant.ID, f.conn.ID)
		require.NoError(t, err)
		stored.Disconnect()
		require.NoError(t, f.repos.Connections.Update(ctx, stored))

		_, err = f.svc.SendOutbound(ctx, conv, SendInput{Text: "deneme"})
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestHistoryAndSummary(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	var convID uuid.UUID
	for i, text := range []string{"bir", "iki", "üç"} {
		in := inbound("wamid.h"+text, text)
		in.Timestamp = time.Now().UTC().Add(time.Duration(i) * time.Second)
		res, err := f.svc.ProcessInbound(ctx, f.conn, in)
		require.NoError(t, err)
		convID = res.ConversationID
	}

	history, err := f.svc.History(ctx, convID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "iki", history[0].Text)
	assert.Equal(t, "üç", history[1].Text)

	_, err = f.svc.SaveSummary(ctx, convID, " ")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	conv, err := f.svc.SaveSummary(ctx, convID, "Müşteri randevu istiyor")
	require.NoError(t, err)
	require.NotNil(t, conv.Summary)
	assert.Equal(t, "Müşteri randevu istiyor", *conv.Summary)

	_, err = f.svc.History(ctx, uuid.New(), 10)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
