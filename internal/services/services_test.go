package services

import (
	"context"
	"sync"
	"testing"

	"uppypro/internal/agent"
	"uppypro/internal/database"
	"uppypro/internal/models"
	"uppypro/internal/notify"
	"uppypro/internal/realtime"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ===========================================================================
// Shared fixtures
// ===========================================================================

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory(uuid.NewString(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newTestRepos(t *testing.T) *repositories.Repositories {
	t.Helper()
	return repositories.NewRepositories(newTestDB(t))
}

func seedTenant(t *testing.T, repos *repositories.Repositories, slug string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		Name:     slug,
		Slug:     slug,
		IsActive: true,
		Settings: models.TenantSettings{Timezone: "Europe/Istanbul", Locale: "tr"},
	}
	require.NoError(t, repos.Tenants.Create(context.Background(), tenant))
	return tenant
}

func seedMember(t *testing.T, repos *repositories.Repositories, tenantID uuid.UUID, email string, role models.MemberRole) *models.TenantMember {
	t.Helper()
	member := &models.TenantMember{
		TenantID: tenantID,
		UserID:   uuid.New(),
		Email:    email,
		Role:     role,
	}
	require.NoError(t, repos.Members.Create(context.Background(), member))
	return member
}

func seedConnection(t *testing.T, repos *repositories.Repositories, tenantID uuid.UUID, channelType models.ChannelType, externalID string) *models.ChannelConnection {
	t.Helper()
	conn := &models.ChannelConnection{
		TenantID:    tenantID,
		Channel:     channelType,
		Status:      models.ConnectionConnected,
		ExternalID:  externalID,
		Credentials: models.ChannelCredentials{AccessToken: "tok"},
	}
	require.NoError(t, repos.Connections.Create(context.Background(), conn))
	return conn
}

// ===========================================================================
// Fakes
// ===========================================================================

// recordingPublisher collects realtime events
type recordingPublisher struct {
	mu            sync.Mutex
	messages      []realtime.MessageEvent
	conversations []realtime.ConversationEvent
	notifications []realtime.NotificationEvent
}

func (p *recordingPublisher) PublishMessage(_ uuid.UUID, e *realtime.MessageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, *e)
	return nil
}

func (p *recordingPublisher) PublishConversation(_ uuid.UUID, e *realtime.ConversationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversations = append(p.conversations, *e)
	return nil
}

func (p *recordingPublisher) PublishNotification(_ uuid.UUID, e *realtime.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, *e)
	return nil
}

func (p *recordingPublisher) messageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// nopMailer accepts every email
type nopMailer struct{}

func (nopMailer) Send(context.Context, notify.Email) (string, error) { return "", nil }

// mockForwarder testify mock of AgentForwarder
type mockForwarder struct {
	mock.Mock
}

func (m *mockForwarder) Forward(ctx context.Context, webhookURL string, req *agent.Request) (*agent.Reply, error) {
	args := m.Called(ctx, webhookURL, req)
	reply, _ := args.Get(0).(*agent.Reply)
	return reply, args.Error(1)
}

func newNotifications(repos *repositories.Repositories, mailer notify.Mailer) NotificationService {
	if mailer == nil {
		mailer = nopMailer{}
	}
	return NewNotificationService(repos, realtime.NewNoopPublisher(), mailer, "https://app.test", zap.NewNop())
}
