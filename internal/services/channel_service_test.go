package services

import (
	"context"
	"errors"
	"testing"

	"uppypro/internal/channel"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) VerifyNumber(ctx context.Context, phoneNumberID, token string) (*channel.PhoneNumberInfo, error) {
	args := m.Called(ctx, phoneNumberID, token)
	info, _ := args.Get(0).(*channel.PhoneNumberInfo)
	return info, args.Error(1)
}

// fakeInstagram records the OAuth state and serves fixed pages
type fakeInstagram struct {
	state      string
	pages      []channel.Page
	subscribed []string
}

func (f *fakeInstagram) AuthorizeURL(state string) string {
	f.state = state
	return "https://www.facebook.com/dialog/oauth?state=" + state
}

func (f *fakeInstagram) ExchangeCode(_ context.Context, code string) (string, error) {
	if code != "good-code" {
		return "", apperrors.NewExternal("instagram", 400, []byte("invalid code"))
	}
	return "user-token", nil
}

func (f *fakeInstagram) ListPages(context.Context, string) ([]channel.Page, error) {
	return f.pages, nil
}

func (f *fakeInstagram) SubscribeApp(_ context.Context, pageID, _ string) error {
	f.subscribed = append(f.subscribed, pageID)
	return nil
}

func TestConnectWhatsApp(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	first := seedTenant(t, repos, "ilk")
	second := seedTenant(t, repos, "ikinci")

	verifier := &mockVerifier{}
	verifier.On("VerifyNumber", mock.Anything, "1001", "tok").
		Return(&channel.PhoneNumberInfo{ID: "1001", DisplayPhoneNumber: "+90 555 000 00 00", VerifiedName: "Salon"}, nil)
	verifier.On("VerifyNumber", mock.Anything, "1001", "expired").
		Return(nil, apperrors.NewExternal("whatsapp", 401, []byte("token expired")))

	svc := NewChannelService(repos, verifier, &fakeInstagram{}, zap.NewNop())

	conn, err := svc.ConnectWhatsApp(ctx, first.ID, ConnectWhatsAppInput{PhoneNumberID: " 1001 ", WABAID: "w-1", AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "Salon (+90 555 000 00 00)", conn.DisplayName)
	assert.True(t, conn.IsConnected())
	assert.Equal(t, "w-1", conn.Credentials.WABAID)

	_, err = svc.ConnectWhatsApp(ctx, second.ID, ConnectWhatsAppInput{PhoneNumberID: "1001", AccessToken: "tok"})
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	_, err = svc.ConnectWhatsApp(ctx, first.ID, ConnectWhatsAppInput{PhoneNumberID: "1001", AccessToken: "expired"})
	assert.True(t, errors.Is(err, apperrors.ErrExternal))

	_, err = svc.ConnectWhatsApp(ctx, first.ID, ConnectWhatsAppInput{PhoneNumberID: "1001"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	// once disconnected the number can move to another tenant
	_, err = svc.Disconnect(ctx, first.ID, conn.ID)
	require.NoError(t, err)

	resolved, err := svc.ResolveConnection(ctx, models.ChannelWhatsApp, "1001")
	require.NoError(t, err)
	assert.Nil(t, resolved)

	moved, err := svc.ConnectWhatsApp(ctx, second.ID, ConnectWhatsAppInput{PhoneNumberID: "1001", AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, second.ID, moved.TenantID)
	assert.Equal(t, conn.ID, moved.ID)

	resolved, err = svc.ResolveConnection(ctx, models.ChannelWhatsApp, "1001")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, second.ID, resolved.TenantID)

	verifier.AssertExpectations(t)
}

func TestInstagramOAuthFlow(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "butik")

	ig := &fakeInstagram{pages: []channel.Page{
		{ID: "page-0", AccessToken: "p0"},
		{ID: "page-1", AccessToken: "p1", InstagramBusinessAccount: &channel.InstagramAccount{ID: "ig-1", Username: "butik"}},
	}}
	svc := NewChannelService(repos, &mockVerifier{}, ig, zap.NewNop())

	url, err := svc.InstagramAuthorizeURL(ctx, tenant.ID, uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, ig.state)
	assert.Contains(t, url, ig.state)

	conn, err := svc.CompleteInstagramOAuth(ctx, "good-code", ig.state)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, conn.TenantID)
	assert.Equal(t, "ig-1", conn.ExternalID)
	assert.Equal(t, "@butik", conn.DisplayName)
	assert.Equal(t, "page-1", conn.Credentials.PageID)
	assert.Equal(t, "p1", conn.Credentials.AccessToken)
	assert.Equal(t, []string{"page-1"}, ig.subscribed)

	// the state is single use
	_, err = svc.CompleteInstagramOAuth(ctx, "good-code", ig.state)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.CompleteInstagramOAuth(ctx, "good-code", "forged")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	list, err := svc.List(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInstagramOAuthWithoutBusinessAccount(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	tenant := seedTenant(t, repos, "kafe")

	ig := &fakeInstagram{pages: []channel.Page{{ID: "page-0", AccessToken: "p0"}}}
	svc := NewChannelService(repos, &mockVerifier{}, ig, zap.NewNop())

	_, err := svc.InstagramAuthorizeURL(ctx, tenant.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.CompleteInstagramOAuth(ctx, "good-code", ig.state)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Empty(t, ig.subscribed)
}
