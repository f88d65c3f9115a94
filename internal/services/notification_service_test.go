package services

import (
	"context"
	"errors"
	"testing"

	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/notify"
	"uppypro/internal/notify/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNotificationVisibility(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	svc := newNotifications(repos, nil)

	tenant := seedTenant(t, repos, "salon")
	ali := seedMember(t, repos, tenant.ID, "ali@salon.test", models.RoleTenantOwner)
	ayse := seedMember(t, repos, tenant.ID, "ayse@salon.test", models.RoleTenantEmployee)

	_, err := svc.Notify(ctx, NotifyInput{TenantID: tenant.ID, Type: models.NotifyNewConversation, Title: "Yeni konuşma"})
	require.NoError(t, err)
	personal, err := svc.Notify(ctx, NotifyInput{
		TenantID: tenant.ID,
		UserID:   &ayse.UserID,
		Type:     models.NotifyAIHandoff,
		Title:    "Devir",
		Data:     map[string]interface{}{"conversation_id": uuid.NewString()},
	})
	require.NoError(t, err)

	page := dto.PaginationRequest{Page: 1, Limit: 20}
	_, total, err := svc.List(ctx, tenant.ID, ali.UserID, false, page)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "only the tenant-wide one")

	_, total, err = svc.List(ctx, tenant.ID, ayse.UserID, false, page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// someone else's notification is not found
	err = svc.MarkRead(ctx, tenant.ID, ali.UserID, personal.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, svc.MarkRead(ctx, tenant.ID, ayse.UserID, personal.ID))
	require.NoError(t, svc.MarkRead(ctx, tenant.ID, ayse.UserID, personal.ID), "marking twice is a no-op")

	unread, err := svc.CountUnread(ctx, tenant.ID, ayse.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	updated, err := svc.MarkAllRead(ctx, tenant.ID, ayse.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	items, total, err := svc.List(ctx, tenant.ID, ayse.UserID, true, page)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestNotifyByEmailRecipients(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	tenant := seedTenant(t, repos, "berber")
	seedMember(t, repos, tenant.ID, "sahip@berber.test", models.RoleTenantOwner)
	seedMember(t, repos, tenant.ID, "calisan@berber.test", models.RoleTenantEmployee)

	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)
	svc := newNotifications(repos, mailer)

	t.Run("owners by default", func(t *testing.T) {
		mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, email notify.Email) (string, error) {
			assert.Equal(t, []string{"sahip@berber.test"}, email.To)
			assert.Equal(t, "Kanal hatası", email.Subject)
			assert.Contains(t, email.HTML, "https://app.test/settings/channels")
			return "email-1", nil
		})
		n, err := svc.NotifyByEmail(ctx, NotifyInput{
			TenantID: tenant.ID,
			Type:     models.NotifyChannelError,
			Title:    "Kanal hatası",
			Body:     "WhatsApp bağlantısı yeniden yetkilendirilmeli",
			Link:     "/settings/channels",
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, n.ID)
	})

	t.Run("billing contact when set", func(t *testing.T) {
		tenant.Settings.NotifyEmail = "muhasebe@berber.test"
		require.NoError(t, repos.Tenants.Update(ctx, tenant))

		mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, email notify.Email) (string, error) {
			assert.Equal(t, []string{"muhasebe@berber.test"}, email.To)
			return "", errors.New("resend down")
		})
		// a mail failure never fails the notification
		_, err := svc.NotifyByEmail(ctx, NotifyInput{TenantID: tenant.ID, Type: models.NotifyPaymentFailed, Title: "Ödeme", Link: "/billing"})
		require.NoError(t, err)
	})
}
