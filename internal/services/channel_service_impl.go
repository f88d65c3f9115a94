package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"uppypro/internal/auth"
	"uppypro/internal/channel"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"
	"uppypro/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	oauthStateTTL          = 10 * time.Minute
	instagramOAuthProvider = "instagram"
)

type channelService struct {
	repos     *repositories.Repositories
	whatsapp  WhatsAppVerifier
	instagram InstagramOAuth
	logger    *zap.Logger
}

// NewChannelService creates the ChannelService
func NewChannelService(
	repos *repositories.Repositories,
	whatsapp WhatsAppVerifier,
	instagram InstagramOAuth,
	logger *zap.Logger,
) ChannelService {
	return &channelService{
		repos:     repos,
		whatsapp:  whatsapp,
		instagram: instagram,
		logger:    logger.Named("channels"),
	}
}

func (s *channelService) List(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelConnection, error) {
	return s.repos.Connections.ListByTenant(ctx, tenantID)
}

func (s *channelService) ConnectWhatsApp(ctx context.Context, tenantID uuid.UUID, in ConnectWhatsAppInput) (*models.ChannelConnection, error) {
	in.PhoneNumberID = strings.TrimSpace(in.PhoneNumberID)
	in.AccessToken = strings.TrimSpace(in.AccessToken)
	if in.PhoneNumberID == "" || in.AccessToken == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "telefon numarası kimliği ve erişim anahtarı gerekli")
	}

	info, err := s.whatsapp.VerifyNumber(ctx, in.PhoneNumberID, in.AccessToken)
	if err != nil {
		s.logger.Warn("whatsapp number verification failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("phone_number_id", in.PhoneNumberID),
			zap.Error(err),
		)
		return nil, apperrors.Wrap(err, "WhatsApp numarası doğrulanamadı")
	}

	displayName := info.DisplayPhoneNumber
	if info.VerifiedName != "" {
		displayName = info.VerifiedName + " (" + info.DisplayPhoneNumber + ")"
	}

	return s.upsert(ctx, tenantID, models.ChannelWhatsApp, in.PhoneNumberID, displayName, models.ChannelCredentials{
		AccessToken: in.AccessToken,
		WABAID:      strings.TrimSpace(in.WABAID),
	})
}

func (s *channelService) InstagramAuthorizeURL(ctx context.Context, tenantID, userID uuid.UUID) (string, error) {
	raw, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	state := &models.OAuthState{
		StateHash: hash,
		TenantID:  tenantID,
		UserID:    userID,
		Provider:  instagramOAuthProvider,
		ExpiresAt: timeNow().Add(oauthStateTTL),
	}
	if err := s.repos.OAuthStates.Create(ctx, state); err != nil {
		return "", err
	}
	return s.instagram.AuthorizeURL(raw), nil
}

func (s *channelService) CompleteInstagramOAuth(ctx context.Context, code, rawState string) (*models.ChannelConnection, error) {
	if code == "" || rawState == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "eksik yetkilendirme parametresi")
	}

	state, err := s.repos.OAuthStates.Consume(ctx, auth.HashToken(rawState), timeNow())
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "yetkilendirme oturumu geçersiz veya süresi dolmuş")
	}
	if err != nil {
		return nil, err
	}

	userToken, err := s.instagram.ExchangeCode(ctx, code)
	if err != nil {
		return nil, apperrors.Wrap(err, "Instagram yetkilendirmesi tamamlanamadı")
	}
	pages, err := s.instagram.ListPages(ctx, userToken)
	if err != nil {
		return nil, apperrors.Wrap(err, "Facebook sayfaları alınamadı")
	}

	var picked *channel.Page
	for i := range pages {
		if acct := pages[i].InstagramBusinessAccount; acct != nil && acct.ID != "" {
			picked = &pages[i]
			break
		}
	}
	if picked == nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, "Instagram işletme hesabına bağlı bir Facebook sayfası bulunamadı")
	}

	if err := s.instagram.SubscribeApp(ctx, picked.ID, picked.AccessToken); err != nil {
		return nil, apperrors.Wrap(err, "sayfa webhook aboneliği yapılamadı")
	}

	account := picked.InstagramBusinessAccount
	displayName := account.ID
	if account.Username != "" {
		displayName = "@" + account.Username
	}
	return s.upsert(ctx, state.TenantID, models.ChannelInstagram, account.ID, displayName, models.ChannelCredentials{
		AccessToken: picked.AccessToken,
		PageID:      picked.ID,
	})
}

func (s *channelService) Disconnect(ctx context.Context, tenantID, connectionID uuid.UUID) (*models.ChannelConnection, error) {
	conn, err := s.repos.Connections.FindByID(ctx, tenantID, connectionID)
	if err != nil {
		return nil, notFound(err, "kanal bağlantısı bulunamadı")
	}
	conn.Disconnect()
	if err := s.repos.Connections.Update(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("channel disconnected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("channel", string(conn.Channel)),
		zap.String("external_id", conn.ExternalID),
	)
	return conn, nil
}

func (s *channelService) ResolveConnection(ctx context.Context, channelType models.ChannelType, externalID string) (*models.ChannelConnection, error) {
	conn, err := s.repos.Connections.FindByExternalID(ctx, channelType, externalID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !conn.IsConnected() {
		return nil, nil
	}
	return conn, nil
}

// upsert connects (channel, externalID) to tenantID. An account connected to
// another tenant gives ErrConflict.
func (s *channelService) upsert(ctx context.Context, tenantID uuid.UUID, channelType models.ChannelType, externalID, displayName string, creds models.ChannelCredentials) (*models.ChannelConnection, error) {
	now := timeNow()

	conn, err := s.repos.Connections.FindByExternalID(ctx, channelType, externalID)
	switch {
	case err == nil:
		if conn.TenantID != tenantID && conn.IsConnected() {
			return nil, apperrors.New(apperrors.ErrConflict, "bu hesap başka bir işletmeye bağlı")
		}
		conn.TenantID = tenantID
		conn.DisplayName = displayName
		conn.Credentials = creds
		conn.SetConnected(now)
		if err := s.repos.Connections.Update(ctx, conn); err != nil {
			return nil, err
		}
	case errors.Is(err, apperrors.ErrNotFound):
		conn = &models.ChannelConnection{
			TenantID:    tenantID,
			Channel:     channelType,
			ExternalID:  externalID,
			DisplayName: displayName,
			Credentials: creds,
		}
		conn.SetConnected(now)
		if err := s.repos.Connections.Create(ctx, conn); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.logger.Info("channel connected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("channel", string(channelType)),
		zap.String("external_id", externalID),
	)
	return conn, nil
}
