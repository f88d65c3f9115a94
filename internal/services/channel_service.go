package services

import (
	"context"

	"uppypro/internal/channel"
	"uppypro/internal/models"

	"github.com/google/uuid"
)

// ===========================================================================
// Channel Service Interface
// Connecting WhatsApp numbers and Instagram accounts
// ===========================================================================

// WhatsAppVerifier confirms a phone number id is reachable with a token
type WhatsAppVerifier interface {
	VerifyNumber(ctx context.Context, phoneNumberID, token string) (*channel.PhoneNumberInfo, error)
}

// InstagramOAuth Facebook Login steps used to connect Instagram
type InstagramOAuth interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	ListPages(ctx context.Context, userToken string) ([]channel.Page, error)
	SubscribeApp(ctx context.Context, pageID, pageToken string) error
}

// ConnectWhatsAppInput credentials of an embedded signup or a system user
type ConnectWhatsAppInput struct {
	PhoneNumberID string
	WABAID        string
	AccessToken   string
}

// ChannelService interface
type ChannelService interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelConnection, error)

	ConnectWhatsApp(ctx context.Context, tenantID uuid.UUID, in ConnectWhatsAppInput) (*models.ChannelConnection, error)

	// InstagramAuthorizeURL starts the OAuth flow, the state is valid 10 minutes
	InstagramAuthorizeURL(ctx context.Context, tenantID, userID uuid.UUID) (string, error)

	// CompleteInstagramOAuth finishes the OAuth flow started by InstagramAuthorizeURL
	CompleteInstagramOAuth(ctx context.Context, code, state string) (*models.ChannelConnection, error)

	Disconnect(ctx context.Context, tenantID, connectionID uuid.UUID) (*models.ChannelConnection, error)

	// ResolveConnection webhook target lookup. Returns nil for unknown or disconnected connections.
	ResolveConnection(ctx context.Context, channelType models.ChannelType, externalID string) (*models.ChannelConnection, error)
}
