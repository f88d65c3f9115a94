package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"uppypro/internal/config"
	"uppypro/internal/models"

	"go.uber.org/zap"
)

// ===========================================================================
// Instagram channel
// Instagram DMs through the Messenger Platform, connected with Facebook Login
// ===========================================================================

const (
	defaultDialogBaseURL = "https://www.facebook.com"

	// instagramScopes permissions requested by the connect flow
	instagramScopes = "instagram_basic,instagram_manage_messages,pages_show_list,pages_messaging,pages_manage_metadata"

	// instagramSubscribedFields page webhook fields the app subscribes to
	instagramSubscribedFields = "messages,message_reads,message_deliveries,messaging_postbacks"
)

// InstagramChannel implements Channel for Instagram messaging
type InstagramChannel struct {
	graph       *GraphClient
	appID       string
	appSecret   string
	redirectURL string
	dialogBase  string
	logger      *zap.Logger
}

// NewInstagramChannel creates the Instagram adapter
func NewInstagramChannel(graph *GraphClient, cfg config.MetaConfig, logger *zap.Logger) *InstagramChannel {
	return &InstagramChannel{
		graph:       graph,
		appID:       cfg.AppID,
		appSecret:   cfg.AppSecret,
		redirectURL: cfg.OAuthRedirectURL,
		dialogBase:  defaultDialogBaseURL,
		logger:      logger.Named("instagram"),
	}
}

// Type returns models.ChannelInstagram
func (c *InstagramChannel) Type() models.ChannelType {
	return models.ChannelInstagram
}

// Verify checks the X-Hub-Signature-256 header
func (c *InstagramChannel) Verify(signature string, body []byte, secret string) bool {
	return Verify(signature, body, secret)
}

// ===========================================================================
// Webhook payload
// ===========================================================================

// IGWebhookPayload messaging webhook body (object "instagram" or "page")
type IGWebhookPayload struct {
	Object string           `json:"object"`
	Entry  []IGWebhookEntry `json:"entry"`
}

type IGWebhookEntry struct {
	ID        string             `json:"id"`
	Time      int64              `json:"time"`
	Messaging []IGMessagingEvent `json:"messaging"`
}

type IGMessagingEvent struct {
	Sender    IGUser      `json:"sender"`
	Recipient IGUser      `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *IGMessage  `json:"message,omitempty"`
	Postback  *IGPostback `json:"postback,omitempty"`
	Read      *struct {
		MID string `json:"mid"`
	} `json:"read,omitempty"`
	Delivery *struct {
		MIDs []string `json:"mids"`
	} `json:"delivery,omitempty"`
}

type IGUser struct {
	ID string `json:"id"`
}

type IGMessage struct {
	MID         string         `json:"mid"`
	Text        string         `json:"text"`
	IsEcho      bool           `json:"is_echo,omitempty"`
	IsDeleted   bool           `json:"is_deleted,omitempty"`
	Attachments []IGAttachment `json:"attachments,omitempty"`
	QuickReply  *struct {
		Payload string `json:"payload"`
	} `json:"quick_reply,omitempty"`
}

type IGAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

type IGPostback struct {
	MID     string `json:"mid"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// ===========================================================================
// Normalize
// ===========================================================================

// Normalize parses an Instagram messaging delivery. Echoes of our own messages are skipped.
func (c *InstagramChannel) Normalize(ctx context.Context, body []byte) (*Batch, error) {
	var payload IGWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal instagram payload: %w", err)
	}
	if payload.Object != "instagram" && payload.Object != "page" {
		return nil, fmt.Errorf("unexpected object %q", payload.Object)
	}

	batch := &Batch{}
	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			account := firstNonEmpty(event.Recipient.ID, entry.ID)
			at := parseUnixMilli(event.Timestamp)

			switch {
			case event.Message != nil:
				if event.Message.IsEcho || event.Message.IsDeleted {
					continue
				}
				inbound := InboundMessage{
					Channel:           models.ChannelInstagram,
					ExternalAccountID: account,
					SenderID:          event.Sender.ID,
					ChannelMessageID:  event.Message.MID,
					Text:              event.Message.Text,
					MessageType:       models.MessageText,
					Timestamp:         at,
				}
				if event.Message.QuickReply != nil && inbound.Text == "" {
					inbound.Text = event.Message.QuickReply.Payload
				}
				for _, att := range event.Message.Attachments {
					t := igMessageType(att.Type)
					inbound.Attachments = append(inbound.Attachments, models.Attachment{Type: string(t), URL: att.Payload.URL})
					if inbound.MessageType == models.MessageText && inbound.Text == "" {
						inbound.MessageType = t
					}
				}
				batch.Messages = append(batch.Messages, inbound)

			case event.Postback != nil:
				mid := event.Postback.MID
				if mid == "" {
					mid = fmt.Sprintf("postback_%s_%d", event.Sender.ID, event.Timestamp)
				}
				batch.Messages = append(batch.Messages, InboundMessage{
					Channel:           models.ChannelInstagram,
					ExternalAccountID: account,
					SenderID:          event.Sender.ID,
					ChannelMessageID:  mid,
					Text:              firstNonEmpty(event.Postback.Title, event.Postback.Payload),
					MessageType:       models.MessageText,
					Timestamp:         at,
				})

			case event.Read != nil && event.Read.MID != "":
				batch.Statuses = append(batch.Statuses, StatusUpdate{
					Channel:           models.ChannelInstagram,
					ExternalAccountID: account,
					ChannelMessageID:  event.Read.MID,
					Status:            models.DeliveryRead,
					Timestamp:         at,
				})

			case event.Delivery != nil:
				for _, mid := range event.Delivery.MIDs {
					batch.Statuses = append(batch.Statuses, StatusUpdate{
						Channel:           models.ChannelInstagram,
						ExternalAccountID: account,
						ChannelMessageID:  mid,
						Status:            models.DeliveryDelivered,
						Timestamp:         at,
					})
				}
			}
		}
	}

	c.logger.Debug("normalized instagram delivery",
		zap.Int("messages", len(batch.Messages)),
		zap.Int("statuses", len(batch.Statuses)),
	)

	return batch, nil
}

func igMessageType(t string) models.MessageType {
	switch t {
	case "image":
		return models.MessageImage
	case "video", "ig_reel", "reel":
		return models.MessageVideo
	case "audio":
		return models.MessageAudio
	case "file":
		return models.MessageDocument
	}
	return models.MessageUnsupported
}

func parseUnixMilli(ms int64) time.Time {
	if ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}

// ===========================================================================
// Send
// ===========================================================================

type igSendRequest struct {
	Recipient     IGUser        `json:"recipient"`
	MessagingType string        `json:"messaging_type"`
	Message       igSendMessage `json:"message"`
}

type igSendMessage struct {
	Text       string            `json:"text,omitempty"`
	Attachment *igSendAttachment `json:"attachment,omitempty"`
}

type igSendAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

// Send posts to /me/messages with the page access token
func (c *InstagramChannel) Send(ctx context.Context, conn *models.ChannelConnection, msg *OutboundMessage) (*SendResult, error) {
	if !conn.IsConnected() {
		return nil, ErrNotConnected
	}

	req := igSendRequest{
		Recipient:     IGUser{ID: msg.RecipientID},
		MessagingType: "RESPONSE",
		Message:       igSendMessage{Text: msg.Text},
	}
	if a := msg.Attachment; a != nil && a.URL != "" {
		att := &igSendAttachment{Type: a.Type}
		if models.MessageType(a.Type) == models.MessageDocument {
			att.Type = "file"
		}
		att.Payload.URL = a.URL
		req.Message = igSendMessage{Attachment: att}
	}

	var resp struct {
		RecipientID string `json:"recipient_id"`
		MessageID   string `json:"message_id"`
	}
	if err := c.graph.Post(ctx, "me/messages", conn.Credentials.AccessToken, nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.MessageID == "" {
		return nil, fmt.Errorf("instagram send: response carried no message id")
	}

	c.logger.Info("instagram message sent",
		zap.String("account_id", conn.ExternalID),
		zap.String("mid", resp.MessageID),
	)

	return &SendResult{ChannelMessageID: resp.MessageID}, nil
}

// ===========================================================================
// Profiles
// ===========================================================================

// UserProfile public profile of an Instagram scoped user
type UserProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// DisplayName name, falling back to @username
func (p *UserProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Username != "" {
		return "@" + p.Username
	}
	return ""
}

// GetUserProfile resolves an IGSID to name and username
func (c *InstagramChannel) GetUserProfile(ctx context.Context, igsid, token string) (*UserProfile, error) {
	query := url.Values{}
	query.Set("fields", "name,username")

	var profile UserProfile
	if err := c.graph.Get(ctx, url.PathEscape(igsid), token, query, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ===========================================================================
// OAuth (Facebook Login for Business)
// ===========================================================================

// Page Facebook page managed by the user
type Page struct {
	ID                       string            `json:"id"`
	Name                     string            `json:"name"`
	AccessToken              string            `json:"access_token"`
	InstagramBusinessAccount *InstagramAccount `json:"instagram_business_account,omitempty"`
}

// InstagramAccount professional Instagram account linked to a page
type InstagramAccount struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthorizeURL login dialog URL the dashboard redirects the user to
func (c *InstagramChannel) AuthorizeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", c.appID)
	query.Set("redirect_uri", c.redirectURL)
	query.Set("state", state)
	query.Set("scope", instagramScopes)
	query.Set("response_type", "code")

	return fmt.Sprintf("%s/%s/dialog/oauth?%s", strings.TrimRight(c.dialogBase, "/"), c.graph.Version(), query.Encode())
}

// ExchangeCode trades the authorization code for a user access token
func (c *InstagramChannel) ExchangeCode(ctx context.Context, code string) (string, error) {
	query := url.Values{}
	query.Set("client_id", c.appID)
	query.Set("client_secret", c.appSecret)
	query.Set("redirect_uri", c.redirectURL)
	query.Set("code", code)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.graph.Get(ctx, "oauth/access_token", "", query, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("oauth exchange: empty access token")
	}
	return resp.AccessToken, nil
}

// ListPages pages of the user with their linked Instagram accounts
func (c *InstagramChannel) ListPages(ctx context.Context, userToken string) ([]Page, error) {
	query := url.Values{}
	query.Set("fields", "id,name,access_token,instagram_business_account{id,username}")

	var resp struct {
		Data []Page `json:"data"`
	}
	if err := c.graph.Get(ctx, "me/accounts", userToken, query, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SubscribeApp subscribes the app to the page's messaging webhooks
func (c *InstagramChannel) SubscribeApp(ctx context.Context, pageID, pageToken string) error {
	query := url.Values{}
	query.Set("subscribed_fields", instagramSubscribedFields)

	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.graph.Post(ctx, url.PathEscape(pageID)+"/subscribed_apps", pageToken, query, nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("subscribe app: page %s did not confirm", pageID)
	}
	return nil
}
