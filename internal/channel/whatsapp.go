package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"uppypro/internal/models"

	"go.uber.org/zap"
)

// ===========================================================================
// WhatsApp Cloud API channel
// ===========================================================================

// WhatsAppChannel implements Channel for the WhatsApp Cloud API
type WhatsAppChannel struct {
	graph  *GraphClient
	logger *zap.Logger
}

// NewWhatsAppChannel creates the WhatsApp adapter
func NewWhatsAppChannel(graph *GraphClient, logger *zap.Logger) *WhatsAppChannel {
	return &WhatsAppChannel{
		graph:  graph,
		logger: logger.Named("whatsapp"),
	}
}

// Type returns models.ChannelWhatsApp
func (c *WhatsAppChannel) Type() models.ChannelType {
	return models.ChannelWhatsApp
}

// Verify checks the X-Hub-Signature-256 header
func (c *WhatsAppChannel) Verify(signature string, body []byte, secret string) bool {
	return Verify(signature, body, secret)
}

// ===========================================================================
// Webhook payload
// ===========================================================================

// WAWebhookPayload whatsapp_business_account webhook body
type WAWebhookPayload struct {
	Object string          `json:"object"`
	Entry  []WAWebhookEntry `json:"entry"`
}

type WAWebhookEntry struct {
	ID      string     `json:"id"`
	Changes []WAChange `json:"changes"`
}

type WAChange struct {
	Field string  `json:"field"`
	Value WAValue `json:"value"`
}

type WAValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []WAContact `json:"contacts,omitempty"`
	Messages []WAMessage `json:"messages,omitempty"`
	Statuses []WAStatus  `json:"statuses,omitempty"`
}

type WAContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WAMessage struct {
	From        string         `json:"from"`
	ID          string         `json:"id"`
	Timestamp   string         `json:"timestamp"`
	Type        string         `json:"type"`
	Text        *WAText        `json:"text,omitempty"`
	Image       *WAMedia       `json:"image,omitempty"`
	Audio       *WAMedia       `json:"audio,omitempty"`
	Video       *WAMedia       `json:"video,omitempty"`
	Document    *WAMedia       `json:"document,omitempty"`
	Sticker     *WAMedia       `json:"sticker,omitempty"`
	Location    *WALocation    `json:"location,omitempty"`
	Button      *WAButton      `json:"button,omitempty"`
	Interactive *WAInteractive `json:"interactive,omitempty"`
}

type WAText struct {
	Body string `json:"body"`
}

type WAMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type WALocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type WAButton struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

type WAInteractive struct {
	Type        string `json:"type"`
	ButtonReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"button_reply,omitempty"`
	ListReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"list_reply,omitempty"`
}

type WAStatus struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Timestamp   string    `json:"timestamp"`
	RecipientID string    `json:"recipient_id"`
	Errors      []WAError `json:"errors,omitempty"`
}

type WAError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ===========================================================================
// Normalize
// ===========================================================================

// Normalize parses a whatsapp_business_account delivery. Unsupported message
// types are kept with MessageType unsupported so the inbox still shows them.
func (c *WhatsAppChannel) Normalize(ctx context.Context, body []byte) (*Batch, error) {
	var payload WAWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal whatsapp payload: %w", err)
	}
	if payload.Object != "whatsapp_business_account" {
		return nil, fmt.Errorf("unexpected object %q", payload.Object)
	}

	batch := &Batch{}
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			value := change.Value
			phoneNumberID := value.Metadata.PhoneNumberID

			names := make(map[string]string, len(value.Contacts))
			for _, contact := range value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, m := range value.Messages {
				inbound := InboundMessage{
					Channel:           models.ChannelWhatsApp,
					ExternalAccountID: phoneNumberID,
					SenderID:          m.From,
					SenderName:        names[m.From],
					ChannelMessageID:  m.ID,
					Timestamp:         parseUnix(m.Timestamp),
				}
				fillWAContent(&inbound, &m)
				batch.Messages = append(batch.Messages, inbound)
			}

			for _, s := range value.Statuses {
				status, ok := waDeliveryStatus(s.Status)
				if !ok {
					continue
				}
				update := StatusUpdate{
					Channel:           models.ChannelWhatsApp,
					ExternalAccountID: phoneNumberID,
					ChannelMessageID:  s.ID,
					Status:            status,
					Timestamp:         parseUnix(s.Timestamp),
				}
				if len(s.Errors) > 0 {
					update.Error = fmt.Sprintf("%d: %s", s.Errors[0].Code, firstNonEmpty(s.Errors[0].Message, s.Errors[0].Title))
				}
				batch.Statuses = append(batch.Statuses, update)
			}
		}
	}

	c.logger.Debug("normalized whatsapp delivery",
		zap.Int("messages", len(batch.Messages)),
		zap.Int("statuses", len(batch.Statuses)),
	)

	return batch, nil
}

func fillWAContent(in *InboundMessage, m *WAMessage) {
	media := func(t models.MessageType, md *WAMedia) {
		in.MessageType = t
		if md == nil {
			return
		}
		in.Text = md.Caption
		in.Attachments = append(in.Attachments, models.Attachment{
			Type:     string(t),
			MediaID:  md.ID,
			MimeType: md.MimeType,
			Caption:  firstNonEmpty(md.Caption, md.Filename),
		})
	}

	switch m.Type {
	case "text":
		in.MessageType = models.MessageText
		if m.Text != nil {
			in.Text = m.Text.Body
		}
	case "image":
		media(models.MessageImage, m.Image)
	case "audio":
		media(models.MessageAudio, m.Audio)
	case "video":
		media(models.MessageVideo, m.Video)
	case "document":
		media(models.MessageDocument, m.Document)
	case "sticker":
		media(models.MessageSticker, m.Sticker)
	case "location":
		in.MessageType = models.MessageLocation
		if m.Location != nil {
			in.Text = strings.TrimSpace(fmt.Sprintf("%s %s (%.6f, %.6f)",
				m.Location.Name, m.Location.Address, m.Location.Latitude, m.Location.Longitude))
		}
	case "button":
		in.MessageType = models.MessageText
		if m.Button != nil {
			in.Text = firstNonEmpty(m.Button.Text, m.Button.Payload)
		}
	case "interactive":
		in.MessageType = models.MessageText
		if m.Interactive != nil {
			switch {
			case m.Interactive.ButtonReply != nil:
				in.Text = m.Interactive.ButtonReply.Title
			case m.Interactive.ListReply != nil:
				in.Text = m.Interactive.ListReply.Title
			}
		}
	default:
		in.MessageType = models.MessageUnsupported
	}
}

func waDeliveryStatus(s string) (models.DeliveryStatus, bool) {
	switch s {
	case "sent":
		return models.DeliverySent, true
	case "delivered":
		return models.DeliveryDelivered, true
	case "read":
		return models.DeliveryRead, true
	case "failed":
		return models.DeliveryFailed, true
	}
	return "", false
}

// ===========================================================================
// Send
// ===========================================================================

type waSendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *waSendText  `json:"text,omitempty"`
	Image            *waSendMedia `json:"image,omitempty"`
	Audio            *waSendMedia `json:"audio,omitempty"`
	Video            *waSendMedia `json:"video,omitempty"`
	Document         *waSendMedia `json:"document,omitempty"`
}

type waSendText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type waSendMedia struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type waSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// ErrNotConnected the connection has no usable credentials
var ErrNotConnected = errors.New("channel connection is not connected")

// Send posts to /{phone_number_id}/messages
func (c *WhatsAppChannel) Send(ctx context.Context, conn *models.ChannelConnection, msg *OutboundMessage) (*SendResult, error) {
	if !conn.IsConnected() {
		return nil, ErrNotConnected
	}

	req := waSendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.RecipientID,
		Type:             "text",
		Text:             &waSendText{Body: msg.Text},
	}

	if a := msg.Attachment; a != nil && a.URL != "" {
		media := &waSendMedia{Link: a.URL, Caption: firstNonEmpty(a.Caption, msg.Text)}
		req.Text = nil
		switch models.MessageType(a.Type) {
		case models.MessageImage:
			req.Type, req.Image = "image", media
		case models.MessageAudio:
			media.Caption = ""
			req.Type, req.Audio = "audio", media
		case models.MessageVideo:
			req.Type, req.Video = "video", media
		default:
			req.Type, req.Document = "document", media
		}
	}

	var resp waSendResponse
	if err := c.graph.Post(ctx, conn.ExternalID+"/messages", conn.Credentials.AccessToken, nil, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 || resp.Messages[0].ID == "" {
		return nil, fmt.Errorf("whatsapp send: response carried no message id")
	}

	c.logger.Info("whatsapp message sent",
		zap.String("phone_number_id", conn.ExternalID),
		zap.String("wamid", resp.Messages[0].ID),
	)

	return &SendResult{ChannelMessageID: resp.Messages[0].ID}, nil
}

// ===========================================================================
// Number verification
// ===========================================================================

// PhoneNumberInfo business phone number details
type PhoneNumberInfo struct {
	ID                 string `json:"id"`
	DisplayPhoneNumber string `json:"display_phone_number"`
	VerifiedName       string `json:"verified_name"`
}

// VerifyNumber confirms that token can access phoneNumberID
func (c *WhatsAppChannel) VerifyNumber(ctx context.Context, phoneNumberID, token string) (*PhoneNumberInfo, error) {
	query := url.Values{}
	query.Set("fields", "display_phone_number,verified_name")

	var info PhoneNumberInfo
	if err := c.graph.Get(ctx, url.PathEscape(phoneNumberID), token, query, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ===========================================================================
// Helpers
// ===========================================================================

// parseUnix parses a unix seconds string, falling back to now
func parseUnix(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(n, 0).UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
