package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"uppypro/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Centrifugo Client
// Publishes through the Centrifugo HTTP API when the dashboard uses
// Centrifugo instead of the built-in websocket hub
// ===========================================================================

// CentrifugoClient implements Publisher
type CentrifugoClient struct {
	url    string
	apiKey string
	client *http.Client
	log    *zap.Logger
}

// NewCentrifugoClient creates a new Centrifugo client
func NewCentrifugoClient(url, apiKey string, log *zap.Logger) *CentrifugoClient {
	return &CentrifugoClient{
		url:    strings.TrimRight(url, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log.Named("centrifugo"),
	}
}

// TenantChannel Centrifugo channel of a tenant inbox
func TenantChannel(tenantID uuid.UUID) string {
	return "inbox:tenant_" + tenantID.String()
}

type publishRequest struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

type publishParams struct {
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}

func (c *CentrifugoClient) publish(channel string, data interface{}) (err error) {
	defer func() { metrics.RecordOutbound("centrifugo", err) }()

	body, err := json.Marshal(publishRequest{
		Method: "publish",
		Params: publishParams{Channel: channel, Data: data},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.url+"/api", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "apikey "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.log.Warn("centrifugo publish failed", zap.Error(err))
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("centrifugo publish bad status",
			zap.Int("status", resp.StatusCode),
			zap.String("channel", channel),
		)
		return fmt.Errorf("bad status: %d", resp.StatusCode)
	}

	c.log.Debug("published to centrifugo", zap.String("channel", channel))
	return nil
}

// PublishMessage publishes a message event to the tenant channel
func (c *CentrifugoClient) PublishMessage(tenantID uuid.UUID, event *MessageEvent) error {
	return c.publish(TenantChannel(tenantID), Envelope{Type: messageEventType(event), Data: event})
}

// PublishConversation publishes a conversation update
func (c *CentrifugoClient) PublishConversation(tenantID uuid.UUID, event *ConversationEvent) error {
	return c.publish(TenantChannel(tenantID), Envelope{Type: EventConversationUpdated, Data: event})
}

// PublishNotification publishes a notification. Per-user filtering happens in the dashboard.
func (c *CentrifugoClient) PublishNotification(tenantID uuid.UUID, event *NotificationEvent) error {
	return c.publish(TenantChannel(tenantID), Envelope{Type: EventNotificationCreated, Data: event})
}
