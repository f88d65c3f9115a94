package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "uppypro/internal/errors"
	"uppypro/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// n8n AI webhook client
// The AI itself runs in an n8n workflow; this only forwards conversation
// context and reads an optional synchronous reply.
// ===========================================================================

const agentService = "n8n"

// DefaultTimeout used when the configured timeout is zero
const DefaultTimeout = 20 * time.Second

// Customer who wrote the message
type Customer struct {
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
}

// Callbacks internal API endpoints the workflow may call back
type Callbacks struct {
	SendMessage string `json:"send_message"`
	History     string `json:"history"`
	Summary     string `json:"summary"`
	Handoff     string `json:"handoff"`
	Context     string `json:"context"`
	Appointment string `json:"appointment"`
}

// Request payload POSTed to the tenant's webhook
type Request struct {
	Event           string    `json:"event"`
	TenantID        uuid.UUID `json:"tenant_id"`
	ConversationID  uuid.UUID `json:"conversation_id"`
	MessageID       uuid.UUID `json:"message_id"`
	Channel         string    `json:"channel"`
	Customer        Customer  `json:"customer"`
	Text            string    `json:"text"`
	MessageType     string    `json:"message_type,omitempty"`
	BusinessContext string    `json:"business_context,omitempty"`
	ReplyMode       string    `json:"reply_mode"`
	SentAt          time.Time `json:"sent_at"`
	Callbacks       Callbacks `json:"callbacks"`
}

// Reply optional synchronous answer from the workflow
type Reply struct {
	Reply         string `json:"reply"`
	Handoff       bool   `json:"handoff"`
	HandoffReason string `json:"handoff_reason"`
}

// HasReply non-empty reply text
func (r *Reply) HasReply() bool {
	return r != nil && strings.TrimSpace(r.Reply) != ""
}

// Client posts to n8n webhooks
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client with the given per-request timeout
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("agent"),
	}
}

// Forward posts req to webhookURL. An empty or non-JSON 2xx body yields an empty Reply.
func (c *Client) Forward(ctx context.Context, webhookURL string, req *Request) (_ *Reply, err error) {
	defer func() { metrics.RecordOutbound(agentService, err) }()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create agent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "uppypro-agent/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrTimeout, apperrors.ExternalTransport(agentService, err))
		}
		return nil, apperrors.ExternalTransport(agentService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return nil, apperrors.ExternalTransport(agentService, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewExternal(agentService, resp.StatusCode, respBody)
	}

	reply := &Reply{}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return reply, nil
	}

	// n8n "Respond to Webhook" nodes sometimes wrap the object in an array
	trimmed := bytes.TrimSpace(respBody)
	if trimmed[0] == '[' {
		var replies []Reply
		if json.Unmarshal(trimmed, &replies) == nil && len(replies) > 0 {
			return &replies[0], nil
		}
		return reply, nil
	}
	if err := json.Unmarshal(trimmed, reply); err != nil {
		c.logger.Debug("agent answered with a non-JSON body", zap.Int("bytes", len(respBody)))
		return &Reply{}, nil
	}
	return reply, nil
}
