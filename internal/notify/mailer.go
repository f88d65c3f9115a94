package notify

//go:generate mockgen -source=mailer.go -destination=mocks/mailer_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"uppypro/internal/config"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/metrics"

	"go.uber.org/zap"
)

// ===========================================================================
// Transactional email through Resend
// ===========================================================================

const resendService = "resend"

// Email outgoing message
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends transactional email and returns the provider message id
type Mailer interface {
	Send(ctx context.Context, email Email) (string, error)
}

// NewMailer returns a ResendMailer, or a LogMailer when no API key is configured
func NewMailer(cfg config.ResendConfig, logger *zap.Logger) Mailer {
	if cfg.APIKey == "" {
		logger.Warn("resend api key not set, emails will only be logged")
		return NewLogMailer(logger)
	}
	return NewResendMailer(cfg, logger)
}

// ResendMailer posts to the Resend /emails endpoint
type ResendMailer struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewResendMailer creates the Resend client
func NewResendMailer(cfg config.ResendConfig, logger *zap.Logger) *ResendMailer {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendMailer{
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("resend"),
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Send delivers email
func (m *ResendMailer) Send(ctx context.Context, email Email) (_ string, err error) {
	defer func() { metrics.RecordOutbound(resendService, err) }()

	if len(email.To) == 0 {
		return "", fmt.Errorf("%w: email has no recipients", apperrors.ErrInvalidInput)
	}

	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", apperrors.ExternalTransport(resendService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", apperrors.ExternalTransport(resendService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn("resend rejected email",
			zap.Int("status", resp.StatusCode),
			zap.String("subject", email.Subject),
		)
		return "", apperrors.NewExternal(resendService, resp.StatusCode, respBody)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode resend response: %w", err)
	}

	m.logger.Info("email sent", zap.String("id", out.ID), zap.Int("recipients", len(email.To)))
	return out.ID, nil
}

// LogMailer logs emails instead of sending them (development)
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mail")}
}

// Send logs the email and returns a synthetic id
func (m *LogMailer) Send(ctx context.Context, email Email) (string, error) {
	m.logger.Info("email (not sent)",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("text", email.Text),
	)
	return "log-" + time.Now().UTC().Format("20060102150405.000000"), nil
}
