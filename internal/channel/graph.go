package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"uppypro/internal/config"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/metrics"

	"go.uber.org/zap"
)

// ===========================================================================
// Graph API client
// Shared by the WhatsApp and Instagram adapters
// ===========================================================================

const (
	defaultGraphBaseURL = "https://graph.facebook.com"
	defaultGraphVersion = "v21.0"
	graphService        = "meta"
)

// GraphClient thin JSON client for graph.facebook.com
type GraphClient struct {
	baseURL    string
	version    string
	httpClient *http.Client
	logger     *zap.Logger
}

// GraphError error object returned by the Graph API
type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
}

// NewGraphClient creates a client from the meta config
func NewGraphClient(cfg config.MetaConfig, logger *zap.Logger) *GraphClient {
	baseURL := strings.TrimRight(cfg.GraphBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}
	version := cfg.GraphVersion
	if version == "" {
		version = defaultGraphVersion
	}

	return &GraphClient{
		baseURL:    baseURL,
		version:    version,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("graph"),
	}
}

// Version configured Graph API version
func (g *GraphClient) Version() string {
	return g.version
}

// endpoint builds https://graph.facebook.com/{version}/{path}?{query}
func (g *GraphClient) endpoint(path string, query url.Values) string {
	u := fmt.Sprintf("%s/%s/%s", g.baseURL, g.version, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get performs GET {path} and decodes the JSON response into out
func (g *GraphClient) Get(ctx context.Context, path, token string, query url.Values, out interface{}) error {
	return g.do(ctx, http.MethodGet, g.endpoint(path, query), token, nil, out)
}

// Post performs POST {path} with a JSON body and decodes the JSON response into out
func (g *GraphClient) Post(ctx context.Context, path, token string, query url.Values, body, out interface{}) error {
	return g.do(ctx, http.MethodPost, g.endpoint(path, query), token, body, out)
}

func (g *GraphClient) do(ctx context.Context, method, endpoint, token string, body, out interface{}) (err error) {
	defer func() { metrics.RecordOutbound(graphService, err) }()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal graph request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create graph request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return apperrors.ExternalTransport(graphService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.ExternalTransport(graphService, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error *GraphError `json:"error"`
		}
		extErr := apperrors.NewExternal(graphService, resp.StatusCode, respBody)
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != nil {
			extErr.Body = fmt.Sprintf("(#%d) %s", envelope.Error.Code, envelope.Error.Message)
		}
		g.logger.Warn("graph api error",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("error", extErr.Body),
		)
		return extErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}
