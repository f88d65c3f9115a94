package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"uppypro/internal/config"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/metrics"

	"go.uber.org/zap"
)

// ===========================================================================
// Iyzico subscription API client
// Plain REST with the IYZWSv2 signature scheme
// ===========================================================================

const iyzicoService = "iyzico"

// Iyzico webhook event types
const (
	IyzicoOrderSuccess = "subscription.order.success"
	IyzicoOrderFailure = "subscription.order.failure"
	IyzicoCanceled     = "subscription.canceled"
)

// IyzicoClient calls the subscription endpoints
type IyzicoClient struct {
	apiKey      string
	secretKey   string
	merchantID  string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewIyzicoClient creates the client
func NewIyzicoClient(cfg config.IyzicoConfig, logger *zap.Logger) *IyzicoClient {
	return &IyzicoClient{
		apiKey:      cfg.APIKey,
		secretKey:   cfg.SecretKey,
		merchantID:  cfg.MerchantID,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		callbackURL: cfg.CallbackURL,
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		logger:      logger.Named("iyzico"),
	}
}

// ===========================================================================
// Request / response types
// ===========================================================================

// IyzicoAddress billing address
type IyzicoAddress struct {
	ContactName string `json:"contactName"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
	ZipCode     string `json:"zipCode,omitempty"`
}

// IyzicoCustomer subscriber details
type IyzicoCustomer struct {
	Name            string        `json:"name"`
	Surname         string        `json:"surname"`
	Email           string        `json:"email"`
	GsmNumber       string        `json:"gsmNumber"`
	IdentityNumber  string        `json:"identityNumber"`
	BillingAddress  IyzicoAddress `json:"billingAddress"`
	ShippingAddress IyzicoAddress `json:"shippingAddress"`
}

// CheckoutRequest subscription checkout form initialization
type CheckoutRequest struct {
	ConversationID string
	PlanRef        string
	Customer       IyzicoCustomer
}

// CheckoutForm initialized checkout form
type CheckoutForm struct {
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	TokenExpireTime     int64  `json:"tokenExpireTime"`
}

// SubscriptionData subscription as reported by Iyzico
type SubscriptionData struct {
	ReferenceCode            string `json:"referenceCode"`
	ParentReferenceCode      string `json:"parentReferenceCode"`
	PricingPlanReferenceCode string `json:"pricingPlanReferenceCode"`
	CustomerReferenceCode    string `json:"customerReferenceCode"`
	SubscriptionStatus       string `json:"subscriptionStatus"`
	TrialDays                int    `json:"trialDays"`
	CreatedDate              int64  `json:"createdDate"`
	StartDate                int64  `json:"startDate"`
	EndDate                  int64  `json:"endDate"`
}

// IsActive subscription status is ACTIVE
func (d *SubscriptionData) IsActive() bool {
	return strings.EqualFold(d.SubscriptionStatus, "ACTIVE")
}

// PeriodStart start date as time, zero when unset
func (d *SubscriptionData) PeriodStart() time.Time { return unixMilli(d.StartDate) }

// PeriodEnd end date as time, zero when unset
func (d *SubscriptionData) PeriodEnd() time.Time { return unixMilli(d.EndDate) }

type iyzicoEnvelope struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	SystemTime   int64  `json:"systemTime"`
}

// ===========================================================================
// Operations
// ===========================================================================

// InitializeSubscriptionCheckout creates a hosted checkout form for a plan
func (c *IyzicoClient) InitializeSubscriptionCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutForm, error) {
	body := map[string]interface{}{
		"locale":                    "tr",
		"conversationId":            req.ConversationID,
		"callbackUrl":               c.callbackURL,
		"pricingPlanReferenceCode":  req.PlanRef,
		"subscriptionInitialStatus": "ACTIVE",
		"customer":                  req.Customer,
	}

	var resp struct {
		iyzicoEnvelope
		CheckoutForm
	}
	if err := c.do(ctx, http.MethodPost, "/v2/subscription/checkoutform/initialize", body, &resp); err != nil {
		return nil, err
	}
	return &resp.CheckoutForm, nil
}

// RetrieveCheckoutResult returns the subscription created by a completed checkout form
func (c *IyzicoClient) RetrieveCheckoutResult(ctx context.Context, token string) (*SubscriptionData, error) {
	var resp struct {
		iyzicoEnvelope
		Data SubscriptionData `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/subscription/checkoutform/"+url.PathEscape(token), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// CancelSubscription cancels renewals of the subscription
func (c *IyzicoClient) CancelSubscription(ctx context.Context, ref string) error {
	var resp iyzicoEnvelope
	return c.do(ctx, http.MethodPost, "/v2/subscription/subscriptions/"+url.PathEscape(ref)+"/cancel", map[string]string{}, &resp)
}

func (c *IyzicoClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) (err error) {
	defer func() { metrics.RecordOutbound(iyzicoService, err) }()

	var raw []byte
	if body != nil {
		if raw, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal iyzico request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create iyzico request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	authorization, rnd, err := c.authorize(path, raw)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("x-iyzi-rnd", rnd)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.ExternalTransport(iyzicoService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.ExternalTransport(iyzicoService, err)
	}

	var env iyzicoEnvelope
	_ = json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status != "success" {
		status := resp.StatusCode
		if status >= 200 && status < 300 {
			// business failure reported with a 200
			status = http.StatusUnprocessableEntity
		}
		extErr := apperrors.NewExternal(iyzicoService, status, respBody)
		if env.ErrorMessage != "" {
			extErr.Body = strings.TrimSpace(env.ErrorCode + " " + env.ErrorMessage)
		}
		c.logger.Warn("iyzico request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", extErr.Body),
		)
		return extErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode iyzico response: %w", err)
		}
	}
	return nil
}

// ===========================================================================
// Signatures
// ===========================================================================

// authorize builds the IYZWSv2 Authorization header and the random key
func (c *IyzicoClient) authorize(path string, body []byte) (string, string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", "", fmt.Errorf("iyzico random key: %w", err)
	}
	rnd := strconv.FormatInt(time.Now().UnixMilli(), 10) + hex.EncodeToString(suffix)

	return IyzicoAuthorization(c.apiKey, c.secretKey, rnd, path, body), rnd, nil
}

// IyzicoAuthorization computes "IYZWSv2 base64(apiKey:..&randomKey:..&signature:..)".
// The signed uri path excludes the query string.
func IyzicoAuthorization(apiKey, secretKey, rnd, path string, body []byte) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(rnd + path))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	params := "apiKey:" + apiKey + "&randomKey:" + rnd + "&signature:" + signature
	return "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(params))
}

// IyzicoWebhook subscription webhook body
type IyzicoWebhook struct {
	MerchantID                string `json:"merchantId"`
	IyziEventType             string `json:"iyziEventType"`
	IyziEventTime             int64  `json:"iyziEventTime"`
	IyziReferenceCode         string `json:"iyziReferenceCode"`
	SubscriptionReferenceCode string `json:"subscriptionReferenceCode"`
	OrderReferenceCode        string `json:"orderReferenceCode"`
	CustomerReferenceCode     string `json:"customerReferenceCode"`
}

// EventKey idempotency key of the delivery
func (w *IyzicoWebhook) EventKey() string {
	if w.IyziReferenceCode != "" {
		return w.IyziReferenceCode
	}
	return w.OrderReferenceCode + ":" + w.IyziEventType
}

// OccurredAt event time, falling back to now
func (w *IyzicoWebhook) OccurredAt() time.Time {
	if t := unixMilli(w.IyziEventTime); !t.IsZero() {
		return t
	}
	return time.Now().UTC()
}

// SignatureHeader header carrying the V3 webhook signature
const SignatureHeader = "X-IYZ-SIGNATURE-V3"

// WebhookSignature hex HMAC-SHA256 over the subscription webhook fields
func (c *IyzicoClient) WebhookSignature(w *IyzicoWebhook) string {
	merchantID := c.merchantID
	if merchantID == "" {
		merchantID = w.MerchantID
	}
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(merchantID + c.secretKey + w.IyziEventType + w.SubscriptionReferenceCode +
		w.OrderReferenceCode + w.CustomerReferenceCode))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook checks the X-IYZ-SIGNATURE-V3 header
func (c *IyzicoClient) VerifyWebhook(w *IyzicoWebhook, signature string) bool {
	if c.secretKey == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(c.WebhookSignature(w))
	return hmac.Equal(got, want)
}

func unixMilli(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
