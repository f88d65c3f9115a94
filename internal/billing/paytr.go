package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ===========================================================================
// PayTR iframe API client
// ===========================================================================

const paytrService = "paytr"

// PayTR callback statuses
const (
	PayTRSuccess = "success"
	PayTRFailed  = "failed"
)

// PayTRClient requests iframe tokens and verifies callbacks
type PayTRClient struct {
	merchantID   string
	merchantKey  string
	merchantSalt string
	baseURL      string
	okURL        string
	failURL      string
	testMode     bool
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewPayTRClient creates the client
func NewPayTRClient(cfg config.PayTRConfig, logger *zap.Logger) *PayTRClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.paytr.com"
	}
	return &PayTRClient{
		merchantID:   cfg.MerchantID,
		merchantKey:  cfg.MerchantKey,
		merchantSalt: cfg.MerchantSalt,
		baseURL:      baseURL,
		okURL:        cfg.OkURL,
		failURL:      cfg.FailURL,
		testMode:     cfg.TestMode,
		httpClient:   &http.Client{Timeout: 20 * time.Second},
		logger:       logger.Named("paytr"),
	}
}

// BasketItem one line of user_basket
type BasketItem struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// IframeRequest payment details for get-token
type IframeRequest struct {
	MerchantOID string
	Email       string
	Amount      decimal.Decimal
	Currency    string
	UserIP      string
	UserName    string
	UserAddress string
	UserPhone   string
	Basket      []BasketItem
}

// IframeToken token and the iframe URL to embed
type IframeToken struct {
	Token     string `json:"token"`
	IframeURL string `json:"iframe_url"`
}

// ToKurus converts a lira amount to integer kuruş
func ToKurus(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromKurus converts integer kuruş (as sent in callbacks) to lira
func FromKurus(raw string) (decimal.Decimal, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse kurus amount %q: %w", raw, err)
	}
	return decimal.NewFromInt(n).Div(decimal.NewFromInt(100)), nil
}

// EncodeBasket base64 JSON basket: [["name","12.50",1], ...]
func EncodeBasket(items []BasketItem) (string, error) {
	rows := make([][]interface{}, 0, len(items))
	for _, it := range items {
		rows = append(rows, []interface{}{it.Name, it.Price.StringFixed(2), it.Quantity})
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// GetIframeToken calls /odeme/api/get-token
func (c *PayTRClient) GetIframeToken(ctx context.Context, req IframeRequest) (_ *IframeToken, err error) {
	defer func() { metrics.RecordOutbound(paytrService, err) }()

	basket, err := EncodeBasket(req.Basket)
	if err != nil {
		return nil, fmt.Errorf("encode basket: %w", err)
	}

	currency := req.Currency
	if currency == "" || currency == "TRY" {
		currency = "TL"
	}
	amount := strconv.FormatInt(ToKurus(req.Amount), 10)
	testMode := "0"
	if c.testMode {
		testMode = "1"
	}
	const noInstallment, maxInstallment = "1", "0"

	token := c.hash(c.merchantID + req.UserIP + req.MerchantOID + req.Email + amount + basket +
		noInstallment + maxInstallment + currency + testMode + c.merchantSalt)

	form := url.Values{}
	form.Set("merchant_id", c.merchantID)
	form.Set("user_ip", req.UserIP)
	form.Set("merchant_oid", req.MerchantOID)
	form.Set("email", req.Email)
	form.Set("payment_amount", amount)
	form.Set("paytr_token", token)
	form.Set("user_basket", basket)
	form.Set("debug_on", testMode)
	form.Set("no_installment", noInstallment)
	form.Set("max_installment", maxInstallment)
	form.Set("user_name", req.UserName)
	form.Set("user_address", req.UserAddress)
	form.Set("user_phone", req.UserPhone)
	form.Set("merchant_ok_url", c.okURL)
	form.Set("merchant_fail_url", c.failURL)
	form.Set("timeout_limit", "30")
	form.Set("currency", currency)
	form.Set("test_mode", testMode)
	form.Set("lang", "tr")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/odeme/api/get-token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create paytr request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperrors.ExternalTransport(paytrService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.ExternalTransport(paytrService, err)
	}

	var out struct {
		Status string `json:"status"`
		Token  string `json:"token"`
		Reason string `json:"reason"`
	}
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode != http.StatusOK || out.Status != "success" {
		status := resp.StatusCode
		if status == http.StatusOK {
			status = http.StatusUnprocessableEntity
		}
		extErr := apperrors.NewExternal(paytrService, status, body)
		if out.Reason != "" {
			extErr.Body = out.Reason
		}
		c.logger.Warn("paytr get-token failed", zap.String("merchant_oid", req.MerchantOID), zap.String("reason", extErr.Body))
		return nil, extErr
	}

	return &IframeToken{
		Token:     out.Token,
		IframeURL: c.baseURL + "/odeme/guvenli/" + out.Token,
	}, nil
}

// PayTRCallback form fields posted to the notification URL
type PayTRCallback struct {
	MerchantOID      string `form:"merchant_oid" binding:"required"`
	Status           string `form:"status" binding:"required"`
	TotalAmount      string `form:"total_amount" binding:"required"`
	Hash             string `form:"hash" binding:"required"`
	FailedReasonCode string `form:"failed_reason_code"`
	FailedReasonMsg  string `form:"failed_reason_msg"`
	TestMode         string `form:"test_mode"`
	PaymentType      string `form:"payment_type"`
	Currency         string `form:"currency"`
	PaymentAmount    string `form:"payment_amount"`
}

// CallbackHash base64 HMAC-SHA256 over merchant_oid+salt+status+total_amount
func (c *PayTRClient) CallbackHash(merchantOID, status, totalAmount string) string {
	return c.hash(merchantOID + c.merchantSalt + status + totalAmount)
}

// VerifyCallback checks the hash of a notification
func (c *PayTRClient) VerifyCallback(merchantOID, status, totalAmount, hash string) bool {
	if c.merchantKey == "" || hash == "" {
		return false
	}
	return hmac.Equal([]byte(c.CallbackHash(merchantOID, status, totalAmount)), []byte(hash))
}

func (c *PayTRClient) hash(s string) string {
	mac := hmac.New(sha256.New, []byte(c.merchantKey))
	mac.Write([]byte(s))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
