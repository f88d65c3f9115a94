package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"uppypro/internal/billing"
	"uppypro/internal/channel"
	"uppypro/internal/dto"
	"uppypro/internal/metrics"
	"uppypro/internal/middleware"
	"uppypro/internal/models"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ===========================================================================
// Webhook Handler
// Public receivers for Meta, Iyzico and PayTR
// ===========================================================================

// maxWebhookBody Meta batches stay far below this
const maxWebhookBody = 1 << 20

// IyzicoWebhookVerifier checks the Iyzico V3 signature
type IyzicoWebhookVerifier interface {
	VerifyWebhook(w *billing.IyzicoWebhook, signature string) bool
}

// PayTRCallbackVerifier checks the PayTR notification hash
type PayTRCallbackVerifier interface {
	VerifyCallback(merchantOID, status, totalAmount, hash string) bool
}

// WebhookConfig secrets and redirect target of the receivers
type WebhookConfig struct {
	MetaAppSecret   string
	MetaVerifyToken string
	FrontendURL     string
}

// WebhookHandler webhook endpoints
type WebhookHandler struct {
	inbox         services.InboxWebhookService
	subscriptions services.SubscriptionService
	iyzico        IyzicoWebhookVerifier
	paytr         PayTRCallbackVerifier
	cfg           WebhookConfig
	logger        *zap.Logger
}

// NewWebhookHandler creates the handler
func NewWebhookHandler(
	inbox services.InboxWebhookService,
	subscriptions services.SubscriptionService,
	iyzico IyzicoWebhookVerifier,
	paytr PayTRCallbackVerifier,
	cfg WebhookConfig,
	logger *zap.Logger,
) *WebhookHandler {
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &WebhookHandler{
		inbox:         inbox,
		subscriptions: subscriptions,
		iyzico:        iyzico,
		paytr:         paytr,
		cfg:           cfg,
		logger:        logger.Named("webhooks"),
	}
}

// ===========================================================================
// Meta (WhatsApp Cloud API, Instagram Messaging)
// ===========================================================================

// MetaVerify subscription handshake
// GET /webhooks/meta
func (h *WebhookHandler) MetaVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.cfg.MetaVerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}

	h.logger.Warn("meta verify rejected", zap.String("mode", mode))
	c.JSON(http.StatusForbidden, dto.Error("FORBIDDEN", "Invalid verify token"))
}

// MetaWebhook message and status deliveries. Anything past the signature
// check is acknowledged so Meta does not disable the subscription.
// POST /webhooks/meta
func (h *WebhookHandler) MetaWebhook(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read meta body", zap.String("request_id", requestID), zap.Error(err))
		c.JSON(http.StatusOK, dto.Success(gin.H{"received": false}))
		return
	}

	if !channel.Verify(c.GetHeader(channel.SignatureHeader), body, h.cfg.MetaAppSecret) {
		metrics.RecordWebhook(string(models.WebhookMeta), "bad_signature")
		h.logger.Warn("meta signature mismatch", zap.String("request_id", requestID))
		c.JSON(http.StatusUnauthorized, dto.Error("INVALID_SIGNATURE", "Invalid signature"))
		return
	}

	result, err := h.inbox.HandleMeta(c.Request.Context(), body)
	if err != nil {
		h.logger.Error("meta delivery failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, dto.Success(gin.H{"received": true}))
		return
	}

	h.logger.Debug("meta delivery handled",
		zap.String("request_id", requestID),
		zap.String("channel", string(result.Channel)),
		zap.Bool("duplicate", result.Duplicate),
		zap.Int("messages", result.Messages),
		zap.Int("statuses", result.Statuses),
		zap.Int("skipped", result.Skipped),
	)
	c.JSON(http.StatusOK, dto.Success(gin.H{"received": true}))
}

// ===========================================================================
// Iyzico
// ===========================================================================

// iyzicoEventTypes Iyzico event type to billing event
var iyzicoEventTypes = map[string]services.BillingEventType{
	billing.IyzicoOrderSuccess: services.BillingPaymentSucceeded,
	billing.IyzicoOrderFailure: services.BillingPaymentFailed,
	billing.IyzicoCanceled:     services.BillingSubscriptionCanceled,
}

// IyzicoWebhook subscription lifecycle events
// POST /webhooks/iyzico
func (h *WebhookHandler) IyzicoWebhook(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}

	var hook billing.IyzicoWebhook
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &hook); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	_ = json.Unmarshal(body, &payload)

	if !h.iyzico.VerifyWebhook(&hook, c.GetHeader(billing.SignatureHeader)) {
		metrics.RecordWebhook(string(models.WebhookIyzico), "bad_signature")
		h.logger.Warn("iyzico signature mismatch",
			zap.String("request_id", requestID),
			zap.String("event_type", hook.IyziEventType),
		)
		c.JSON(http.StatusUnauthorized, dto.Error("INVALID_SIGNATURE", "Invalid signature"))
		return
	}

	eventType, known := iyzicoEventTypes[hook.IyziEventType]
	if !known {
		metrics.RecordWebhook(string(models.WebhookIyzico), string(services.OutcomeIgnored))
		h.logger.Info("iyzico event ignored", zap.String("event_type", hook.IyziEventType))
		c.JSON(http.StatusOK, dto.Success(gin.H{"outcome": services.OutcomeIgnored}))
		return
	}

	h.apply(c, services.BillingEvent{
		Provider:        models.WebhookIyzico,
		EventKey:        hook.EventKey(),
		Type:            eventType,
		SubscriptionRef: hook.SubscriptionReferenceCode,
		OrderRef:        hook.OrderReferenceCode,
		OccurredAt:      hook.OccurredAt(),
		Payload:         payload,
	}, func(result *services.ApplyResult) {
		c.JSON(http.StatusOK, dto.Success(gin.H{"outcome": result.Outcome}))
	})
}

// IyzicoCallback browser returns here from the checkout form
// GET|POST /webhooks/iyzico/callback?token=
func (h *WebhookHandler) IyzicoCallback(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.PostForm("token")
	}
	if token == "" {
		h.redirectBilling(c, "failed")
		return
	}

	sub, err := h.subscriptions.CompleteCheckout(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("iyzico checkout not completed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		h.redirectBilling(c, "failed")
		return
	}

	h.logger.Info("iyzico checkout completed",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.String("status", string(sub.Status)),
	)
	h.redirectBilling(c, "success")
}

func (h *WebhookHandler) redirectBilling(c *gin.Context, status string) {
	c.Redirect(http.StatusFound, h.cfg.FrontendURL+"/billing?"+url.Values{"status": {status}}.Encode())
}

// ===========================================================================
// PayTR
// ===========================================================================

// PayTRCallback payment notification. PayTR keeps retrying until the body is "OK".
// POST /webhooks/paytr
func (h *WebhookHandler) PayTRCallback(c *gin.Context) {
	var cb billing.PayTRCallback
	if err := c.ShouldBind(&cb); err != nil {
		c.String(http.StatusBadRequest, "PAYTR notification failed: invalid form")
		return
	}

	if !h.paytr.VerifyCallback(cb.MerchantOID, cb.Status, cb.TotalAmount, cb.Hash) {
		metrics.RecordWebhook(string(models.WebhookPayTR), "bad_signature")
		h.logger.Warn("paytr hash mismatch", zap.String("merchant_oid", cb.MerchantOID))
		c.String(http.StatusUnauthorized, "PAYTR notification failed: bad hash")
		return
	}

	amount, err := billing.FromKurus(cb.TotalAmount)
	if err != nil {
		c.String(http.StatusBadRequest, "PAYTR notification failed: invalid amount")
		return
	}

	eventType := services.BillingPaymentFailed
	if cb.Status == billing.PayTRSuccess {
		eventType = services.BillingPaymentSucceeded
	}

	payload := make(map[string]interface{}, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if k == "hash" || len(v) == 0 {
			continue
		}
		payload[k] = v[0]
	}

	h.apply(c, services.BillingEvent{
		Provider: models.WebhookPayTR,
		EventKey: cb.MerchantOID + ":" + cb.Status,
		Type:     eventType,
		OrderRef: cb.MerchantOID,
		Amount:   amount,
		Reason:   strings.TrimSpace(cb.FailedReasonCode + " " + cb.FailedReasonMsg),
		Payload:  payload,
	}, func(*services.ApplyResult) {
		c.String(http.StatusOK, "OK")
	})
}

// apply runs a billing event and answers 500 on failure so the provider
// retries, 409 while another delivery holds the claim
func (h *WebhookHandler) apply(c *gin.Context, ev services.BillingEvent, ok func(*services.ApplyResult)) {
	result, err := h.subscriptions.ApplyBillingEvent(c.Request.Context(), ev)
	if err != nil {
		h.logger.Error("billing event failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("provider", string(ev.Provider)),
			zap.String("event_key", ev.EventKey),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.Error("PROCESSING_FAILED", "Event could not be processed"))
		return
	}
	if result.Outcome == services.OutcomeInProgress {
		c.JSON(http.StatusConflict, dto.Error("IN_PROGRESS", "Event is being processed"))
		return
	}
	ok(result)
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes mounts the receivers on the /webhooks group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/meta", h.MetaVerify)
	rg.POST("/meta", h.MetaWebhook)

	rg.POST("/iyzico", h.IyzicoWebhook)
	rg.GET("/iyzico/callback", h.IyzicoCallback)
	rg.POST("/iyzico/callback", h.IyzicoCallback)

	rg.POST("/paytr", h.PayTRCallback)
}
