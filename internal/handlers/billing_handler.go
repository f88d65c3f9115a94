package handlers

import (
	"net/http"

	"uppypro/internal/dto"
	"uppypro/internal/middleware"
	"uppypro/internal/models"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ===========================================================================
// Billing Handler
// Subscription status, checkout flows, payments and the public price list
// ===========================================================================

// BillingHandler billing endpoints
type BillingHandler struct {
	subscriptionService services.SubscriptionService
	pricingService      services.PricingService
	logger              *zap.Logger
}

// NewBillingHandler creates the handler
func NewBillingHandler(subscriptionService services.SubscriptionService, pricingService services.PricingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		subscriptionService: subscriptionService,
		pricingService:      pricingService,
		logger:              logger,
	}
}

// BuyerRequest billing details shared by both providers
type BuyerRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	Surname        string `json:"surname" binding:"required,max=100"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone" binding:"required,max=20"`
	IdentityNumber string `json:"identity_number" binding:"omitempty,numeric,len=11"`
	City           string `json:"city" binding:"required,max=100"`
	Country        string `json:"country" binding:"omitempty,max=100"`
	Address        string `json:"address" binding:"required,max=500"`
	ZipCode        string `json:"zip_code" binding:"omitempty,max=10"`
}

func (b BuyerRequest) buyer() services.Buyer {
	return services.Buyer{
		Name:           b.Name,
		Surname:        b.Surname,
		Email:          b.Email,
		Phone:          b.Phone,
		IdentityNumber: b.IdentityNumber,
		City:           b.City,
		Country:        b.Country,
		Address:        b.Address,
		ZipCode:        b.ZipCode,
	}
}

// CheckoutRequest body of POST /billing/checkout
type CheckoutRequest struct {
	PlanCode string       `json:"plan_code" binding:"required"`
	Buyer    BuyerRequest `json:"buyer" binding:"required"`
}

// PayTRPaymentRequest body of POST /billing/paytr
type PayTRPaymentRequest struct {
	PlanCode string       `json:"plan_code" binding:"required"`
	Purpose  string       `json:"purpose" binding:"omitempty,oneof=subscription renewal addon"`
	Buyer    BuyerRequest `json:"buyer" binding:"required"`
}

// Pricing public plan list
// GET /api/v1/pricing
func (h *BillingHandler) Pricing(c *gin.Context) {
	plans, err := h.pricingService.ListPlans(c.Request.Context(), true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(plans))
}

// Status subscription, plan and access state
// GET /api/v1/billing/subscription
func (h *BillingHandler) Status(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	view, err := h.subscriptionService.Status(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(view))
}

// Checkout starts an Iyzico subscription checkout
// POST /api/v1/billing/checkout
func (h *BillingHandler) Checkout(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "plan ve fatura bilgileri gerekli")
		return
	}

	form, err := h.subscriptionService.StartCheckout(c.Request.Context(), tenantID, req.PlanCode, req.Buyer.buyer())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(form))
}

// PayTRPayment creates a PayTR iframe payment
// POST /api/v1/billing/paytr
func (h *BillingHandler) PayTRPayment(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	var req PayTRPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "plan ve fatura bilgileri gerekli")
		return
	}

	payment, err := h.subscriptionService.StartPayTRPayment(
		c.Request.Context(),
		tenantID,
		req.PlanCode,
		models.PaymentPurpose(req.Purpose),
		req.Buyer.buyer(),
		c.ClientIP(),
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(payment))
}

// Cancel stops renewals
// POST /api/v1/billing/cancel
func (h *BillingHandler) Cancel(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Cancel(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(sub))
}

// Payments payment history
// GET /api/v1/billing/payments?status=paid
func (h *BillingHandler) Payments(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	status := c.Query("status")
	switch models.PaymentStatus(status) {
	case "", models.PaymentPending, models.PaymentPaid, models.PaymentFailed, models.PaymentRefunded:
	default:
		badRequest(c, "geçersiz ödeme durumu")
		return
	}

	payments, total, err := h.subscriptionService.ListPayments(c.Request.Context(), tenantID, status, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessWithMeta(payments, dto.NewMeta(page.Page, page.Limit, total)))
}

// RegisterPublicRoutes routes without authentication
func (h *BillingHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/pricing", h.Pricing)
}

// RegisterRoutes tenant billing routes. They stay reachable without an
// active subscription so a blocked tenant can pay.
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	billing := rg.Group("/billing")
	{
		billing.GET("/subscription", h.Status)
		billing.GET("/payments", h.Payments)

		owner := billing.Group("")
		owner.Use(middleware.RequireOwner())
		owner.POST("/checkout", h.Checkout)
		owner.POST("/paytr", h.PayTRPayment)
		owner.POST("/cancel", h.Cancel)
	}
}
