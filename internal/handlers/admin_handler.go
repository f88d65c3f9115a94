package handlers

import (
	"net/http"
	"strings"

	"uppypro/internal/dto"
	"uppypro/internal/middleware"
	"uppypro/internal/models"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdminHandler agency admin endpoints: every tenant, subscription overrides and plans
type AdminHandler struct {
	tenantService       services.TenantService
	subscriptionService services.SubscriptionService
	pricingService      services.PricingService
	logger              *zap.Logger
}

// NewAdminHandler creates the handler
func NewAdminHandler(
	tenantService services.TenantService,
	subscriptionService services.SubscriptionService,
	pricingService services.PricingService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		tenantService:       tenantService,
		subscriptionService: subscriptionService,
		pricingService:      pricingService,
		logger:              logger,
	}
}

// SetStatusRequest body of PUT /admin/tenants/:id/subscription
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active canceled past_due unpaid suspended pending_payment"`
}

// PlanRequest body of plan create/update
type PlanRequest struct {
	Code          string          `json:"code" binding:"omitempty,max=50"`
	Name          string          `json:"name" binding:"required,max=100"`
	Description   string          `json:"description" binding:"max=1000"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency" binding:"omitempty,len=3"`
	Interval      string          `json:"interval" binding:"omitempty,oneof=monthly yearly"`
	IyzicoPlanRef string          `json:"iyzico_plan_ref" binding:"max=100"`
	Features      []string        `json:"features"`
	IsActive      *bool           `json:"is_active"`
	SortOrder     int             `json:"sort_order"`
}

func (r PlanRequest) input() services.PlanInput {
	return services.PlanInput{
		Code:          r.Code,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		Currency:      r.Currency,
		Interval:      models.PlanInterval(r.Interval),
		IyzicoPlanRef: r.IyzicoPlanRef,
		Features:      r.Features,
		IsActive:      r.IsActive,
		SortOrder:     r.SortOrder,
	}
}

// ListTenants GET /api/v1/admin/tenants?q=salon
func (h *AdminHandler) ListTenants(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	tenants, total, err := h.tenantService.ListTenants(c.Request.Context(), strings.TrimSpace(c.Query("q")), page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessWithMeta(tenants, dto.NewMeta(page.Page, page.Limit, total)))
}

// SetSubscriptionStatus manual override
// PUT /api/v1/admin/tenants/:id/subscription
func (h *AdminHandler) SetSubscriptionStatus(c *gin.Context) {
	tenantID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "geçersiz abonelik durumu")
		return
	}

	sub, err := h.subscriptionService.SetStatus(c.Request.Context(), tenantID, models.SubscriptionStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if userID, ok := middleware.GetUserID(c); ok {
		h.logger.Info("subscription status overridden",
			zap.String("tenant_id", tenantID.String()),
			zap.String("status", req.Status),
			zap.String("admin_id", userID.String()),
		)
	}
	c.JSON(http.StatusOK, dto.Success(sub))
}

// ListPlans every plan, inactive included
// GET /api/v1/admin/plans
func (h *AdminHandler) ListPlans(c *gin.Context) {
	plans, err := h.pricingService.ListPlans(c.Request.Context(), false)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(plans))
}

// CreatePlan POST /api/v1/admin/plans
func (h *AdminHandler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "plan adı gerekli")
		return
	}

	plan, err := h.pricingService.CreatePlan(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Success(plan))
}

// UpdatePlan PUT /api/v1/admin/plans/:id
func (h *AdminHandler) UpdatePlan(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "plan adı gerekli")
		return
	}

	plan, err := h.pricingService.UpdatePlan(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success(plan))
}

// RegisterRoutes mounts /admin on a group running TenantContext, which
// resolves the caller's agency membership
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RequireAgencyAdmin())
	{
		admin.GET("/tenants", h.ListTenants)
		admin.PUT("/tenants/:id/subscription", h.SetSubscriptionStatus)
		admin.GET("/plans", h.ListPlans)
		admin.POST("/plans", h.CreatePlan)
		admin.PUT("/plans/:id", h.UpdatePlan)
	}
}
