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
// Tenant Handler
// Business account, dashboard counters, members and invites
// ===========================================================================

// TenantHandler tenant endpoints
type TenantHandler struct {
	tenantService services.TenantService
	logger        *zap.Logger
}

// NewTenantHandler creates the handler
func NewTenantHandler(tenantService services.TenantService, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
		logger:        logger,
	}
}

// ===========================================================================
// Request DTOs
// ===========================================================================

// CreateTenantRequest body of POST /tenants
type CreateTenantRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=255"`
	Slug     string  `json:"slug" binding:"omitempty,slug,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,max=50"`
	Timezone string  `json:"timezone"`
	Locale   string  `json:"locale" binding:"omitempty,oneof=tr en"`
}

// UpdateTenantRequest body of PATCH /tenant
type UpdateTenantRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=255"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	Timezone    *string `json:"timezone"`
	Locale      *string `json:"locale" binding:"omitempty,oneof=tr en"`
	NotifyEmail *string `json:"notify_email" binding:"omitempty,email"`
}

// UpdateMemberRequest body of PATCH /members/:id
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=tenant_owner tenant_employee"`
}

// InviteRequest body of POST /invites
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"omitempty,oneof=tenant_owner tenant_employee"`
}

// AcceptInviteRequest body of POST /invites/accept
type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}

// InviteResponse created invite with the one-time token
type InviteResponse struct {
	Invite interface{} `json:"invite"`
	Token  string      `json:"token"`
}

// ===========================================================================
// Account level (no tenant selected yet)
// ===========================================================================

// Create creates a tenant owned by the caller
// POST /api/v1/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}

	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "işletme adı gerekli, kısa ad küçük harf ve tire içerebilir")
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), user, services.CreateTenantInput{
		Name:     req.Name,
		Slug:     req.Slug,
		Email:    req.Email,
		Phone:    req.Phone,
		Timezone: req.Timezone,
		Locale:   req.Locale,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Success(tenant))
}

// Me memberships of the caller
// GET /api/v1/me
func (h *TenantHandler) Me(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}

	memberships, err := h.tenantService.Me(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(gin.H{
		"user_id":     user.UserID,
		"email":       user.Email,
		"full_name":   user.FullName,
		"memberships": memberships,
	}))
}

// AcceptInvite joins the tenant of an invite
// POST /api/v1/invites/accept
func (h *TenantHandler) AcceptInvite(c *gin.Context) {
	user, ok := actor(c)
	if !ok {
		return
	}

	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "davet anahtarı gerekli")
		return
	}

	member, err := h.tenantService.AcceptInvite(c.Request.Context(), user, req.Token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(member))
}

// ===========================================================================
// Tenant level
// ===========================================================================

// Get active tenant
// GET /api/v1/tenant
func (h *TenantHandler) Get(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.Get(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(tenant))
}

// Update active tenant (owner)
// PATCH /api/v1/tenant
func (h *TenantHandler) Update(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "geçersiz işletme bilgileri")
		return
	}

	tenant, err := h.tenantService.Update(c.Request.Context(), tenantID, services.UpdateTenantInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Timezone:    req.Timezone,
		Locale:      req.Locale,
		NotifyEmail: req.NotifyEmail,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(tenant))
}

// Dashboard home counters
// GET /api/v1/dashboard
func (h *TenantHandler) Dashboard(c *gin.Context) {
	tenantID, userID, ok := scope(c)
	if !ok {
		return
	}

	summary, err := h.tenantService.Dashboard(c.Request.Context(), tenantID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(summary))
}

// ListMembers members of the tenant
// GET /api/v1/members
func (h *TenantHandler) ListMembers(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	members, err := h.tenantService.ListMembers(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(members))
}

// UpdateMember changes a member role (owner)
// PATCH /api/v1/members/:id
func (h *TenantHandler) UpdateMember(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	memberID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "rol tenant_owner veya tenant_employee olmalı")
		return
	}
	role := models.MemberRole(req.Role)

	member, err := h.tenantService.UpdateMemberRole(c.Request.Context(), tenantID, memberID, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(member))
}

// RemoveMember removes a member (owner)
// DELETE /api/v1/members/:id
func (h *TenantHandler) RemoveMember(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	memberID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.tenantService.RemoveMember(c.Request.Context(), tenantID, memberID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(gin.H{"removed": true}))
}

// ListInvites pending invites (owner)
// GET /api/v1/invites
func (h *TenantHandler) ListInvites(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	invites, err := h.tenantService.ListInvites(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(invites))
}

// Invite emails an invitation link (owner)
// POST /api/v1/invites
func (h *TenantHandler) Invite(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	inviter, ok := actor(c)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "geçerli bir e-posta adresi gerekli")
		return
	}
	role := models.MemberRole(req.Role)

	res, err := h.tenantService.Invite(c.Request.Context(), tenantID, inviter, req.Email, role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Success(InviteResponse{Invite: res.Invite, Token: res.Token}))
}

// RevokeInvite deletes a pending invite (owner)
// DELETE /api/v1/invites/:id
func (h *TenantHandler) RevokeInvite(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	inviteID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.tenantService.RevokeInvite(c.Request.Context(), tenantID, inviteID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(gin.H{"revoked": true}))
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterAccountRoutes routes that only need an authenticated user
func (h *TenantHandler) RegisterAccountRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
	rg.POST("/tenants", h.Create)
	rg.POST("/invites/accept", h.AcceptInvite)
}

// RegisterRoutes routes acting on the active tenant
func (h *TenantHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tenant", h.Get)
	rg.GET("/dashboard", h.Dashboard)
	rg.GET("/members", h.ListMembers)

	owner := rg.Group("")
	owner.Use(middleware.RequireOwner())
	{
		owner.PATCH("/tenant", h.Update)
		owner.PATCH("/members/:id", h.UpdateMember)
		owner.DELETE("/members/:id", h.RemoveMember)
		owner.GET("/invites", h.ListInvites)
		owner.POST("/invites", h.Invite)
		owner.DELETE("/invites/:id", h.RevokeInvite)
	}
}
