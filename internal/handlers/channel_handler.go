package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"uppypro/internal/dto"
	"uppypro/internal/middleware"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ===========================================================================
// Channel Handler
// WhatsApp and Instagram connections of a tenant
// ===========================================================================

// ChannelHandler channel connection endpoints
type ChannelHandler struct {
	channelService services.ChannelService
	frontendURL    string
	logger         *zap.Logger
}

// NewChannelHandler creates the handler. frontendURL is where the Instagram
// OAuth callback sends the browser back to.
func NewChannelHandler(channelService services.ChannelService, frontendURL string, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{
		channelService: channelService,
		frontendURL:    strings.TrimRight(frontendURL, "/"),
		logger:         logger,
	}
}

// ConnectWhatsAppRequest body of POST /channels/whatsapp
type ConnectWhatsAppRequest struct {
	PhoneNumberID string `json:"phone_number_id" binding:"required,numeric"`
	WABAID        string `json:"waba_id" binding:"omitempty,numeric"`
	AccessToken   string `json:"access_token" binding:"required"`
}

// List connections of the tenant
// GET /api/v1/channels
func (h *ChannelHandler) List(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	connections, err := h.channelService.List(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(connections))
}

// ConnectWhatsApp stores a verified WhatsApp number
// POST /api/v1/channels/whatsapp
func (h *ChannelHandler) ConnectWhatsApp(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}

	var req ConnectWhatsAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "phone_number_id ve access_token gerekli")
		return
	}

	conn, err := h.channelService.ConnectWhatsApp(c.Request.Context(), tenantID, services.ConnectWhatsAppInput{
		PhoneNumberID: req.PhoneNumberID,
		WABAID:        req.WABAID,
		AccessToken:   req.AccessToken,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Success(conn))
}

// InstagramAuthorize returns the Facebook Login URL
// POST /api/v1/channels/instagram/authorize
func (h *ChannelHandler) InstagramAuthorize(c *gin.Context) {
	tenantID, userID, ok := scope(c)
	if !ok {
		return
	}

	authURL, err := h.channelService.InstagramAuthorizeURL(c.Request.Context(), tenantID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(gin.H{"url": authURL}))
}

// InstagramCallback Facebook redirects here after the consent screen. The
// browser always lands back on the dashboard with the outcome in the query.
// GET /api/v1/channels/instagram/callback?code=...&state=...
func (h *ChannelHandler) InstagramCallback(c *gin.Context) {
	if reason := c.Query("error_reason"); reason != "" {
		h.redirect(c, "error", reason)
		return
	}

	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		h.redirect(c, "error", "missing_code")
		return
	}

	conn, err := h.channelService.CompleteInstagramOAuth(c.Request.Context(), code, state)
	if err != nil {
		h.logger.Warn("instagram oauth failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		h.redirect(c, "error", userMessage(err, "oauth_failed"))
		return
	}

	h.redirect(c, "connected", conn.DisplayName)
}

func (h *ChannelHandler) redirect(c *gin.Context, status, detail string) {
	q := url.Values{}
	q.Set("channel", "instagram")
	q.Set("status", status)
	if detail != "" {
		q.Set("detail", detail)
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/settings/channels?"+q.Encode())
}

// Disconnect removes the credentials of a connection
// DELETE /api/v1/channels/:id
func (h *ChannelHandler) Disconnect(c *gin.Context) {
	tenantID, _, ok := scope(c)
	if !ok {
		return
	}
	connectionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	conn, err := h.channelService.Disconnect(c.Request.Context(), tenantID, connectionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(conn))
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes tenant scoped routes, owner only for changes
func (h *ChannelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	channels := rg.Group("/channels")
	{
		channels.GET("", h.List)

		owner := channels.Group("")
		owner.Use(middleware.RequireOwner())
		owner.POST("/whatsapp", h.ConnectWhatsApp)
		owner.POST("/instagram/authorize", h.InstagramAuthorize)
		owner.DELETE("/:id", h.Disconnect)
	}
}

// RegisterPublicRoutes the OAuth callback carries no session headers
func (h *ChannelHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/channels/instagram/callback", h.InstagramCallback)
}
