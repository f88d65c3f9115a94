package handlers

import (
	"net/http"
	"strings"
	"time"

	"uppypro/internal/dto"
	"uppypro/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ===========================================================================
// Auth Handler
// Browser sessions: the dashboard signs in with the identity provider and
// trades the access token for an httpOnly cookie
// ===========================================================================

// AuthHandler session endpoints
type AuthHandler struct {
	secureCookies bool
	logger        *zap.Logger
}

// NewAuthHandler creates the handler. secureCookies marks cookies Secure (production).
func NewAuthHandler(secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// SessionResponse identity behind the session
type SessionResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSession stores the Bearer token in the access_token cookie
// POST /api/v1/auth/session
func (h *AuthHandler) CreateSession(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.Error("UNAUTHORIZED", "Authentication required"))
		return
	}
	token, ok := bearerToken(c)
	if !ok {
		badRequest(c, "oturum açmak için Authorization başlığı gerekli")
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		c.JSON(http.StatusUnauthorized, dto.Error("TOKEN_EXPIRED", "Token has expired"))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, token, maxAge, "/", "", h.secureCookies, true)

	csrfToken, err := middleware.GenerateCSRFToken()
	if err != nil {
		h.logger.Error("generate csrf token failed", zap.Error(err))
	} else {
		middleware.SetCSRFCookie(c, csrfToken, h.secureCookies)
	}

	c.JSON(http.StatusOK, dto.Success(&SessionResponse{
		UserID:    claims.UserID.String(),
		Email:     claims.Email,
		FullName:  claims.FullName(),
		ExpiresAt: expiresAt,
	}))
}

// Logout clears the session cookies
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(middleware.CSRFCookieName, "", -1, "/", "", h.secureCookies, false)

	c.JSON(http.StatusOK, dto.Success(gin.H{"message": "Oturum kapatıldı"}))
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// ===========================================================================
// Route Registration
// ===========================================================================

// RegisterRoutes registers auth routes behind authMiddleware
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/session", authMiddleware, h.CreateSession)
		auth.POST("/logout", h.Logout)
	}
}
