package middleware

import (
	"errors"
	"net/http"
	"strings"

	"uppypro/internal/auth"
	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ===========================================================================
// Auth Middleware
// Verifies access tokens issued by the identity provider
// ===========================================================================

// Context keys for auth and tenant data
const (
	ContextKeyUserID     = "user_id"
	ContextKeyEmail      = "email"
	ContextKeyClaims     = "claims"
	ContextKeyTenantID   = "tenant_id"
	ContextKeyMemberRole = "member_role"
	ContextKeyMember     = "member"

	// contextKeyBearer set when the token came from the Authorization header
	contextKeyBearer = "auth_bearer"
)

// AccessTokenCookie cookie holding the access token for browser sessions
const AccessTokenCookie = "access_token"

// AuthMiddleware verifies the JWT from cookie, header or (websocket only) query string
func AuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, bearer := extractToken(c)

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Error("UNAUTHORIZED", "Authentication required"))
			return
		}

		claims, err := jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, apperrors.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Error("TOKEN_EXPIRED", "Token has expired"))
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Error("INVALID_TOKEN", "Invalid token"))
			}
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyClaims, claims)
		c.Set(contextKeyBearer, bearer)

		c.Next()
	}
}

func extractToken(c *gin.Context) (token string, bearer bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1]), true
		}
	}

	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, false
	}

	// Browsers cannot set headers on a websocket handshake
	if isWebSocketUpgrade(c.Request) {
		return c.Query("access_token"), false
	}

	return "", false
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// RequireRole aborts with 403 unless the tenant member role is one of roles.
// Must run after TenantContext.
func RequireRole(roles ...models.MemberRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetMemberRole(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("FORBIDDEN", "Access denied"))
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("FORBIDDEN", "Insufficient permissions"))
	}
}

// RequireOwner tenant owner or agency admin
func RequireOwner() gin.HandlerFunc {
	return RequireRole(models.RoleTenantOwner, models.RoleAgencyAdmin)
}

// RequireAgencyAdmin platform operators only
func RequireAgencyAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAgencyAdmin)
}

// ===========================================================================
// Context helpers
// ===========================================================================

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	id, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil, false
	}
	uid, ok := id.(uuid.UUID)
	return uid, ok
}

// GetClaims returns the verified token claims
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	cl, ok := claims.(*auth.Claims)
	return cl, ok
}

// GetTenantID returns the active tenant set by TenantContext
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	id, exists := c.Get(ContextKeyTenantID)
	if !exists {
		return uuid.Nil, false
	}
	tid, ok := id.(uuid.UUID)
	return tid, ok
}

// GetMemberRole returns the role of the user inside the active tenant
func GetMemberRole(c *gin.Context) (models.MemberRole, bool) {
	role, exists := c.Get(ContextKeyMemberRole)
	if !exists {
		return "", false
	}
	r, ok := role.(models.MemberRole)
	return r, ok
}

// GetMember returns the membership row resolved by TenantContext
func GetMember(c *gin.Context) (*models.TenantMember, bool) {
	m, exists := c.Get(ContextKeyMember)
	if !exists {
		return nil, false
	}
	member, ok := m.(*models.TenantMember)
	return member, ok
}

// isBearerRequest token came from the Authorization header
func isBearerRequest(c *gin.Context) bool {
	return c.GetBool(contextKeyBearer) || strings.HasPrefix(strings.ToLower(c.GetHeader("Authorization")), "bearer ")
}
