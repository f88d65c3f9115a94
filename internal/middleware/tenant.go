package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Tenant Context Middleware
// Resolves which tenant the request acts on and the caller's role in it
// ===========================================================================

// TenantHeader selects the active tenant when the user belongs to several
const TenantHeader = "X-Tenant-ID"

// MembershipResolver looks up the membership of userID in tenantID.
// A nil tenantID means "the user's only membership".
type MembershipResolver interface {
	ResolveMembership(ctx context.Context, userID uuid.UUID, tenantID *uuid.UUID) (*models.TenantMember, error)
}

// TenantContext sets tenant_id, member and member_role. Must run after AuthMiddleware.
func TenantContext(resolver MembershipResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Error("UNAUTHORIZED", "Authentication required"))
			return
		}

		var tenantID *uuid.UUID
		raw := strings.TrimSpace(c.GetHeader(TenantHeader))
		if raw == "" && isWebSocketUpgrade(c.Request) {
			// browsers cannot set headers on the websocket handshake
			raw = c.Query("tenant_id")
		}
		if raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.Error("INVALID_TENANT", "Invalid tenant id"))
				return
			}
			tenantID = &id
		}

		member, err := resolver.ResolveMembership(c.Request.Context(), userID, tenantID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrForbidden):
				c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("FORBIDDEN", "Not a member of this tenant"))
			case errors.Is(err, apperrors.ErrInvalidInput):
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.Error("TENANT_REQUIRED", "Select a tenant with the X-Tenant-ID header"))
			default:
				logger.Error("resolve membership failed", zap.String("user_id", userID.String()), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.Error("INTERNAL_ERROR", "An internal error occurred"))
			}
			return
		}

		c.Set(ContextKeyTenantID, member.TenantID)
		c.Set(ContextKeyMember, member)
		c.Set(ContextKeyMemberRole, member.Role)

		c.Next()
	}
}
