package middleware

import (
	"context"
	"net/http"
	"time"

	"uppypro/internal/dto"
	"uppypro/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GraceUntilHeader tells the dashboard how long a lapsed tenant keeps access
const GraceUntilHeader = "X-Subscription-Grace-Until"

// AccessChecker evaluates whether a tenant may use paid features right now
type AccessChecker interface {
	CheckAccess(ctx context.Context, tenantID uuid.UUID) (models.AccessState, error)
}

// RequireActiveSubscription answers 402 for tenants without access. Must run after TenantContext.
func RequireActiveSubscription(checker AccessChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := GetMemberRole(c); role == models.RoleAgencyAdmin {
			c.Next()
			return
		}

		tenantID, ok := GetTenantID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("FORBIDDEN", "Access denied"))
			return
		}

		state, err := checker.CheckAccess(c.Request.Context(), tenantID)
		if err != nil {
			logger.Error("subscription access check failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.Error("INTERNAL_ERROR", "An internal error occurred"))
			return
		}

		if !state.Allowed {
			resp := dto.Error("PAYMENT_REQUIRED", "An active subscription is required")
			resp.Data = state
			c.AbortWithStatusJSON(http.StatusPaymentRequired, resp)
			return
		}

		if state.InGrace && state.GraceUntil != nil {
			c.Header(GraceUntilHeader, state.GraceUntil.UTC().Format(time.RFC3339))
		}

		c.Next()
	}
}
