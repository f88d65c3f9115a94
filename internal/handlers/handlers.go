package handlers

import (
	"net/http"
	"regexp"
	"strconv"
	"sync"

	"uppypro/internal/dto"
	apperrors "uppypro/internal/errors"
	"uppypro/internal/middleware"
	"uppypro/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===========================================================================
// Shared handler helpers
// ===========================================================================

var (
	slugRe  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	clockRe = regexp.MustCompile(`^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`)

	registerOnce sync.Once
)

// RegisterValidators adds the custom binding tags (slug, hhmm) to gin's validator
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return clockRe.MatchString(fl.Field().String())
		})
	})
}

// respondError maps service errors to the response envelope. Unknown errors
// are logged and hidden behind a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if apperrors.Is(err, apperrors.ErrExternal) {
			c.JSON(http.StatusBadGateway, dto.Error("EXTERNAL_ERROR", userMessage(err, "Harici servis şu anda yanıt vermiyor. Lütfen tekrar deneyin.")))
			return
		}
		c.JSON(status, dto.Error(apperrors.ErrorCode(err), "Beklenmeyen bir hata oluştu. Lütfen tekrar deneyin."))
		return
	}
	c.JSON(status, dto.Error(apperrors.ErrorCode(err), err.Error()))
}

// userMessage returns the AppError message when there is one
func userMessage(err error, fallback string) string {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// badRequest answers 400 INVALID_REQUEST
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.Error("INVALID_REQUEST", message))
}

// paramUUID parses a path parameter, answering 400 when it is not a uuid
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "geçersiz kimlik: "+name)
		return uuid.Nil, false
	}
	return id, true
}

// bindPage reads page/limit query parameters
func bindPage(c *gin.Context) (dto.PaginationRequest, bool) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, "geçersiz sayfalama parametresi")
		return page, false
	}
	page.SetDefaults()
	return page, true
}

// actor builds the service Actor from verified claims
func actor(c *gin.Context) (services.Actor, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.Error("UNAUTHORIZED", "Authentication required"))
		return services.Actor{}, false
	}
	return services.Actor{
		UserID:   claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName(),
	}, true
}

// scope returns the tenant and user ids set by the auth and tenant middleware
func scope(c *gin.Context) (tenantID, userID uuid.UUID, ok bool) {
	tenantID, tok := middleware.GetTenantID(c)
	userID, uok := middleware.GetUserID(c)
	if !tok || !uok {
		c.JSON(http.StatusForbidden, dto.Error("FORBIDDEN", "Access denied"))
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, userID, true
}

// queryBool parses an optional boolean query parameter
func queryBool(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
