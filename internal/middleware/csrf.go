package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"uppypro/internal/dto"

	"github.com/gin-gonic/gin"
)

// ===========================================================================
// CSRF Middleware
// Double submit cookie for cookie-authenticated browser sessions.
// The token lives in a readable cookie and must be echoed in a header.
// ===========================================================================

const (
	CSRFCookieName  = "csrf_token"
	CSRFHeaderName  = "X-CSRF-Token"
	CSRFTokenLength = 32
)

// GenerateCSRFToken creates a random CSRF token
func GenerateCSRFToken() (string, error) {
	bytes := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// SetCSRFCookie sets the token cookie, readable by the dashboard JS
func SetCSRFCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		CSRFCookieName,
		token,
		86400*7,
		"/",
		"",
		secure,
		false,
	)
}

// CSRFMiddlewareWithExempt validates the token on state changing requests.
// Paths starting with one of exemptPaths and Bearer-authenticated requests are skipped.
func CSRFMiddlewareWithExempt(exemptPaths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		path := c.Request.URL.Path
		for _, exempt := range exemptPaths {
			if strings.HasPrefix(path, exempt) {
				c.Next()
				return
			}
		}

		// no ambient credentials, nothing to forge
		if isBearerRequest(c) {
			c.Next()
			return
		}

		cookieToken, err := c.Cookie(CSRFCookieName)
		if err != nil || cookieToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("CSRF_MISSING", "CSRF token required"))
			return
		}

		headerToken := c.GetHeader(CSRFHeaderName)
		if headerToken == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("CSRF_MISSING", "CSRF token header required"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.Error("CSRF_INVALID", "CSRF token mismatch"))
			return
		}

		c.Next()
	}
}
