package middleware

import (
	"crypto/subtle"
	"net/http"

	"uppypro/internal/dto"

	"github.com/gin-gonic/gin"
)

// InternalSecretHeader shared secret sent by n8n workflows
const InternalSecretHeader = "X-Internal-Secret"

// InternalAPIKey guards machine-to-machine routes with a shared secret
func InternalAPIKey(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(InternalSecretHeader)
		if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Error("UNAUTHORIZED", "Invalid internal secret"))
			return
		}
		c.Next()
	}
}
