package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey gin context key
	RequestIDKey = "request_id"

	// RequestIDHeader request and response header
	RequestIDHeader = "X-Request-ID"
)

// incoming ids are echoed into logs and headers, keep them boring
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID reuses a well formed X-Request-ID from the client or generates a UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !requestIDPattern.MatchString(requestID) {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID returns the request id or an empty string
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
