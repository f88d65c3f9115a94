package handlers

import (
	"net/http"
	"testing"

	"uppypro/internal/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionCookies(t *testing.T) {
	env := newTestEnv(t)
	NewAuthHandler(true, zap.NewNop()).RegisterRoutes(env.api, middleware.AuthMiddleware(env.jwt))
	NewWSHandler(nil, zap.NewNop()).RegisterRoutes(env.authed)

	w := env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/session"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := env.token(t, uuid.New(), "ayse@example.com")
	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/session", token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, middleware.AccessTokenCookie)
	assert.Equal(t, token, cookies[middleware.AccessTokenCookie].Value)
	assert.True(t, cookies[middleware.AccessTokenCookie].HttpOnly)
	assert.True(t, cookies[middleware.AccessTokenCookie].Secure)
	require.Contains(t, cookies, middleware.CSRFCookieName)
	assert.NotEmpty(t, cookies[middleware.CSRFCookieName].Value)

	w = env.do(t, request{method: http.MethodPost, path: "/api/v1/auth/logout"})
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value, c.Name)
	}

	w = env.do(t, request{method: http.MethodGet, path: "/api/v1/ws", token: token})
	assert.Equal(t, http.StatusNotFound, w.Code, "hub disabled")
}
