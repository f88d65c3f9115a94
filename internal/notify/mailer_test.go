package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"uppypro/internal/config"
	apperrors "uppypro/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResendMailerSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))

		var req resendRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "UppyPro <noreply@uppypro.com>", req.From)
		assert.Equal(t, []string{"zeynep@example.com"}, req.To)
		assert.Contains(t, req.HTML, "https://app.example/invite?token=abc")

		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	mailer := NewResendMailer(config.ResendConfig{APIKey: "re_test", From: "UppyPro <noreply@uppypro.com>", BaseURL: srv.URL}, zap.NewNop())
	id, err := mailer.Send(context.Background(), InviteEmail("zeynep@example.com", "Salon Ayşe", "https://app.example/invite?token=abc"))
	require.NoError(t, err)
	assert.Equal(t, "email_123", id)
}

func TestResendMailerRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"Invalid from"}`))
	}))
	defer srv.Close()

	mailer := NewResendMailer(config.ResendConfig{APIKey: "re_test", BaseURL: srv.URL}, zap.NewNop())
	_, err := mailer.Send(context.Background(), Email{To: []string{"a@b.c"}, Subject: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExternal))

	_, err = mailer.Send(context.Background(), Email{Subject: "no recipients"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestNewMailerFallsBackToLog(t *testing.T) {
	mailer := NewMailer(config.ResendConfig{}, zap.NewNop())
	_, ok := mailer.(*LogMailer)
	assert.True(t, ok)

	id, err := mailer.Send(context.Background(), Email{To: []string{"a@b.c"}, Subject: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestTemplatesEscapeInput(t *testing.T) {
	email := InviteEmail("a@b.c", "<script>alert(1)</script>", "https://app.example/x")
	assert.NotContains(t, email.HTML, "<script>alert(1)</script>")
	assert.Contains(t, email.Subject, "<script>")
}
