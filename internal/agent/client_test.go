package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "uppypro/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestForward(t *testing.T) {
	convID := uuid.New()

	tests := []struct {
		name      string
		status    int
		body      string
		wantReply string
		wantErr   error
		handoff   bool
	}{
		{name: "sync reply", status: 200, body: `{"reply":"Yarın 14:00 uygun."}`, wantReply: "Yarın 14:00 uygun."},
		{name: "array wrapped", status: 200, body: `[{"reply":"Merhaba"}]`, wantReply: "Merhaba"},
		{name: "async accepted", status: 202, body: ``},
		{name: "plain text body", status: 200, body: `Workflow was started`},
		{name: "handoff", status: 200, body: `{"handoff":true,"handoff_reason":"şikayet"}`, handoff: true},
		{name: "server error", status: 500, body: `boom`, wantErr: apperrors.ErrExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req Request
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, convID, req.ConversationID)
				assert.Equal(t, "message.received", req.Event)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(time.Second, zap.NewNop())
			reply, err := client.Forward(context.Background(), srv.URL, &Request{Event: "message.received", ConversationID: convID, Text: "selam"})

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReply, reply.Reply)
			assert.Equal(t, tt.wantReply != "", reply.HasReply())
			assert.Equal(t, tt.handoff, reply.Handoff)
		})
	}
}

func TestForwardTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(50*time.Millisecond, zap.NewNop())
	_, err := client.Forward(context.Background(), srv.URL, &Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrExternal))
}
