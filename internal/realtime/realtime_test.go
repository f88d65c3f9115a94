package realtime

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"uppypro/internal/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialHub(t *testing.T, hub *Hub, tenantID, userID uuid.UUID) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, tenantID, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return hub.ClientCount(tenantID) > 0
	}, time.Second, 10*time.Millisecond)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestHubTenantIsolation(t *testing.T) {
	hub := NewHub([]string{"*"}, zap.NewNop())
	defer hub.Close()

	tenantA, tenantB := uuid.New(), uuid.New()
	connA := dialHub(t, hub, tenantA, uuid.New())
	connB := dialHub(t, hub, tenantB, uuid.New())

	msgID := uuid.New()
	require.NoError(t, hub.PublishMessage(tenantA, &MessageEvent{MessageID: msgID, Text: "merhaba"}))

	env := readEnvelope(t, connA)
	assert.Equal(t, EventMessageCreated, env["type"])
	data := env["data"].(map[string]interface{})
	assert.Equal(t, msgID.String(), data["message_id"])

	_ = connB.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := connB.ReadMessage()
	assert.Error(t, err, "tenant B must not receive tenant A events")
}

func TestHubNotificationTargetsUser(t *testing.T) {
	hub := NewHub([]string{"*"}, zap.NewNop())
	defer hub.Close()

	tenantID := uuid.New()
	owner, employee := uuid.New(), uuid.New()
	ownerConn := dialHub(t, hub, tenantID, owner)
	employeeConn := dialHub(t, hub, tenantID, employee)
	require.Eventually(t, func() bool { return hub.ClientCount(tenantID) == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.PublishNotification(tenantID, &NotificationEvent{
		NotificationID: uuid.New(),
		UserID:         &owner,
		Title:          "Ödeme alınamadı",
	}))

	env := readEnvelope(t, ownerConn)
	assert.Equal(t, EventNotificationCreated, env["type"])

	_ = employeeConn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, _, err := employeeConn.ReadMessage()
	assert.Error(t, err)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	tenantID := uuid.New()

	// never drained
	c := &Client{hub: hub, tenantID: tenantID, send: make(chan []byte, 1)}
	require.True(t, hub.register(c))

	require.NoError(t, hub.PublishConversation(tenantID, &ConversationEvent{ConversationID: uuid.New()}))
	assert.Equal(t, 1, hub.ClientCount(tenantID))

	require.NoError(t, hub.PublishConversation(tenantID, &ConversationEvent{ConversationID: uuid.New()}))
	assert.Equal(t, 0, hub.ClientCount(tenantID))

	// send channel closed exactly once
	hub.unregister(c)
	<-c.send
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubClosedRejectsClients(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	hub.Close()
	assert.False(t, hub.register(&Client{hub: hub, tenantID: uuid.New(), send: make(chan []byte, 1)}))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.uppypro.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://app.uppypro.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
}

func TestCentrifugoPublish(t *testing.T) {
	tenantID := uuid.New()

	var got map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewCentrifugoClient(srv.URL+"/", "secret", zap.NewNop())
	err := client.PublishConversation(tenantID, &ConversationEvent{ConversationID: uuid.New(), Status: "open"})
	require.NoError(t, err)

	assert.Equal(t, "apikey secret", auth)
	assert.Equal(t, "publish", got["method"])
	params := got["params"].(map[string]interface{})
	assert.Equal(t, "inbox:tenant_"+tenantID.String(), params["channel"])
	data := params["data"].(map[string]interface{})
	assert.Equal(t, EventConversationUpdated, data["type"])
}

func TestCentrifugoBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewCentrifugoClient(srv.URL, "wrong", zap.NewNop())
	err := client.PublishMessage(uuid.New(), &MessageEvent{Type: EventMessageStatus})
	assert.Error(t, err)
}

func TestNewSelectsDriver(t *testing.T) {
	pub, hub := New(config.RealtimeConfig{Driver: "hub"}, nil, zap.NewNop())
	assert.NotNil(t, hub)
	assert.Same(t, hub, pub)

	pub, hub = New(config.RealtimeConfig{Driver: "centrifugo", CentrifugoURL: "http://localhost:8000"}, nil, zap.NewNop())
	assert.Nil(t, hub)
	assert.IsType(t, &CentrifugoClient{}, pub)

	pub, hub = New(config.RealtimeConfig{Driver: "none"}, nil, zap.NewNop())
	assert.Nil(t, hub)
	assert.IsType(t, &NoopPublisher{}, pub)
}
