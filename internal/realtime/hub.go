package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"uppypro/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ===========================================================================
// Websocket Hub
// Built-in realtime transport. Clients join the room of their tenant;
// a client whose send buffer is full is dropped instead of blocking publishers.
// ===========================================================================

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Hub tenant scoped websocket rooms
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Client]struct{}
	closed bool

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// Client one websocket connection
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	tenantID uuid.UUID
	userID   uuid.UUID
	send     chan []byte
	once     sync.Once
}

// NewHub creates a hub accepting upgrades from allowedOrigins ("*" allows any)
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		rooms:  make(map[uuid.UUID]map[*Client]struct{}),
		logger: logger.Named("hub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades the request and joins the tenant room
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, tenantID, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		tenantID: tenantID,
		userID:   userID,
		send:     make(chan []byte, sendBufferSize),
	}
	if !h.register(client) {
		_ = conn.Close()
		return fmt.Errorf("hub is closed")
	}

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	room, ok := h.rooms[c.tenantID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.tenantID] = room
	}
	room[c] = struct{}{}
	metrics.ClientConnected(1)

	h.logger.Debug("client joined",
		zap.String("tenant_id", c.tenantID.String()),
		zap.String("user_id", c.userID.String()),
	)
	return true
}

// unregister removes c and closes its send channel, safe to call twice
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	room, ok := h.rooms[c.tenantID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.tenantID)
	}
	c.once.Do(func() { close(c.send) })
	metrics.ClientConnected(-1)
}

// broadcast sends payload to the tenant room clients accepted by filter
func (h *Hub) broadcast(tenantID uuid.UUID, payload []byte, filter func(*Client) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[tenantID] {
		if filter != nil && !filter(c) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("dropping slow websocket client",
				zap.String("tenant_id", tenantID.String()),
				zap.String("user_id", c.userID.String()),
			)
			h.removeLocked(c)
		}
	}
}

func (h *Hub) publish(tenantID uuid.UUID, eventType string, data interface{}, filter func(*Client) bool) error {
	payload, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	h.broadcast(tenantID, payload, filter)
	return nil
}

// PublishMessage implements Publisher
func (h *Hub) PublishMessage(tenantID uuid.UUID, event *MessageEvent) error {
	return h.publish(tenantID, messageEventType(event), event, nil)
}

// PublishConversation implements Publisher
func (h *Hub) PublishConversation(tenantID uuid.UUID, event *ConversationEvent) error {
	return h.publish(tenantID, EventConversationUpdated, event, nil)
}

// PublishNotification implements Publisher, honoring the target user
func (h *Hub) PublishNotification(tenantID uuid.UUID, event *NotificationEvent) error {
	var filter func(*Client) bool
	if event.UserID != nil {
		target := *event.UserID
		filter = func(c *Client) bool { return c.userID == target }
	}
	return h.publish(tenantID, EventNotificationCreated, event, filter)
}

// ClientCount connected clients of a tenant
func (h *Hub) ClientCount(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tenantID])
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, room := range h.rooms {
		for c := range room {
			h.removeLocked(c)
		}
	}
}

// ===========================================================================
// Pumps
// ===========================================================================

// readPump only handles control frames, clients do not send data
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
