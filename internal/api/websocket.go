package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomasz-karas/parkgate-core/internal/auth"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/config"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/logging"
)

// wsSendBufferSize is the per-client outbound message buffer. A client that
// falls this far behind is dropped on the next broadcast.
const wsSendBufferSize = 256

// wsWriteTimeout bounds a single WebSocket write.
const wsWriteTimeout = 10 * time.Second

// wsMessage is the envelope every frame on the live feed uses.
type wsMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// WSClient represents a single connected dashboard.
type WSClient struct {
	conn     *websocket.Conn
	send     chan []byte
	username string
	role     auth.Role

	closeOnce sync.Once
}

func (c *WSClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// Hub fans gate events out to all connected WebSocket clients.
//
// There are no per-client subscriptions: every client receives every event.
// The dashboard is small enough that filtering happens client-side.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// NewHub creates a WebSocket hub. Run() must be started for lifecycle
// management.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 8192
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		"username", c.username,
		"role", c.role,
		"clients", count,
	)
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Info("websocket client disconnected", "username", c.username, "clients", count)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every connected client. Clients whose send
// buffer is full are collected during the pass and unregistered afterwards,
// so one slow client never blocks delivery to the rest.
func (h *Hub) Broadcast(eventType string, data any) {
	msg, err := json.Marshal(wsMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	snapshot := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	var failed []*WSClient
	for _, c := range snapshot {
		if !c.trySend(msg) {
			failed = append(failed, c)
		}
	}

	for _, c := range failed {
		h.logger.Warn("dropping slow websocket client", "username", c.username)
		h.Unregister(c)
	}
}

// trySend attempts a non-blocking send to the client's buffer.
// Returns false if the buffer is full or the channel is closed.
func (c *WSClient) trySend(msg []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeAll disconnects every client, used during shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the single-use ticket, not the Origin header.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection to the live event feed.
//
// The connection is authenticated with a single-use ticket issued by
// POST /api/v1/auth/ws-ticket and passed as a query parameter, because
// browsers cannot set an Authorization header on WebSocket upgrades.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.tickets.Redeem(r.URL.Query().Get("ticket"))
	if err != nil {
		writeUnauthorized(w, "valid ticket is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		username: ticket.Username,
		role:     ticket.Role,
	}

	s.hub.Register(client)

	go s.writePump(client)
	go s.readPump(client)
}

// readPump reads messages from the client until the connection drops.
func (s *Server) readPump(c *WSClient) {
	defer func() {
		s.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // already tearing down
	}()

	pongWait := time.Duration(s.wsCfg.PingInterval+s.wsCfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // deadline errors surface on the next read
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "username", c.username, "error", err)
			}
			return
		}
		s.handleClientMessage(c, raw)
	}
}

// writePump writes outbound messages and protocol pings to the client.
func (s *Server) writePump(c *WSClient) {
	ticker := time.NewTicker(time.Duration(s.wsCfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // already tearing down
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)) //nolint:errcheck // deadline errors surface on write
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")) //nolint:errcheck // best effort
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)) //nolint:errcheck // deadline errors surface on write
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage processes an inbound frame. The feed is almost entirely
// one-way; clients may send an application-level ping and get a pong back.
func (s *Server) handleClientMessage(c *WSClient, raw []byte) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendJSON(wsMessage{Type: "error", Data: "invalid message", Timestamp: time.Now().UTC().Format(time.RFC3339)})
		return
	}

	switch msg.Type {
	case "ping":
		c.sendJSON(wsMessage{Type: "pong", Timestamp: time.Now().UTC().Format(time.RFC3339)})
	default:
		c.sendJSON(wsMessage{Type: "error", Data: "unknown message type", Timestamp: time.Now().UTC().Format(time.RFC3339)})
	}
}

func (c *WSClient) sendJSON(msg wsMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(raw)
}
