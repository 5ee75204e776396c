package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fleetgo/dispatch-api/internal/auth"
	"github.com/fleetgo/dispatch-api/pkg/logger"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from the app origin; token auth is the
		// actual gate here.
		return true
	},
}

// envelope is the wire shape of every pushed event
type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub manages realtime connections, keyed by the authenticated user ID from
// the connection token. Every push targets a user ID; pushes to users with
// no open connection are dropped silently.
type Hub struct {
	tokens *auth.TokenManager
	logger logger.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}

	register   chan *client
	unregister chan *client
	done       chan struct{}
}

// NewHub creates a new Hub
func NewHub(tokens *auth.TokenManager, logger logger.Logger) *Hub {
	return &Hub{
		tokens:     tokens,
		logger:     logger,
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		done:       make(chan struct{}),
	}
}

// Run processes connection lifecycle events until the context is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-h.done:
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*client]struct{})
			}
			h.clients[c.userID][c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("Realtime client connected", "userID", c.userID)
		case c := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[c.userID]; ok {
				if _, ok := conns[c]; ok {
					delete(conns, c)
					close(c.send)
					if len(conns) == 0 {
						delete(h.clients, c.userID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("Realtime client disconnected", "userID", c.userID)
		}
	}
}

// Stop shuts the hub down
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conns := range h.clients {
		for c := range conns {
			close(c.send)
		}
	}
	h.clients = make(map[string]map[*client]struct{})
}

// EmitToUser pushes an event to every open connection of a user. It never
// returns an error: realtime delivery is best effort and a missed push must
// not affect the request that triggered it.
func (h *Hub) EmitToUser(userID string, event string, payload interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("Failed to encode realtime event", "error", err, "event", event)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[userID]
	if !ok {
		return
	}

	for c := range conns {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("Realtime send buffer full, dropping event",
				"userID", userID, "event", event)
		}
	}
}

// IsUserConnected reports whether the user has at least one open connection
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[userID]) > 0
}

// ServeWS upgrades an HTTP request to a realtime connection. The client
// authenticates with its access token in the token query parameter; the
// connection is bound to the token's subject.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	identity, err := h.tokens.Parse(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade realtime connection", "error", err)
		return
	}

	c := &client{
		userID: identity.UserID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}

	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// readPump drains inbound frames so ping/pong and close handling work. The
// push channel is one-way; client messages are ignored.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
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

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
