package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/auth"
	"github.com/example/mediatranslate/internal/presenter"
	"github.com/example/mediatranslate/internal/session"
	"github.com/example/mediatranslate/internal/workspace"
)

// Server message types
const (
	MessageConnected = "connected"
	MessageSession   = "session"
	MessageResult    = "result"
	MessageHistory   = "history"
	MessageError     = "error"
	MessagePong      = "pong"
	MessageShutdown  = "shutdown"
)

const (
	sendBufferSize   = 256
	maxMessageSize   = 32 * 1024
	pongWait         = 60 * time.Second
	pingPeriod       = 30 * time.Second
	writeWait        = 10 * time.Second
	messageRateLimit = 60
)

// ClientMessage represents a message from a client
type ClientMessage struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ServerMessage represents a message to a client
type ServerMessage struct {
	Type      string      `json:"type"`
	Content   interface{} `json:"content,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func newMessage(kind string, content interface{}) ServerMessage {
	return ServerMessage{Type: kind, Content: content, Timestamp: time.Now().UnixMilli()}
}

// Client is one websocket connection. owner is the workspace client id,
// several connections (tabs) may share it.
type Client struct {
	conn    *websocket.Conn
	send    chan ServerMessage
	id      string
	owner   string
	hub     *WebSocketHub
	initial func() []ServerMessage

	messageCount  int
	lastRateReset time.Time
}

// WebSocketHub manages all connected clients
type WebSocketHub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client

	stats struct {
		totalConnections  int
		activeConnections int
		messagesSent      int
		messagesDropped   int
	}

	mu sync.RWMutex

	shutdown     chan struct{}
	shutdownOnce sync.Once

	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewWebSocketHub creates a hub accepting the given origins. An empty list or "*" accepts any origin.
func NewWebSocketHub(allowedOrigins []string, log *zap.SugaredLogger) *WebSocketHub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &WebSocketHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			log.Warnw("rejected websocket origin", "origin", origin)
			return false
		},
	}
	return h
}

// Run starts the hub loop in a goroutine
func (h *WebSocketHub) Run() {
	go func() {
		for {
			select {
			case <-h.shutdown:
				h.mu.Lock()
				for id, c := range h.clients {
					select {
					case c.send <- newMessage(MessageShutdown, map[string]string{"message": "Server shutting down"}):
					default:
					}
					delete(h.clients, id)
					close(c.send)
				}
				h.stats.activeConnections = 0
				h.mu.Unlock()
				return

			case c := <-h.register:
				// queued before the client becomes visible so later updates follow the snapshot
				h.mu.Lock()
				c.send <- newMessage(MessageConnected, map[string]interface{}{
					"clientId":       c.id,
					"serverTime":     time.Now().UnixMilli(),
					"maxMessageSize": maxMessageSize,
				})
				if c.initial != nil {
					for _, m := range c.initial() {
						c.send <- m
					}
					c.initial = nil
				}
				h.clients[c.id] = c
				h.stats.totalConnections++
				h.stats.activeConnections++
				h.mu.Unlock()

			case c := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[c.id]; ok {
					delete(h.clients, c.id)
					h.stats.activeConnections--
					close(c.send)
				}
				h.mu.Unlock()
			}
		}
	}()
}

// SendTo delivers a message to every connection of owner. It never blocks;
// a connection whose buffer is full is dropped.
func (h *WebSocketHub) SendTo(owner, kind string, content interface{}) {
	h.deliver(newMessage(kind, content), func(c *Client) bool { return c.owner == owner })
}

// Broadcast delivers a message to every connection
func (h *WebSocketHub) Broadcast(kind string, content interface{}) {
	h.deliver(newMessage(kind, content), func(*Client) bool { return true })
}

func (h *WebSocketHub) deliver(msg ServerMessage, match func(*Client) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- msg:
			h.stats.messagesSent++
		default:
			h.stats.messagesDropped++
			h.log.Warnw("dropping slow websocket client", "client", c.id)
			c.conn.Close()
		}
	}
}

// WorkspaceListener forwards the changes of one workspace to its connections
func (h *WebSocketHub) WorkspaceListener(owner string) workspace.Listener {
	return workspace.Listener{
		OnState: func(st session.State) { h.SendTo(owner, MessageSession, st) },
		OnView:  func(v presenter.View) { h.SendTo(owner, MessageResult, v) },
	}
}

// Shutdown closes every connection and stops the hub
func (h *WebSocketHub) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}

// GetStats returns connection statistics
func (h *WebSocketHub) GetStats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"totalConnections":  h.stats.totalConnections,
		"activeConnections": h.stats.activeConnections,
		"messagesSent":      h.stats.messagesSent,
		"messagesDropped":   h.stats.messagesDropped,
	}
}

func (h *WebSocketHub) isShutdown() bool {
	select {
	case <-h.shutdown:
		return true
	default:
		return false
	}
}

// ServeWs upgrades the request and registers the connection for the
// client id found in the request context. The messages returned by initial
// are sent right after the welcome message.
func (h *WebSocketHub) ServeWs(w http.ResponseWriter, r *http.Request, initial func() []ServerMessage) {
	if h.isShutdown() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	owner, ok := auth.ClientFromContext(r.Context())
	if !ok {
		http.Error(w, "Missing client id", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		conn:          conn,
		send:          make(chan ServerMessage, sendBufferSize),
		id:            uuid.NewString(),
		owner:         owner,
		hub:           h,
		initial:       initial,
		lastRateReset: time.Now(),
	}

	select {
	case h.register <- c:
	case <-h.shutdown:
		conn.Close()
		return
	}
	h.log.Infow("websocket connected", "client", c.id, "owner", owner)

	go c.writePump()
	go c.readPump()
}

// readPump reads client messages until the connection fails
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				c.hub.log.Warnw("websocket read failed", "client", c.id, "error", err)
			}
			return
		}

		if time.Since(c.lastRateReset) > time.Minute {
			c.messageCount = 0
			c.lastRateReset = time.Now()
		}
		c.messageCount++
		if c.messageCount > messageRateLimit {
			c.reply(newMessage(MessageError, map[string]string{"error": "Rate limit exceeded"}))
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(newMessage(MessageError, map[string]string{"error": "Invalid message format"}))
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply(newMessage(MessagePong, nil))
		default:
			c.reply(newMessage(MessageError, map[string]string{"error": "Unknown message type: " + msg.Type}))
		}
	}
}

// reply queues a message for this connection only
func (c *Client) reply(msg ServerMessage) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// writePump pumps messages from the hub to the websocket
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
