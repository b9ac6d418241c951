package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"construction-pos/internal/events"
	"construction-pos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

// TokenParser verifies the token a UI view connects with.
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

// Client represents a single connected WebSocket client
type Client struct {
	ID       string
	Username string
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
}

// Hub relays stock and sale events to every connected UI view
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	upgrader   websocket.Upgrader
	log        *logrus.Logger
}

// NewHub initializes a new WS Hub instance. Browsers may only connect from
// allowedOrigins, the same list the CORS middleware uses; "*" admits any.
func NewHub(log *logrus.Logger, allowedOrigins []string) *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

// originChecker admits requests without an Origin header, which only
// non-browser clients send, and browsers on a listed origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Relay forwards every bus event to the hub. Publishing never blocks on slow
// views: when the broadcast queue is full the event is dropped and logged.
func (h *Hub) Relay(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe(func(e events.Event) {
		payload, err := json.Marshal(e)
		if err != nil {
			h.log.WithFields(logrus.Fields{"module": "websocket", "event": e.Type, "error": err.Error()}).Error("failed to encode event")
			return
		}
		select {
		case h.Broadcast <- payload:
		default:
			h.log.WithFields(logrus.Fields{"module": "websocket", "event": e.Type}).Warn("broadcast queue full, event dropped")
		}
	})
}

// ClientCount reports the number of connected views.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run starts the core dispatch loop for WebSocket events. It returns when ctx
// is cancelled, closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.WithFields(logrus.Fields{"module": "websocket", "client_id": client.ID, "username": client.Username}).Info("client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.WithFields(logrus.Fields{"module": "websocket", "client_id": client.ID}).Info("client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON event per frame.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive; views only listen.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithFields(logrus.Fields{"module": "websocket", "client_id": c.ID, "error": err.Error()}).Warn("unexpected close")
			}
			return
		}
	}
}

// ServeWs authenticates via the token query parameter and upgrades the connection
func ServeWs(hub *Hub, c *gin.Context, parser TokenParser) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.log.WithField("module", "websocket").Warn("connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := parser.ParseToken(tokenString)
	if err != nil {
		hub.log.WithFields(logrus.Fields{"module": "websocket", "error": err.Error()}).Warn("connection rejected: invalid token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.WithFields(logrus.Fields{
			"module": "websocket",
			"origin": c.Request.Header.Get("Origin"),
			"error":  err.Error(),
		}).Warn("upgrade failed")
		return
	}
	client := &Client{
		ID:       uuid.NewString(),
		Username: claims.Username,
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
