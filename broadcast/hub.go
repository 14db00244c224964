package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"wingo/observability"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	maxMessageSize = 512

	// DefaultSendBuffer is how many messages a slow connection may fall behind by
	// before new messages to it are dropped
	DefaultSendBuffer = 256
)

// Message is the envelope written to every websocket connection
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Config controls the websocket hub
type Config struct {
	AllowedOrigins []string // empty allows any origin
	SendBuffer     int
}

// Hub tracks connected observers and delivers realtime messages to them. Delivery
// never blocks: a connection whose buffer is full misses the message.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*client]struct{}
	byAccount map[int64]map[*client]struct{}
	upgrader  websocket.Upgrader
	buffer    int
	personal  personalOrder
}

// NewHub creates an empty hub
func NewHub(cfg Config) *Hub {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}

	h := &Hub{
		clients:   make(map[*client]struct{}),
		byAccount: make(map[int64]map[*client]struct{}),
		buffer:    buffer,
		personal:  personalOrder{last: make(map[int64]int64)},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

// Serve upgrades the request and registers the connection for accountID. It returns
// once the connection is registered; pumps run on their own goroutines.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, accountID int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	c := &client{
		hub:       h,
		conn:      conn,
		accountID: accountID,
		send:      make(chan []byte, h.buffer),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.byAccount[c.accountID] == nil {
		h.byAccount[c.accountID] = make(map[*client]struct{})
	}
	h.byAccount[c.accountID][c] = struct{}{}
	h.mu.Unlock()

	observability.GetMetrics().UpdateConnections(1)
	log.WithField("accountID", c.accountID).Debug("Websocket connected")
}

// unregister removes c and closes its send channel. Safe to call more than once.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	lastConnection := false
	if conns := h.byAccount[c.accountID]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.byAccount, c.accountID)
			lastConnection = true
		}
	}
	close(c.send)
	h.mu.Unlock()

	if lastConnection {
		h.personal.forget(c.accountID)
	}

	observability.GetMetrics().UpdateConnections(-1)
	log.WithField("accountID", c.accountID).Debug("Websocket disconnected")
}

// Broadcast delivers an event to every connection
func (h *Hub) Broadcast(event string, payload any) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.deliver(c, event, data)
	}
}

// SendToAccount delivers an event to every connection of one account
func (h *Hub) SendToAccount(accountID int64, event string, payload any) {
	data, ok := encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byAccount[accountID] {
		h.deliver(c, event, data)
	}
}

// deliver must be called with the read lock held so send cannot be closed underneath it
func (h *Hub) deliver(c *client, event string, data []byte) {
	select {
	case c.send <- data:
	default:
		observability.GetMetrics().RecordBroadcastDropped(event)
		log.WithFields(log.Fields{
			"accountID": c.accountID,
			"event":     event,
		}).Debug("Dropped message for slow websocket")
	}
}

// ConnectionCount returns the number of open connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every connection
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func encode(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(Message{Type: event, Payload: payload})
	if err != nil {
		log.WithError(err).WithField("event", event).Error("Failed to encode realtime message")
		return nil, false
	}
	return data, true
}

// client is one websocket connection
type client struct {
	hub       *Hub
	conn      *websocket.Conn
	accountID int64
	send      chan []byte
}

// readPump only services control frames; clients never send commands over the socket
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("accountID", c.accountID).Debug("Websocket read failed")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
