package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/domlens/domlens/internal/logging"
)

// Event is one entry on the event feed: lane activity, tree rebuilds,
// tool executions.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Time    time.Time   `json:"time"`
}

// Hub fans events out to websocket subscribers. Slow subscribers drop
// events rather than stall the publisher.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*hubClient
	closed  bool
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*hubClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || isLocalOrigin(origin)
			},
		},
	}
}

func isLocalOrigin(origin string) bool {
	return strings.Contains(origin, "127.0.0.1") || strings.Contains(origin, "localhost")
}

// Broadcast sends an event to every connected subscriber.
func (h *Hub) Broadcast(evtType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: evtType, Payload: payload, Time: time.Now()})
	if err != nil {
		logging.Warnf("Hub", "drop %s event: %v", evtType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			// subscriber is behind, skip this event for it
		}
	}
}

// HandleEvents upgrades the request and streams events until the client
// disconnects.
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("Hub", "upgrade failed: %v", err)
		return
	}

	c := &hubClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 64),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mu.Unlock()
	logging.Infof("Hub", "subscriber connected: %s", c.id)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) writePump(c *hubClient) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; its job is noticing the close.
func (h *Hub) readPump(c *hubClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c.id)
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		close(c.send)
		c.conn.Close()
		logging.Infof("Hub", "subscriber disconnected: %s", id)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*hubClient)
	h.closed = true
	h.mu.Unlock()
	for _, c := range clients {
		close(c.send)
		c.conn.Close()
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
