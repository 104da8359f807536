package dashboard

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"speckit-flow/internal/logging"
)

// Event is a server-pushed notification of orchestration progress. ID
// lets a client dedupe deliveries across a reconnect.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client is one connected dashboard WebSocket subscriber. Unlike the
// teacher's per-session Client, every client subscribes to the same
// single event stream — there is one orchestration run per repo, not
// one per connection.
type Client struct {
	conn *websocket.Conn
	send chan Event
	hub  *Hub
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{conn: conn, send: make(chan Event, 256), hub: hub}
}

// ReadLoop drains (and discards) client messages, existing only to
// detect disconnects. The dashboard is read-only; it never accepts
// client-initiated commands.
func (c *Client) ReadLoop(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

// WriteLoop pushes queued events to the client as JSON text frames.
func (c *Client) WriteLoop(ctx context.Context, logger logging.Logger) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	for event := range c.send {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Warn("marshal dashboard event failed", "error", err)
			continue
		}
		if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
			logger.Debug("dashboard client write failed, dropping", "error", err)
			return
		}
	}
}

// Hub fans Events out to every connected dashboard client. Grounded
// on the teacher's Hub: register/unregister/broadcast channels
// drained by one goroutine, same full-channel-drops-the-client
// behavior — but single-topic instead of per-session.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	clients    map[*Client]bool
	logger     logging.Logger
}

// NewHub creates a Hub. Call Run in its own goroutine to start it.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		clients:    make(map[*Client]bool),
		logger:     logger.Named("dashboard.hub"),
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("dashboard client connected", "total", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("dashboard client disconnected", "total", len(h.clients))
			}

		case event := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- event:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast queues event for delivery to every connected client.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
	}
}
