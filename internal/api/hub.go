/*
Package api
File: hub.go
Description:
    The WebSocket Hub pushes game updates to every open browser tab.

    It maintains a registry of all active clients and a buffered broadcast
    channel. After every action the Server publishes the new state and the
    drained notifications here; the Hub writes them to each socket.

    Architecture:
    - Hub: One per server, run in its own goroutine.
    - Client: Represents one browser connection.
    - ServeWs: Upgrades a GET request to a WebSocket and registers it.
*/

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Message is the JSON envelope for everything sent over the socket.
type Message struct {
	Type    string `json:"type"`    // Currently always "update"
	Payload any    `json:"payload"` // ActionResponse for updates
	Sender  string `json:"sender"`  // Origin, usually "engine"
}

// Client represents a single connected browser tab.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // Buffered outbound messages
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // Closed when Run returns

	count  atomic.Int64
	logger *slog.Logger
}

// NewHub creates a Hub. Call Run in a goroutine before serving sockets.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run is the event loop of the Hub. It returns when ctx is cancelled,
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			h.logger.Debug("ws: client registered", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full: the client hung or went away.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Publish queues a message for every client. It never blocks; when the
// broadcast buffer is full the message is dropped.
func (h *Hub) Publish(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("ws: marshal message", "type", msg.Type, "err", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.logger.Warn("ws: broadcast buffer full, dropping message", "type", msg.Type)
	}
}

// upgrader allows connections from any host, like the CORS middleware.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request to a WebSocket and registers the client.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", "err", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound messages and unregisters the client when the
// connection closes.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("ws: read error", "err", err)
			}
			return
		}
	}
}

// writePump sends queued messages until the send channel is closed.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
