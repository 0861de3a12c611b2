// Package dashboard is the read-only stats/activity websocket surface for
// engram (§11, supplemented feature — not part of the memory core): a
// single broadcast hub pushes periodic Engine.GetStats snapshots to any
// connected viewer. There is no settings/maintenance/import/integration
// surface here, since none of those map to anything SPEC_FULL.md names.
package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Hub manages websocket connections and broadcasts messages to all of them.
type Hub struct {
	clients        map[clientInterface]bool
	broadcast      chan interface{}
	register       chan clientInterface
	unregister     chan clientInterface
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	allowedOrigins map[string]bool
}

type clientInterface interface {
	getSendChannel() chan []byte
	close()
}

// Client represents a single websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *Client) getSendChannel() chan []byte { return c.send }

func (c *Client) close() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}

// NewHub creates a Hub that only accepts upgrade requests whose Origin
// header (when present) is in allowedOrigins. An empty allowedOrigins
// accepts any origin, appropriate for a loopback-only dev tool.
func NewHub(allowedOrigins ...string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Hub{
		clients:        make(map[clientInterface]bool),
		broadcast:      make(chan interface{}, 256),
		register:       make(chan clientInterface),
		unregister:     make(chan clientInterface),
		ctx:            ctx,
		cancel:         cancel,
		allowedOrigins: origins,
	}
}

// Run processes register/unregister/broadcast events until Stop is called.
// Must be run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("dashboard: client connected (total: %d)", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.getSendChannel())
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("dashboard: client disconnected (total: %d)", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("dashboard: failed to marshal broadcast message: %v", err)
				h.mu.Unlock()
				continue
			}
			for client := range h.clients {
				sendChan := client.getSendChannel()
				select {
				case sendChan <- data:
				default:
					close(sendChan)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			log.Println("dashboard: hub stopping")
			return
		}
	}
}

// Stop shuts down the hub and closes every connected client.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		close(client.getSendChannel())
		client.close()
	}
	h.clients = make(map[clientInterface]bool)
	h.mu.Unlock()
}

// Broadcast sends message (JSON-encoded) to every connected client.
// Non-blocking: drops the message and logs a warning if the internal
// broadcast channel is saturated rather than stalling the caller.
func (h *Hub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("dashboard: broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub. Exposed for tests; production
// callers go through ServeHTTP.
func (h *Hub) Register(client clientInterface) { h.register <- client }

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client clientInterface) { h.unregister <- client }

// ServeHTTP upgrades the request to a websocket connection and registers the
// resulting client with the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && len(h.allowedOrigins) > 0 && !h.allowedOrigins[origin] {
		http.Error(w, "Forbidden: invalid origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade failed: %v", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.Register(client)

	go client.writePump()
	go client.readPump()
}

func (c *Client) writePump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
}

// readPump drains incoming frames purely to detect client disconnection;
// this surface is push-only, so anything the client sends is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

// MockClient is a test double implementing clientInterface.
type MockClient struct {
	SendChan chan []byte
}

func (m *MockClient) getSendChannel() chan []byte { return m.SendChan }
func (m *MockClient) close()                      {}
