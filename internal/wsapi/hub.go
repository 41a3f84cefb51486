// Package wsapi streams controller notifications to connected WebSocket
// clients, grounded on the teacher's internal/server Hub (channel-driven
// register/unregister/broadcast event loop), narrowed here to a single
// broadcast topic — spec.md's status stream has no per-robot subscription
// model, so the client/robot subscription map from the teacher is dropped.
package wsapi

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// client is one connected WebSocket subscriber. Send is drained by
// writePump; the hub never writes to the connection directly.
type client struct {
	id   string
	send chan []byte
}

// Hub owns the client set and serializes register/unregister/broadcast
// through its Run loop, exactly as the teacher's Hub does.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	logger *zap.Logger
}

// NewHub returns a hub; call go hub.Run() once before serving connections.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

// Run is the hub's event loop; it must run in its own goroutine for the
// life of the process.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			h.logger.Debug("ws client connected", zap.String("client_id", c.id), zap.Int("total", len(h.clients)))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("ws client disconnected", zap.String("client_id", c.id), zap.Int("total", len(h.clients)))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("ws client send buffer full, dropping", zap.String("client_id", c.id))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast enqueues msg for delivery to every currently connected client.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast channel full, dropping notification")
	}
}

func newClient() *client {
	return &client{id: uuid.NewString(), send: make(chan []byte, 256)}
}
