package websocket

import (
	"context"
	"sync"

	"nyan-bot/internal/pkg/logger"

	"github.com/google/uuid"
)

type Hub struct {
	// Registered clients by connection id.
	clients map[uuid.UUID]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// closed when Run returns
	done chan struct{}

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]*Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run serves registrations until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info(logger.ModuleWebSocket, "Client registered", map[string]interface{}{
				"client_id": client.ID.String(),
				"user_id":   client.UserID,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				client.close()
			}
			h.mu.Unlock()
			h.logger.Info(logger.ModuleWebSocket, "Client unregistered", map[string]interface{}{
				"client_id": client.ID.String(),
				"user_id":   client.UserID,
			})

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.close()
	}
}
