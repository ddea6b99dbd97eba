package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/connectfour-backend/internal/usecase"
)

// Hub routes coordinator events to live connections.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[string]*client),
	}
}

func (that *Hub) register(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clients[c.id] = c
}

func (that *Hub) unregister(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.clients[c.id]; ok && current == c {
		delete(that.clients, c.id)
	}
}

func (that *Hub) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.clients)
}

// Send queues event for the connection without blocking. A connection whose
// buffer is full is dropped; its reader then runs the disconnect path.
func (that *Hub) Send(connectionID string, event usecase.Event) {
	that.mu.RLock()
	c, ok := that.clients[connectionID]
	that.mu.RUnlock()

	if !ok {
		that.sendLogger(connectionID, event).Debug("connection is gone, event dropped")
		return
	}

	data, err := encode(event.Action(), event)
	if err != nil {
		that.sendLogger(connectionID, event).Error("failed to encode event", "error", err)
		return
	}

	if !c.enqueue(data) {
		that.sendLogger(connectionID, event).Warn("send buffer is full, dropping slow connection")
		c.close()
	}
}

func (that *Hub) sendLogger(connectionID string, event usecase.Event) *slog.Logger {
	return that.logger.With("method", "Send", "connectionID", connectionID, "action", event.Action())
}

func encode(action string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Action: action, Payload: body})
}

// closeAll drops every connection; used on shutdown.
func (that *Hub) closeAll() {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, c := range that.clients {
		c.close()
	}
}
