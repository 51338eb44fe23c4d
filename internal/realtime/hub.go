// Package realtime pushes notification and message events to connected
// browsers over websockets.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/geocoder89/cohorthub/internal/notifications"
	"github.com/geocoder89/cohorthub/internal/observability"
)

// Hub tracks open sockets per user. A user may have several tabs open.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	prom    *observability.Prom
}

func NewHub(prom *observability.Prom) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		prom:    prom,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	if h.prom != nil {
		h.prom.WSConnections.Inc()
	}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := set[c]; !present {
		h.mu.Unlock()
		return
	}

	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	c.closeSend()
	h.mu.Unlock()

	if h.prom != nil {
		h.prom.WSConnections.Dec()
	}
}

// SendToUser queues payload on every socket of userID and returns how many
// accepted it. A socket whose buffer is full is dropped.
func (h *Hub) SendToUser(userID string, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(payload) {
			sent++
			continue
		}
		slog.Default().Warn("ws_client_slow_dropped", "user_id", userID)
		h.Unregister(c)
	}
	return sent
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Notify delivers in-process, for single-instance setups without redis.
func (h *Hub) Notify(_ context.Context, userID string, ev notifications.Event) error {
	b, err := ev.Encode()
	if err != nil {
		return err
	}
	h.SendToUser(userID, b)
	return nil
}
