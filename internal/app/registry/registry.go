package registry

import (
	"context"
	"lookout/internal/core/contracts"
	"sync"
)

// Registry holds the live websocket clients on this node, keyed by user.
// It is the delivery side of presence: the tracker decides whether a user
// should be notified, the registry is how the frame actually reaches them.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]contracts.Client // user_id → client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]contracts.Client),
	}
}

// Register adds a client, closing any previous connection for the same
// user. Last connection wins, matching the presence tracker's SetOnline.
func (h *Registry) Register(c contracts.Client) {
	h.mu.Lock()
	prev := h.clients[c.UserID()]
	h.clients[c.UserID()] = c
	h.mu.Unlock()
	if prev != nil && prev.ConnectionID() != c.ConnectionID() {
		prev.Close()
	}
}

// Unregister removes the client only if it is still the registered one, so
// a slow-closing old connection cannot evict its replacement.
func (h *Registry) Unregister(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.clients[c.UserID()]
	if !ok || cur.ConnectionID() != c.ConnectionID() {
		return
	}
	delete(h.clients, c.UserID())
}

// Push delivers a payload to a local client. Returns false when the user
// has no live connection here.
func (h *Registry) Push(ctx context.Context, userID string, data []byte) bool {
	h.mu.RLock()
	c := h.clients[userID]
	h.mu.RUnlock()
	if c == nil {
		return false
	}
	return c.Send(ctx, data) == nil
}
