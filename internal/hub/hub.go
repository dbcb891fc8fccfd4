// Package hub fans frames received from the bus out to connected clients
// without letting a slow client stall the others.
package hub

import (
	"sync"

	"github.com/canlink/go-can-gateway/internal/can"
	"github.com/canlink/go-can-gateway/internal/logging"
	"github.com/canlink/go-can-gateway/internal/metrics"
)

// BackpressurePolicy decides what happens when a client's buffer is full.
type BackpressurePolicy int

const (
	// PolicyDrop silently drops the frame for that client.
	PolicyDrop BackpressurePolicy = iota
	// PolicyKick disconnects the client.
	PolicyKick
)

// Client is one frame consumer. The owner reads Out and watches Closed.
type Client struct {
	Out       chan can.AnyFrame
	Closed    chan struct{}
	closeOnce sync.Once
}

// Close signals the client is closed (idempotent).
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Closed) })
}

// Hub broadcasts frames to a changing set of clients.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	OutBufSize int
	Policy     BackpressurePolicy
}

// New creates a Hub with default settings.
func New() *Hub { return &Hub{clients: make(map[*Client]struct{})} }

// NewClient allocates a client sized to the hub's buffer setting.
func (h *Hub) NewClient() *Client {
	size := h.OutBufSize
	if size <= 0 {
		size = 64
	}
	return &Client{Out: make(chan can.AnyFrame, size), Closed: make(chan struct{})}
}

// Add registers a client with the hub.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	cur := len(h.clients)
	h.mu.Unlock()
	metrics.SetHubClients(cur)
	if cur == 1 {
		logging.L().Info("clients_first_connected")
	}
}

// Remove unregisters a client; safe to call multiple times.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	cur := len(h.clients)
	h.mu.Unlock()
	c.Close()
	metrics.SetHubClients(cur)
	if existed && cur == 0 {
		logging.L().Info("clients_last_disconnected")
	}
}

// Broadcast sends a frame to all clients honoring the backpressure policy.
// It never blocks on a full client buffer.
func (h *Hub) Broadcast(fr can.AnyFrame) {
	for _, c := range h.Snapshot() {
		select {
		case c.Out <- fr:
		default:
			if h.Policy == PolicyKick {
				metrics.IncHubKick()
				c.Close() // writer notices and disconnects; Remove follows
			} else {
				metrics.IncHubDrop()
			}
		}
	}
}

// Snapshot returns a slice copy of current clients (read-only use).
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	return clients
}

// Count returns the number of active clients.
func (h *Hub) Count() int { h.mu.RLock(); n := len(h.clients); h.mu.RUnlock(); return n }
