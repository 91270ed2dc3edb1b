package notifications

import (
	"context"
	"sync"

	"orbit/internal/middleware"
	"orbit/internal/observability"
)

const (
	defaultMaxConnsPerUser = 5
	defaultMaxTotalConns   = 10000
)

// Hub maps userID -> set of clients and fans Redis notification events out
// to every socket a user has open.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	total   int

	maxConnsPerUser int
	maxTotalConns   int
}

func NewHub() *Hub {
	return &Hub{
		clients:         make(map[uint]map[*Client]struct{}),
		maxConnsPerUser: defaultMaxConnsPerUser,
		maxTotalConns:   defaultMaxTotalConns,
	}
}

// Register adds a client. Returns false when the per-user or global
// connection limit would be exceeded; the caller should close the socket.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.total >= h.maxTotalConns {
		observability.RecordWebSocketEvent("register_rejected_total_limit")
		return false
	}

	m, ok := h.clients[client.UserID]
	if !ok {
		m = make(map[*Client]struct{})
		h.clients[client.UserID] = m
	}
	if len(m) >= h.maxConnsPerUser {
		observability.RecordWebSocketEvent("register_rejected_user_limit")
		return false
	}

	m[client] = struct{}{}
	h.total++
	observability.WebSocketConnectionsTotal.Inc()
	observability.RecordWebSocketEvent("register")
	return true
}

// Unregister removes a client. Idempotent.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, present := m[client]; !present {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.clients, client.UserID)
	}
	h.total--
	observability.WebSocketConnectionsTotal.Dec()
	observability.RecordWebSocketEvent("unregister")
}

// Broadcast sends a message to every client registered for userID.
// Slow clients drop the message instead of blocking.
func (h *Hub) Broadcast(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		client.TrySend("user", message)
	}
}

// ConnectionCount returns the number of sockets open for userID.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// StartWiring subscribes the hub to the notifier's user channels so
// publishes from any node reach sockets held by this node.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartUserSubscriber(ctx, func(channel, payload string) {
		userID, ok := ParseUserChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid notification channel", "channel", channel)
			return
		}
		h.Broadcast(userID, []byte(payload))
	})
}

// Shutdown closes every registered client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range h.clients {
		for client := range m {
			client.Close()
		}
	}
	h.clients = make(map[uint]map[*Client]struct{})
	h.total = 0
}
