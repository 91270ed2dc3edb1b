package notifications

import (
	"context"
	"sync"

	"orbit/internal/middleware"
	"orbit/internal/observability"
)

// ChatHub maps connectionID -> clients. Unlike Hub (user-centric), ChatHub
// groups sockets by the connection whose chat they are viewing, so one
// message broadcast reaches both participants.
type ChatHub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Client]struct{}
}

func NewChatHub() *ChatHub {
	return &ChatHub{rooms: make(map[uint]map[*Client]struct{})}
}

// Register adds a client to a connection's room.
func (h *ChatHub) Register(connectionID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.rooms[connectionID]
	if !ok {
		m = make(map[*Client]struct{})
		h.rooms[connectionID] = m
	}
	m[client] = struct{}{}
	observability.RecordWebSocketEvent("chat_register")
}

// Unregister removes a client from a connection's room. Idempotent.
func (h *ChatHub) Unregister(connectionID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.rooms[connectionID]
	if !ok {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.rooms, connectionID)
	}
	observability.RecordWebSocketEvent("chat_unregister")
}

// Broadcast sends a message to every client watching the connection.
func (h *ChatHub) Broadcast(connectionID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[connectionID] {
		client.TrySend("chat", message)
	}
}

// ActiveClients returns the number of sockets watching the connection.
func (h *ChatHub) ActiveClients(connectionID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[connectionID])
}

// StartWiring subscribes the hub to the notifier's chat channels.
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChatSubscriber(ctx, func(channel, payload string) {
		connectionID, ok := ParseConnectionChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid chat channel", "channel", channel)
			return
		}
		h.Broadcast(connectionID, []byte(payload))
	})
}

// Shutdown closes every client in every room.
func (h *ChatHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range h.rooms {
		for client := range m {
			client.Close()
		}
	}
	h.rooms = make(map[uint]map[*Client]struct{})
}
