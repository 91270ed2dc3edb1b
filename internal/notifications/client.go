package notifications

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"orbit/internal/middleware"
	"orbit/internal/observability"
)

const (
	// sendBufferSize bounds the per-client outbound queue. When the
	// buffer is full, messages are dropped rather than blocking the hub.
	sendBufferSize = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// Client wraps one WebSocket connection with a bounded send queue so slow
// readers never stall a broadcast.
type Client struct {
	UserID uint

	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(userID uint, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// TrySend enqueues a message without blocking. Returns false when the
// client's buffer is full or the client is closed; the message is dropped.
func (c *Client) TrySend(hub string, message []byte) bool {
	select {
	case <-c.done:
		observability.RecordBackpressureDrop(hub, "closed")
		return false
	default:
	}

	select {
	case c.send <- message:
		return true
	default:
		observability.RecordBackpressureDrop(hub, "buffer_full")
		return false
	}
}

// Close terminates the client. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with pings. It returns when the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				middleware.Logger.Debug("websocket write failed",
					"user_id", c.UserID, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump consumes inbound frames until the peer disconnects. Inbound
// payloads are ignored; the socket is server-push only. Reading is still
// required to process control frames and detect closure.
func (c *Client) ReadPump(onClose func()) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
