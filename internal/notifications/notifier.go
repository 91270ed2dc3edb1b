// Package notifications provides real-time delivery of notification and
// chat events over Redis pub/sub and WebSocket hubs.
package notifications

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"orbit/internal/models"
	"orbit/internal/observability"
)

const (
	userChannelPrefix = "notify:user:"
	connChannelPrefix = "chat:conn:"
)

// UserChannel returns the Redis channel carrying events for one user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ConnectionChannel returns the Redis channel carrying chat events for one connection.
func ConnectionChannel(connectionID uint) string {
	return connChannelPrefix + strconv.FormatUint(uint64(connectionID), 10)
}

// Event is the wire format pushed to WebSocket clients.
type Event struct {
	Type         string      `json:"type"`
	ConnectionID uint        `json:"connection_id,omitempty"`
	UserID       uint        `json:"user_id,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
}

// Notifier publishes events into Redis channels and starts subscribers that
// feed the hubs. A nil Redis client turns every method into a no-op so the
// API still works single-node without Redis.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event to a user's notification channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, UserChannel(userID), payload).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("publish_user").Inc()
		return err
	}
	observability.RecordNotificationPublished(event.Type)
	return nil
}

// PublishNotification fans out a persisted notification row to its owner.
func (n *Notifier) PublishNotification(ctx context.Context, notif *models.Notification) error {
	return n.PublishUser(ctx, notif.UserID, Event{
		Type:    string(notif.Type),
		UserID:  notif.UserID,
		Payload: notif,
	})
}

// PublishConnection sends a chat event to a connection's channel.
func (n *Notifier) PublishConnection(ctx context.Context, connectionID uint, event Event) error {
	if n.rdb == nil {
		return nil
	}
	event.ConnectionID = connectionID
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, ConnectionChannel(connectionID), payload).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("publish_connection").Inc()
		return err
	}
	return nil
}

// StartUserSubscriber subscribes to the notify:user:* pattern and calls
// onMessage for each incoming message with the raw channel and payload.
func (n *Notifier) StartUserSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onMessage(msg.Channel, msg.Payload)
			}
		}
	}()

	return nil
}

// StartChatSubscriber subscribes to the chat:conn:* pattern and calls
// onMessage for each incoming message.
func (n *Notifier) StartChatSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, connChannelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onMessage(msg.Channel, msg.Payload)
			}
		}
	}()

	return nil
}

// ParseUserChannel extracts the user ID from a notify:user:<id> channel name.
// The second return is false when the channel does not match.
func ParseUserChannel(channel string) (uint, bool) {
	if len(channel) <= len(userChannelPrefix) || channel[:len(userChannelPrefix)] != userChannelPrefix {
		return 0, false
	}
	id, err := strconv.ParseUint(channel[len(userChannelPrefix):], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// ParseConnectionChannel extracts the connection ID from a chat:conn:<id> channel name.
func ParseConnectionChannel(channel string) (uint, bool) {
	if len(channel) <= len(connChannelPrefix) || channel[:len(connChannelPrefix)] != connChannelPrefix {
		return 0, false
	}
	id, err := strconv.ParseUint(channel[len(connChannelPrefix):], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
