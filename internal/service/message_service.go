package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"orbit/internal/authz"
	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/repository"
)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200

	// notificationPreviewLength bounds the content excerpt carried in a
	// message notification body.
	notificationPreviewLength = 80
)

// ConnectionSummary is one entry of a user's connection list.
type ConnectionSummary struct {
	ID          uint                 `json:"id"`
	Peer        models.PublicProfile `json:"peer"`
	UnreadCount int64                `json:"unread_count"`
	CreatedAt   time.Time            `json:"created_at"`
}

// MessageService provides the per-connection chat store.
type MessageService struct {
	db          *gorm.DB
	messageRepo repository.MessageRepository
	connRepo    repository.ConnectionRepository
	notifRepo   repository.NotificationRepository
	notifier    *notifications.Notifier
}

// NewMessageService returns a new MessageService.
func NewMessageService(db *gorm.DB, messageRepo repository.MessageRepository, connRepo repository.ConnectionRepository, notifRepo repository.NotificationRepository, notifier *notifications.Notifier) *MessageService {
	return &MessageService{
		db:          db,
		messageRepo: messageRepo,
		connRepo:    connRepo,
		notifRepo:   notifRepo,
		notifier:    notifier,
	}
}

// PostMessage appends a message to a connection's chat. The message and
// the recipient's notification commit atomically; realtime events go out
// after commit. clientRef, when given, must be a UUID and is echoed back
// so optimistic UI entries reconcile without content matching.
func (s *MessageService) PostMessage(ctx context.Context, connectionID, senderID uint, content, clientRef string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Message content cannot be empty")
	}
	if len(content) > models.MaxMessageLength {
		return nil, models.NewValidationError(fmt.Sprintf("Message content must be at most %d characters", models.MaxMessageLength))
	}
	if clientRef != "" {
		if _, err := uuid.Parse(clientRef); err != nil {
			return nil, models.NewValidationError("client_ref must be a valid UUID")
		}
	}

	conn, err := s.connRepo.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessConnection(senderID, conn) {
		return nil, models.NewForbiddenError()
	}

	sender := conn.UserA
	if conn.UserBID == senderID {
		sender = conn.UserB
	}
	peerID := conn.PeerOf(senderID)

	msg := &models.Message{
		ConnectionID: connectionID,
		SenderID:     senderID,
		Content:      content,
		ClientRef:    clientRef,
	}
	var notif *models.Notification

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messageRepo := repository.NewMessageRepository(tx)
		notifRepo := repository.NewNotificationRepository(tx)

		if err := messageRepo.Create(ctx, msg); err != nil {
			return err
		}
		notif = messageNotification(msg, &sender, peerID)
		return notifRepo.Create(ctx, notif)
	})
	if err != nil {
		return nil, err
	}

	s.publishMessage(ctx, msg, notif)
	return msg, nil
}

// ListMessages returns a chronological page of a connection's chat.
// beforeID pages backwards; zero means the latest window.
func (s *MessageService) ListMessages(ctx context.Context, connectionID, requesterID uint, limit int, beforeID uint) ([]models.Message, error) {
	conn, err := s.connRepo.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessConnection(requesterID, conn) {
		return nil, models.NewForbiddenError()
	}

	if limit <= 0 {
		limit = defaultMessagePageSize
	}
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}
	return s.messageRepo.List(ctx, connectionID, limit, beforeID)
}

// MarkRead flips the read flag on every message the reader has not sent.
// Idempotent; returns the number of messages newly marked.
func (s *MessageService) MarkRead(ctx context.Context, connectionID, readerID uint) (int64, error) {
	conn, err := s.connRepo.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return 0, err
	}
	if !authz.CanAccessConnection(readerID, conn) {
		return 0, models.NewForbiddenError()
	}
	return s.messageRepo.MarkRead(ctx, connectionID, readerID)
}

// UnreadCount returns the viewer's unread message count for a connection.
func (s *MessageService) UnreadCount(ctx context.Context, connectionID, viewerID uint) (int64, error) {
	conn, err := s.connRepo.GetConnectionByID(ctx, connectionID)
	if err != nil {
		return 0, err
	}
	if !authz.CanAccessConnection(viewerID, conn) {
		return 0, models.NewForbiddenError()
	}
	return s.messageRepo.CountUnread(ctx, connectionID, viewerID)
}

// ListConnections returns the user's connections with the peer profile
// and per-connection unread count.
func (s *MessageService) ListConnections(ctx context.Context, userID uint) ([]ConnectionSummary, error) {
	conns, err := s.connRepo.GetUserConnections(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConnectionSummary, 0, len(conns))
	for _, conn := range conns {
		peer := conn.UserA
		if conn.UserAID == userID {
			peer = conn.UserB
		}
		unread, err := s.messageRepo.CountUnread(ctx, conn.ID, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ConnectionSummary{
			ID:          conn.ID,
			Peer:        peer.Public(),
			UnreadCount: unread,
			CreatedAt:   conn.CreatedAt,
		})
	}
	return summaries, nil
}

func messageNotification(msg *models.Message, sender *models.User, peerID uint) *models.Notification {
	preview := msg.Content
	if len(preview) > notificationPreviewLength {
		// Back off to a rune boundary so the cut never leaves a split
		// multi-byte character in the body.
		cut := notificationPreviewLength
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	data, _ := json.Marshal(map[string]uint{
		"connection_id": msg.ConnectionID,
		"message_id":    msg.ID,
	})
	return &models.Notification{
		UserID: peerID,
		Type:   models.NotificationMessage,
		Title:  fmt.Sprintf("New message from %s", sender.Name()),
		Body:   preview,
		Data:   string(data),
	}
}

// publishMessage fans the committed message out to the connection channel
// and the recipient's notification channel. Best effort.
func (s *MessageService) publishMessage(ctx context.Context, msg *models.Message, notif *models.Notification) {
	if s.notifier == nil {
		return
	}
	event := notifications.Event{
		Type:    "message",
		UserID:  msg.SenderID,
		Payload: msg,
	}
	if err := s.notifier.PublishConnection(ctx, msg.ConnectionID, event); err != nil {
		middleware.Logger.WarnContext(ctx, "chat publish failed",
			"connection_id", msg.ConnectionID, "error", err)
	}
	if notif == nil {
		return
	}
	if err := s.notifier.PublishNotification(ctx, notif); err != nil {
		middleware.Logger.WarnContext(ctx, "notification publish failed",
			"user_id", notif.UserID, "type", notif.Type, "error", err)
	}
}
