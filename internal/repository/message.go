package repository

import (
	"context"

	"orbit/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines the interface for chat message data operations
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	// List returns messages in chronological (oldest first) order. beforeID
	// optionally pages backwards from a known message id; zero means latest.
	List(ctx context.Context, connectionID uint, limit int, beforeID uint) ([]models.Message, error)
	// MarkRead flips the read flag on every message in the connection not
	// sent by readerID. Bulk and idempotent: re-invoking affects zero rows.
	MarkRead(ctx context.Context, connectionID, readerID uint) (int64, error)
	// CountUnread derives the viewer's unread count by query; it is never
	// cached, so concurrent inserts cannot make it drift.
	CountUnread(ctx context.Context, connectionID, viewerID uint) (int64, error)
}

// messageRepository implements MessageRepository
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return translate(err, "Message", msg.ConnectionID)
	}
	return nil
}

func (r *messageRepository) List(ctx context.Context, connectionID uint, limit int, beforeID uint) ([]models.Message, error) {
	q := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	// Fetch newest-first so the limit keeps the latest window, then flip
	// back to chronological order for the client.
	var messages []models.Message
	if err := q.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, translate(err, "Message", connectionID)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, connectionID, readerID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("connection_id = ? AND sender_id <> ? AND is_read = ?", connectionID, readerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, translate(res.Error, "Message", connectionID)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, connectionID, viewerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("connection_id = ? AND sender_id <> ? AND is_read = ?", connectionID, viewerID, false).
		Count(&count).Error
	if err != nil {
		return 0, translate(err, "Message", connectionID)
	}
	return count, nil
}
