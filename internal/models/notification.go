package models

import (
	"time"
)

// NotificationType tags the transition that produced a notification.
type NotificationType string

const (
	// NotificationConnectionRequest is sent to the receiver of a new request.
	NotificationConnectionRequest NotificationType = "connection_request"
	// NotificationConnectionAccepted is sent to the original sender on accept.
	NotificationConnectionAccepted NotificationType = "connection_accepted"
	// NotificationMessage is sent to the recipient of a chat message.
	NotificationMessage NotificationType = "message"
)

// Notification is a persisted fan-out row derived from a state transition.
// Users never create these directly; the services do, inside the same
// transaction as the transition they describe.
type Notification struct {
	ID     uint             `gorm:"primaryKey" json:"id"`
	UserID uint             `gorm:"not null;index:idx_notifications_user_created" json:"user_id"`
	Type   NotificationType `gorm:"type:varchar(30);not null;index" json:"type"`
	Title  string           `gorm:"size:255" json:"title"`
	Body   string           `gorm:"type:text" json:"body"`
	Data   string           `gorm:"type:text" json:"data"` // JSON payload (referenced ids)
	IsRead bool             `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `gorm:"index:idx_notifications_user_created" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
