package models

import (
	"time"
)

// MaxMessageLength bounds chat message content.
const MaxMessageLength = 2000

// Message is an append-only chat entry scoped to a Connection. The only
// mutation ever applied is the read flag flip by the non-sender.
type Message struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ConnectionID uint   `gorm:"not null;index:idx_messages_conn_created" json:"connection_id"`
	SenderID     uint   `gorm:"not null;index" json:"sender_id"`
	Content      string `gorm:"type:text;not null" json:"content"`
	IsRead       bool   `gorm:"default:false" json:"is_read"`

	// ClientRef is an optional client-generated correlation id (UUID) echoed
	// back in responses and realtime events so optimistic UI entries can be
	// reconciled without content matching.
	ClientRef string `gorm:"size:36" json:"client_ref,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_messages_conn_created" json:"created_at"`

	// Relationships
	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
