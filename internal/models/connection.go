package models

import (
	"time"
)

// RequestStatus represents the status of a connection request.
type RequestStatus string

const (
	// RequestStatusPending indicates an unresolved connection request.
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusAccepted indicates the receiver accepted the request.
	RequestStatusAccepted RequestStatus = "accepted"
	// RequestStatusRejected indicates the receiver rejected the request.
	RequestStatusRejected RequestStatus = "rejected"
)

// ConnectionRequest is a directed edge from sender to receiver, unique per
// ordered pair. Accepted and rejected are terminal: the row is kept so the
// pair constraint keeps blocking re-sends.
type ConnectionRequest struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	SenderID   uint          `gorm:"not null;uniqueIndex:idx_request_pair" json:"sender_id"`
	ReceiverID uint          `gorm:"not null;uniqueIndex:idx_request_pair" json:"receiver_id"`
	Status     RequestStatus `gorm:"type:varchar(20);default:'pending';index:idx_requests_status" json:"status"`
	ResolvedAt *time.Time    `json:"resolved_at"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	// Relationships
	Sender   User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

// TableName specifies the table name for GORM
func (ConnectionRequest) TableName() string {
	return "connection_requests"
}

// Connection is the undirected edge materialized when a request is
// accepted. Participants are stored in canonical (smaller id first) order
// so the pair-unique index holds regardless of who sent the request.
type Connection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserAID   uint      `gorm:"not null;uniqueIndex:idx_connection_pair" json:"user_a_id"`
	UserBID   uint      `gorm:"not null;uniqueIndex:idx_connection_pair" json:"user_b_id"`
	RequestID uint      `gorm:"index" json:"request_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	UserA User `gorm:"foreignKey:UserAID" json:"user_a,omitempty"`
	UserB User `gorm:"foreignKey:UserBID" json:"user_b,omitempty"`
}

// TableName specifies the table name for GORM
func (Connection) TableName() string {
	return "connections"
}

// CanonicalPair orders two user ids deterministically (smaller first).
func CanonicalPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether the given user is one of the two parties.
func (c *Connection) HasParticipant(userID uint) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// PeerOf returns the other participant's id. Callers must have verified
// membership with HasParticipant first.
func (c *Connection) PeerOf(userID uint) uint {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}
