// Package authz holds the row-level authorization predicates in one place
// so read and write paths cannot drift apart. Services evaluate these
// before touching data; handlers never enforce them on their own.
package authz

import (
	"orbit/internal/models"
)

// CanViewProfile: a profile is visible to its owner always, and to others
// only while it is marked available.
func CanViewProfile(viewerID uint, u *models.User) bool {
	return u.Available || u.ID == viewerID
}

// CanEditProfile: profiles are writable by their owner only.
func CanEditProfile(viewerID uint, u *models.User) bool {
	return u.ID == viewerID
}

// CanAccessLocation: raw coordinates are owner-only. Other users only ever
// see the anonymized distance computed by the proximity engine.
func CanAccessLocation(viewerID uint, loc *models.Location) bool {
	return loc.UserID == viewerID
}

// CanViewRequest: visible to either endpoint of the directed edge.
func CanViewRequest(viewerID uint, req *models.ConnectionRequest) bool {
	return req.SenderID == viewerID || req.ReceiverID == viewerID
}

// CanResolveRequest: only the designated receiver may accept or reject.
func CanResolveRequest(viewerID uint, req *models.ConnectionRequest) bool {
	return req.ReceiverID == viewerID
}

// CanAccessConnection: connections and everything scoped to them
// (messages, read flags) are participant-only.
func CanAccessConnection(viewerID uint, conn *models.Connection) bool {
	return conn.HasParticipant(viewerID)
}

// OwnsNotification: notifications are strictly scoped to their recipient.
func OwnsNotification(viewerID uint, n *models.Notification) bool {
	return n.UserID == viewerID
}
