package models

import (
	"time"
)

// Location stores a user's last reported position. One row per user,
// upserted on every location report.
//
// Latitude/longitude are kept as separate indexed decimal columns for
// portability and haversine queries; Geohash carries the same point as a
// base32 cell string so radius scans can prune candidates by cell prefix.
type Location struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	UserID         uint    `gorm:"uniqueIndex;not null" json:"user_id"`
	Latitude       float64 `gorm:"type:decimal(10,8);not null;index:idx_locations_lat_lng" json:"latitude"`
	Longitude      float64 `gorm:"type:decimal(11,8);not null;index:idx_locations_lat_lng" json:"longitude"`
	AccuracyMeters float64 `gorm:"type:decimal(8,2)" json:"accuracy_meters"`
	Geohash        string  `gorm:"size:12;index" json:"-"`

	LastUpdatedAt time.Time `gorm:"not null;index" json:"last_updated_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for GORM
func (Location) TableName() string {
	return "user_locations"
}
