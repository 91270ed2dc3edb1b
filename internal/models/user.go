// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a discoverable profile in Orbit. Identity (credentials,
// sessions) lives with the external identity provider; a User row is
// provisioned on first successful authentication.
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Subject     string `gorm:"uniqueIndex;not null" json:"-"` // IdP subject claim
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	Email       string `gorm:"uniqueIndex;not null" json:"-"`
	DisplayName string `gorm:"size:100" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	Interests   string `gorm:"type:text" json:"interests"` // comma-separated tags

	// Available gates discovery: profiles with Available=false never appear
	// in proximity results and are unreadable by anyone but their owner.
	Available bool `gorm:"default:true;index" json:"available"`

	City    string `gorm:"size:100" json:"city"`
	Country string `gorm:"size:100" json:"country"`
	Theme   string `gorm:"size:20;default:'system'" json:"theme"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// PublicProfile is the subset of User safe to show to other users.
type PublicProfile struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	Interests   string `json:"interests"`
	City        string `json:"city"`
	Country     string `json:"country"`
}

// Public projects the user into its shareable form.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		Interests:   u.Interests,
		City:        u.City,
		Country:     u.Country,
	}
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
