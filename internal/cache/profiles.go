package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orbit/internal/models"
)

const (
	profileKeyPrefix = "profile:%d"

	// ProfileTTL bounds staleness of cached public profiles. Writes
	// invalidate eagerly; the TTL is the backstop.
	ProfileTTL = 5 * time.Minute
)

func profileKey(userID uint) string {
	return fmt.Sprintf(profileKeyPrefix, userID)
}

// GetProfile returns a cached public profile, or nil on miss or when
// Redis is unavailable.
func GetProfile(ctx context.Context, userID uint) *models.PublicProfile {
	if client == nil {
		return nil
	}
	raw, err := client.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		return nil
	}
	var p models.PublicProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

// SetProfile stores a public profile. Best effort.
func SetProfile(ctx context.Context, p models.PublicProfile) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	client.Set(ctx, profileKey(p.ID), raw, ProfileTTL)
}

// InvalidateProfile drops a cached profile after a write.
func InvalidateProfile(ctx context.Context, userID uint) {
	if client == nil {
		return
	}
	client.Del(ctx, profileKey(userID))
}
