// Package service contains the business logic between HTTP handlers and
// repositories. Services own validation, authorization checks, and the
// transactions that keep multi-row transitions atomic.
package service

import (
	"context"
	"fmt"
	"strings"

	"orbit/internal/authz"
	"orbit/internal/models"
	"orbit/internal/repository"
)

// ProfileService provides profile provisioning and CRUD logic.
type ProfileService struct {
	userRepo repository.UserRepository
}

// NewProfileService returns a new ProfileService.
func NewProfileService(userRepo repository.UserRepository) *ProfileService {
	return &ProfileService{userRepo: userRepo}
}

// ProvisionFromIdentity resolves the profile row for an identity-provider
// subject, creating it on first sight. The username is derived from the
// email local part and uniquified with a numeric suffix when taken.
func (s *ProfileService) ProvisionFromIdentity(ctx context.Context, subject, email, displayName string) (*models.User, error) {
	if subject == "" {
		return nil, models.NewValidationError("Identity subject is required")
	}
	if email == "" {
		return nil, models.NewValidationError("Email is required")
	}

	user, err := s.userRepo.GetBySubject(ctx, subject)
	if err == nil {
		return user, nil
	}
	if !models.IsNotFound(err) {
		return nil, err
	}

	username, err := s.deriveUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		Subject:     subject,
		Username:    username,
		Email:       email,
		DisplayName: displayName,
		Available:   true,
		Theme:       "system",
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent first request for the same subject can win the
		// insert; the existing row is the answer either way.
		if models.IsConflict(err) {
			return s.userRepo.GetBySubject(ctx, subject)
		}
		return nil, err
	}
	return user, nil
}

// deriveUsername turns the email local part into a unique username.
func (s *ProfileService) deriveUsername(ctx context.Context, email string) (string, error) {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}

	base := sanitizeUsername(local)
	if base == "" {
		base = "user"
	}

	candidate := base
	for suffix := 2; ; suffix++ {
		exists, err := s.userRepo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, suffix)
	}
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 30 {
		out = out[:30]
	}
	return out
}

// GetProfile returns a profile visible to the viewer. Unavailable profiles
// are reported as not found to everyone but their owner.
func (s *ProfileService) GetProfile(ctx context.Context, viewerID, targetID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewProfile(viewerID, user) {
		return nil, models.NewNotFoundError("User", targetID)
	}
	return user, nil
}

// ProfileUpdate carries the mutable profile fields. Pointers distinguish
// "leave unchanged" from "set to zero value".
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatar_url"`
	Interests   *string `json:"interests"`
	Available   *bool   `json:"available"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
	Theme       *string `json:"theme"`
}

// UpdateProfile applies an update to the caller's own profile. The
// username is immutable after provisioning.
func (s *ProfileService) UpdateProfile(ctx context.Context, callerID, targetID uint, upd ProfileUpdate) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditProfile(callerID, user) {
		return nil, models.NewForbiddenError()
	}

	if upd.DisplayName != nil {
		if len(*upd.DisplayName) > 100 {
			return nil, models.NewValidationError("Display name must be at most 100 characters")
		}
		user.DisplayName = *upd.DisplayName
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = *upd.AvatarURL
	}
	if upd.Interests != nil {
		user.Interests = *upd.Interests
	}
	if upd.Available != nil {
		user.Available = *upd.Available
	}
	if upd.City != nil {
		user.City = *upd.City
	}
	if upd.Country != nil {
		user.Country = *upd.Country
	}
	if upd.Theme != nil {
		switch *upd.Theme {
		case "light", "dark", "system":
			user.Theme = *upd.Theme
		default:
			return nil, models.NewValidationError("Theme must be light, dark, or system")
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
