package server

import (
	"orbit/internal/cache"
	"orbit/internal/models"
	"orbit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProvisionProfile handles POST /api/profile/provision. The AuthRequired
// middleware already resolved or created the profile row for the token's
// subject; this endpoint just returns it so the IdP hook can confirm.
func (s *Server) ProvisionProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)
	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetMyProfile handles GET /api/profile/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)
	user, err := s.profileService.GetProfile(c.Context(), userID, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/profile/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var upd service.ProfileUpdate
	if err := c.BodyParser(&upd); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.profileService.UpdateProfile(c.Context(), userID, userID, upd)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	cache.InvalidateProfile(c.Context(), userID)
	return c.JSON(user)
}

// GetProfile handles GET /api/profile/:id with a cache-aside read of the
// public projection.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID := currentUserID(c)

	// Cached profiles are public projections, so only serve them to
	// non-owners; the owner gets the full row below.
	if viewerID != targetID {
		if cached := cache.GetProfile(c.Context(), targetID); cached != nil {
			return c.JSON(cached)
		}
	}

	user, err := s.profileService.GetProfile(c.Context(), viewerID, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if viewerID == targetID {
		return c.JSON(user)
	}

	public := user.Public()
	cache.SetProfile(c.Context(), public)
	return c.JSON(public)
}
