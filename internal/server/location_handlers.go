package server

import (
	"orbit/internal/models"
	"orbit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ReportLocation handles PUT /api/location
func (s *Server) ReportLocation(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req struct {
		Latitude       float64 `json:"latitude"`
		Longitude      float64 `json:"longitude"`
		AccuracyMeters float64 `json:"accuracy_meters"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	loc, err := s.locationService.Report(c.Context(), userID, req.Latitude, req.Longitude, req.AccuracyMeters)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(loc)
}

// GetMyLocation handles GET /api/location
func (s *Server) GetMyLocation(c *fiber.Ctx) error {
	userID := currentUserID(c)
	loc, err := s.locationService.GetOwn(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(loc)
}

// FindNearby handles GET /api/nearby?lat=..&lng=..&radius_km=..
func (s *Server) FindNearby(c *fiber.Ctx) error {
	userID := currentUserID(c)

	lat := c.QueryFloat("lat")
	lng := c.QueryFloat("lng")
	radius := c.QueryFloat("radius_km", service.DefaultRadiusKm)

	results, err := s.locationService.FindNearby(c.Context(), userID, lat, lng, radius)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}
