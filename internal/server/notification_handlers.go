package server

import (
	"orbit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications?limit=..
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID := currentUserID(c)
	limit := c.QueryInt("limit", 0)

	notifs, err := s.notificationService.List(c.Context(), userID, limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(notifs)
}

// GetUnreadNotificationCount handles GET /api/notifications/unread
func (s *Server) GetUnreadNotificationCount(c *fiber.Ctx) error {
	userID := currentUserID(c)
	count, err := s.notificationService.CountUnread(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	notificationID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	if err := s.notificationService.MarkRead(c.Context(), notificationID, userID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID := currentUserID(c)
	marked, err := s.notificationService.MarkAllRead(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"marked": marked})
}
