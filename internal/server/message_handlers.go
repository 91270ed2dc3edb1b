package server

import (
	"orbit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMessages handles GET /api/connections/:id/messages?limit=..&before=..
func (s *Server) GetMessages(c *fiber.Ctx) error {
	connectionID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	limit := c.QueryInt("limit", 0)
	before := c.QueryInt("before", 0)
	if before < 0 {
		before = 0
	}

	messages, err := s.messageService.ListMessages(c.Context(), connectionID, userID, limit, uint(before))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(messages)
}

// PostMessage handles POST /api/connections/:id/messages
func (s *Server) PostMessage(c *fiber.Ctx) error {
	connectionID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	var req struct {
		Content   string `json:"content"`
		ClientRef string `json:"client_ref"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.messageService.PostMessage(c.Context(), connectionID, userID, req.Content, req.ClientRef)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkMessagesRead handles POST /api/connections/:id/read
func (s *Server) MarkMessagesRead(c *fiber.Ctx) error {
	connectionID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	marked, err := s.messageService.MarkRead(c.Context(), connectionID, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"marked": marked})
}

// GetUnreadCount handles GET /api/connections/:id/unread
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	connectionID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	count, err := s.messageService.UnreadCount(c.Context(), connectionID, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"unread": count})
}
