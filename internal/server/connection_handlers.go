package server

import (
	"orbit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateConnectionRequest handles POST /api/connections/requests/:userId
func (s *Server) CreateConnectionRequest(c *fiber.Ctx) error {
	receiverID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	senderID := currentUserID(c)

	req, err := s.connectionService.CreateRequest(c.Context(), senderID, receiverID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// GetPendingRequests handles GET /api/connections/requests
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	userID := currentUserID(c)
	reqs, err := s.connectionService.GetPendingRequests(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reqs)
}

// GetSentRequests handles GET /api/connections/requests/sent
func (s *Server) GetSentRequests(c *fiber.Ctx) error {
	userID := currentUserID(c)
	reqs, err := s.connectionService.GetSentRequests(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reqs)
}

// AcceptConnectionRequest handles POST /api/connections/requests/:requestId/accept
func (s *Server) AcceptConnectionRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	req, err := s.connectionService.ResolveRequest(c.Context(), userID, requestID, true)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(req)
}

// RejectConnectionRequest handles POST /api/connections/requests/:requestId/reject
func (s *Server) RejectConnectionRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)

	req, err := s.connectionService.ResolveRequest(c.Context(), userID, requestID, false)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(req)
}

// ListConnections handles GET /api/connections
func (s *Server) ListConnections(c *fiber.Ctx) error {
	userID := currentUserID(c)
	summaries, err := s.messageService.ListConnections(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(summaries)
}
