package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"orbit/internal/authz"
	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 30 * time.Second

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers
// on WebSocket upgrades, so authenticated clients trade their bearer token
// for a short-lived single-use ticket passed as a query parameter.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnavailableError(fmt.Errorf("ticket store unavailable")))
	}
	userID := currentUserID(c)

	ticket := uuid.New().String()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.Set(c.Context(), key, strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// NotificationsWebsocket returns the handler for /api/ws, the per-user
// notification stream. Authentication is handled by route middleware and
// userID is read from connection locals.
func (s *Server) NotificationsWebsocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.Close()
			return
		}

		client := notifications.NewClient(userID, conn)
		if !s.hub.Register(client) {
			middleware.Logger.Warn("websocket registration rejected", "user_id", userID)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"connection limit reached"}`))
			client.Close()
			return
		}
		defer s.hub.Unregister(client)

		go client.WritePump()
		client.ReadPump(nil)
	})
}

// ChatWebsocket returns the handler for /api/ws/chat/:connectionId, the
// per-connection chat stream. Only participants may subscribe.
func (s *Server) ChatWebsocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.Close()
			return
		}

		connectionID64, err := strconv.ParseUint(conn.Params("connectionId"), 10, 32)
		if err != nil || connectionID64 == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid connection id"}`))
			_ = conn.Close()
			return
		}
		connectionID := uint(connectionID64)

		connection, err := s.connRepo.GetConnectionByID(context.Background(), connectionID)
		if err != nil || !authz.CanAccessConnection(userID, connection) {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"access denied"}`))
			_ = conn.Close()
			return
		}

		client := notifications.NewClient(userID, conn)
		s.chatHub.Register(connectionID, client)
		defer s.chatHub.Unregister(connectionID, client)

		go client.WritePump()
		client.ReadPump(nil)
	})
}
