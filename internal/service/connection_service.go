package service

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"orbit/internal/authz"
	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/repository"
)

// ConnectionService drives the connection-request state machine. Every
// transition persists its notification row in the same transaction and
// publishes the realtime event only after commit.
type ConnectionService struct {
	db        *gorm.DB
	connRepo  repository.ConnectionRepository
	userRepo  repository.UserRepository
	notifRepo repository.NotificationRepository
	notifier  *notifications.Notifier
}

// NewConnectionService returns a new ConnectionService.
func NewConnectionService(db *gorm.DB, connRepo repository.ConnectionRepository, userRepo repository.UserRepository, notifRepo repository.NotificationRepository, notifier *notifications.Notifier) *ConnectionService {
	return &ConnectionService{
		db:        db,
		connRepo:  connRepo,
		userRepo:  userRepo,
		notifRepo: notifRepo,
		notifier:  notifier,
	}
}

// CreateRequest opens a pending request from sender to receiver. Any
// existing edge between the pair, in either direction and any status,
// conflicts.
func (s *ConnectionService) CreateRequest(ctx context.Context, senderID, receiverID uint) (*models.ConnectionRequest, error) {
	if senderID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if senderID == receiverID {
		return nil, models.NewValidationError("Cannot send a connection request to yourself")
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewProfile(senderID, receiver) {
		return nil, models.NewNotFoundError("User", receiverID)
	}
	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	if conn, err := s.connRepo.GetConnectionBetween(ctx, senderID, receiverID); err != nil {
		return nil, err
	} else if conn != nil {
		return nil, models.NewConflictError("Already connected with this user")
	}

	if existing, err := s.connRepo.GetRequestBetween(ctx, senderID, receiverID); err != nil {
		return nil, err
	} else if existing != nil {
		switch {
		case existing.SenderID == senderID:
			return nil, models.NewConflictError("Connection request already sent")
		case existing.Status == models.RequestStatusPending:
			return nil, models.NewConflictError("This user has already sent you a connection request")
		default:
			return nil, models.NewConflictError("A connection request already exists between these users")
		}
	}

	req := &models.ConnectionRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.RequestStatusPending,
	}
	var notif *models.Notification

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		connRepo := repository.NewConnectionRepository(tx)
		notifRepo := repository.NewNotificationRepository(tx)

		if err := connRepo.CreateRequest(ctx, req); err != nil {
			return err
		}
		notif = requestNotification(req, sender)
		return notifRepo.Create(ctx, notif)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notif)
	return s.connRepo.GetRequestByID(ctx, req.ID)
}

// ResolveRequest accepts or rejects a pending request. Only the designated
// receiver may resolve. Accept flips the status, materializes the
// canonical connection, and notifies the original sender, all in one
// transaction. A repeat resolution is a silent no-op returning the
// current state.
func (s *ConnectionService) ResolveRequest(ctx context.Context, receiverID, requestID uint, accept bool) (*models.ConnectionRequest, error) {
	req, err := s.connRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !authz.CanResolveRequest(receiverID, req) {
		return nil, models.NewForbiddenError()
	}

	status := models.RequestStatusRejected
	if accept {
		status = models.RequestStatusAccepted
	}

	var notif *models.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		connRepo := repository.NewConnectionRepository(tx)
		notifRepo := repository.NewNotificationRepository(tx)

		flipped, err := connRepo.ResolveRequest(ctx, requestID, status)
		if err != nil {
			return err
		}
		if !flipped {
			// Already resolved, possibly by a concurrent call. Nothing
			// else to do; the caller gets the current state.
			return nil
		}
		if !accept {
			return nil
		}

		conn := &models.Connection{
			UserAID:   req.SenderID,
			UserBID:   req.ReceiverID,
			RequestID: req.ID,
		}
		if err := connRepo.CreateConnection(ctx, conn); err != nil {
			return err
		}
		if conn.ID == 0 {
			// The pair was already connected, via a reverse-direction
			// request accepted concurrently. Notify with the real row.
			existing, err := connRepo.GetConnectionBetween(ctx, req.SenderID, req.ReceiverID)
			if err != nil {
				return err
			}
			conn = existing
		}
		notif = acceptNotification(req, conn)
		return notifRepo.Create(ctx, notif)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notif)
	return s.connRepo.GetRequestByID(ctx, requestID)
}

// GetPendingRequests returns unresolved requests addressed to the user.
func (s *ConnectionService) GetPendingRequests(ctx context.Context, userID uint) ([]models.ConnectionRequest, error) {
	return s.connRepo.GetPendingRequests(ctx, userID)
}

// GetSentRequests returns the user's own unresolved requests.
func (s *ConnectionService) GetSentRequests(ctx context.Context, userID uint) ([]models.ConnectionRequest, error) {
	return s.connRepo.GetSentRequests(ctx, userID)
}

func requestNotification(req *models.ConnectionRequest, sender *models.User) *models.Notification {
	data, _ := json.Marshal(map[string]uint{"request_id": req.ID, "sender_id": req.SenderID})
	return &models.Notification{
		UserID: req.ReceiverID,
		Type:   models.NotificationConnectionRequest,
		Title:  fmt.Sprintf("%s wants to connect", sender.Name()),
		Data:   string(data),
	}
}

func acceptNotification(req *models.ConnectionRequest, conn *models.Connection) *models.Notification {
	data, _ := json.Marshal(map[string]uint{"request_id": req.ID, "connection_id": conn.ID})
	return &models.Notification{
		UserID: req.SenderID,
		Type:   models.NotificationConnectionAccepted,
		Title:  fmt.Sprintf("%s accepted your connection request", req.Receiver.Name()),
		Data:   string(data),
	}
}

// publish fans a committed notification out over Redis. Delivery is best
// effort; the persisted row is the source of truth.
func (s *ConnectionService) publish(ctx context.Context, notif *models.Notification) {
	if notif == nil || s.notifier == nil {
		return
	}
	if err := s.notifier.PublishNotification(ctx, notif); err != nil {
		middleware.Logger.WarnContext(ctx, "notification publish failed",
			"user_id", notif.UserID, "type", notif.Type, "error", err)
	}
}
