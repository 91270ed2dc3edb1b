package repository

import (
	"context"
	"errors"
	"time"

	"orbit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConnectionRepository defines the interface for connection-request and
// connection data operations
type ConnectionRepository interface {
	CreateRequest(ctx context.Context, req *models.ConnectionRequest) error
	GetRequestByID(ctx context.Context, id uint) (*models.ConnectionRequest, error)
	GetRequestBetween(ctx context.Context, userID1, userID2 uint) (*models.ConnectionRequest, error)
	GetPendingRequests(ctx context.Context, receiverID uint) ([]models.ConnectionRequest, error)
	GetSentRequests(ctx context.Context, senderID uint) ([]models.ConnectionRequest, error)
	// ResolveRequest flips a pending request to the given terminal status.
	// Returns false without error when the request was already resolved,
	// which makes concurrent double-resolution a detectable no-op.
	ResolveRequest(ctx context.Context, requestID uint, status models.RequestStatus) (bool, error)

	// CreateConnection inserts the canonical pair, silently absorbing the
	// duplicate when a concurrent accept got there first.
	CreateConnection(ctx context.Context, conn *models.Connection) error
	GetConnectionByID(ctx context.Context, id uint) (*models.Connection, error)
	GetConnectionBetween(ctx context.Context, userID1, userID2 uint) (*models.Connection, error)
	GetUserConnections(ctx context.Context, userID uint) ([]models.Connection, error)
}

// connectionRepository implements ConnectionRepository
type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) CreateRequest(ctx context.Context, req *models.ConnectionRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("Connection request already sent")
		}
		return translate(err, "ConnectionRequest", req.SenderID)
	}
	return nil
}

func (r *connectionRepository) GetRequestByID(ctx context.Context, id uint) (*models.ConnectionRequest, error) {
	var req models.ConnectionRequest
	if err := r.db.WithContext(ctx).Preload("Sender").Preload("Receiver").First(&req, id).Error; err != nil {
		return nil, translate(err, "ConnectionRequest", id)
	}
	return &req, nil
}

func (r *connectionRepository) GetRequestBetween(ctx context.Context, userID1, userID2 uint) (*models.ConnectionRequest, error) {
	var req models.ConnectionRequest

	// Either direction counts: the pair has at most one open edge.
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID1, userID2, userID2, userID1).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // no request exists
		}
		return nil, translate(err, "ConnectionRequest", userID1)
	}
	return &req, nil
}

func (r *connectionRepository) GetPendingRequests(ctx context.Context, receiverID uint) ([]models.ConnectionRequest, error) {
	var reqs []models.ConnectionRequest
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", receiverID, models.RequestStatusPending).
		Preload("Sender").
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, translate(err, "ConnectionRequest", receiverID)
	}
	return reqs, nil
}

func (r *connectionRepository) GetSentRequests(ctx context.Context, senderID uint) ([]models.ConnectionRequest, error) {
	var reqs []models.ConnectionRequest
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND status = ?", senderID, models.RequestStatusPending).
		Preload("Receiver").
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, translate(err, "ConnectionRequest", senderID)
	}
	return reqs, nil
}

func (r *connectionRepository) ResolveRequest(ctx context.Context, requestID uint, status models.RequestStatus) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.ConnectionRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_at": now,
		})
	if res.Error != nil {
		return false, translate(res.Error, "ConnectionRequest", requestID)
	}
	return res.RowsAffected > 0, nil
}

func (r *connectionRepository) CreateConnection(ctx context.Context, conn *models.Connection) error {
	conn.UserAID, conn.UserBID = models.CanonicalPair(conn.UserAID, conn.UserBID)

	// The pair-unique index absorbs concurrent duplicate accepts: the
	// second insert is a no-op, never an error.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(conn).Error
	if err != nil {
		return translate(err, "Connection", conn.UserAID)
	}
	return nil
}

func (r *connectionRepository) GetConnectionByID(ctx context.Context, id uint) (*models.Connection, error) {
	var conn models.Connection
	if err := r.db.WithContext(ctx).Preload("UserA").Preload("UserB").First(&conn, id).Error; err != nil {
		return nil, translate(err, "Connection", id)
	}
	return &conn, nil
}

func (r *connectionRepository) GetConnectionBetween(ctx context.Context, userID1, userID2 uint) (*models.Connection, error) {
	a, b := models.CanonicalPair(userID1, userID2)
	var conn models.Connection
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err, "Connection", a)
	}
	return &conn, nil
}

func (r *connectionRepository) GetUserConnections(ctx context.Context, userID uint) ([]models.Connection, error) {
	var conns []models.Connection
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Preload("UserA").
		Preload("UserB").
		Order("created_at DESC").
		Find(&conns).Error
	if err != nil {
		return nil, translate(err, "Connection", userID)
	}
	return conns, nil
}
