package repository

import (
	"context"

	"orbit/internal/geo"
	"orbit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Candidate is a proximity-scan row: a location joined with its profile.
// Exact distance filtering happens in the service; the repository only
// narrows by indexed bounds.
type Candidate struct {
	User     models.User
	Location models.Location
}

// LocationRepository defines the interface for location data operations
type LocationRepository interface {
	Upsert(ctx context.Context, loc *models.Location) error
	GetByUserID(ctx context.Context, userID uint) (*models.Location, error)
	// FindCandidates returns available users inside the bounding box,
	// excluding the requester. cells optionally prunes by geohash prefix;
	// pass nil to rely on the box alone.
	FindCandidates(ctx context.Context, requesterID uint, box geo.Box, cells []string) ([]Candidate, error)
}

// locationRepository implements LocationRepository
type locationRepository struct {
	db *gorm.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Upsert(ctx context.Context, loc *models.Location) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"latitude", "longitude", "accuracy_meters", "geohash",
				"last_updated_at", "updated_at",
			}),
		}).
		Create(loc).Error
	if err != nil {
		return translate(err, "Location", loc.UserID)
	}
	return nil
}

func (r *locationRepository) GetByUserID(ctx context.Context, userID uint) (*models.Location, error) {
	var loc models.Location
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&loc).Error; err != nil {
		return nil, translate(err, "Location", userID)
	}
	return &loc, nil
}

func (r *locationRepository) FindCandidates(ctx context.Context, requesterID uint, box geo.Box, cells []string) ([]Candidate, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Location{}).
		Joins("JOIN users ON users.id = user_locations.user_id AND users.deleted_at IS NULL").
		Where("users.available = ?", true).
		Where("user_locations.user_id <> ?", requesterID).
		Where("user_locations.latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("user_locations.longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng)

	if len(cells) > 0 {
		// Cells share one precision; prefix comparison prunes box corners.
		q = q.Where("substr(user_locations.geohash, 1, ?) IN ?", len(cells[0]), cells)
	}

	var locs []models.Location
	if err := q.Preload("User").Find(&locs).Error; err != nil {
		return nil, translate(err, "Location", requesterID)
	}

	candidates := make([]Candidate, 0, len(locs))
	for _, loc := range locs {
		candidates = append(candidates, Candidate{User: loc.User, Location: loc})
	}
	return candidates, nil
}
