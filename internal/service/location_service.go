package service

import (
	"context"
	"sort"
	"time"

	"orbit/internal/authz"
	"orbit/internal/geo"
	"orbit/internal/models"
	"orbit/internal/observability"
	"orbit/internal/repository"
)

const (
	// DefaultRadiusKm is used when a nearby query omits the radius.
	DefaultRadiusKm = 2.0
	// MaxRadiusKm bounds the supported search radius.
	MaxRadiusKm = 50.0
	// MaxNearbyResults caps one proximity result set.
	MaxNearbyResults = 100

	// distanceTolerance makes the radius boundary inclusive despite
	// float rounding.
	distanceTolerance = 1e-9
)

// NearbyUser is one proximity search result.
type NearbyUser struct {
	User       models.PublicProfile `json:"user"`
	Latitude   float64              `json:"latitude"`
	Longitude  float64              `json:"longitude"`
	DistanceKm float64              `json:"distance_km"`
	LastSeen   time.Time            `json:"last_seen"`
}

// LocationService provides location reporting and proximity search.
type LocationService struct {
	locationRepo repository.LocationRepository
}

// NewLocationService returns a new LocationService.
func NewLocationService(locationRepo repository.LocationRepository) *LocationService {
	return &LocationService{locationRepo: locationRepo}
}

// Report upserts the caller's position. The geohash cell is recomputed on
// every write so the prefilter index never goes stale.
func (s *LocationService) Report(ctx context.Context, userID uint, lat, lng, accuracyMeters float64) (*models.Location, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !geo.ValidCoords(lat, lng) {
		return nil, models.NewValidationError("Latitude must be in [-90, 90] and longitude in [-180, 180]")
	}
	if accuracyMeters < 0 {
		return nil, models.NewValidationError("Accuracy must be non-negative")
	}

	loc := &models.Location{
		UserID:         userID,
		Latitude:       lat,
		Longitude:      lng,
		AccuracyMeters: accuracyMeters,
		Geohash:        geo.Encode(lat, lng),
		LastUpdatedAt:  time.Now().UTC(),
	}
	if err := s.locationRepo.Upsert(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// GetOwn returns the caller's stored location. Raw coordinates are never
// readable for anyone else.
func (s *LocationService) GetOwn(ctx context.Context, userID uint) (*models.Location, error) {
	loc, err := s.locationRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessLocation(userID, loc) {
		return nil, models.NewForbiddenError()
	}
	return loc, nil
}

// FindNearby returns available users within radiusKm of the given point,
// ascending by distance, capped at MaxNearbyResults. The repository
// prefilters by bounding box and geohash cells; the exact haversine cut
// happens here. A store failure surfaces as an error, never as an empty
// result.
func (s *LocationService) FindNearby(ctx context.Context, requesterID uint, lat, lng, radiusKm float64) ([]NearbyUser, error) {
	if requesterID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !geo.ValidCoords(lat, lng) {
		return nil, models.NewValidationError("Latitude must be in [-90, 90] and longitude in [-180, 180]")
	}
	if radiusKm == 0 {
		radiusKm = DefaultRadiusKm
	}
	if radiusKm < 0 || radiusKm > MaxRadiusKm {
		return nil, models.NewValidationError("Radius must be in (0, 50] km")
	}

	start := time.Now()
	box := geo.BoundingBox(lat, lng, radiusKm)
	cells := geo.CoverCells(lat, lng, radiusKm)

	candidates, err := s.locationRepo.FindCandidates(ctx, requesterID, box, cells)
	if err != nil {
		return nil, err
	}
	observability.ObserveNearbyQuery(start, len(candidates))

	results := make([]NearbyUser, 0, len(candidates))
	for _, c := range candidates {
		d := geo.DistanceKm(lat, lng, c.Location.Latitude, c.Location.Longitude)
		if d > radiusKm+distanceTolerance {
			continue
		}
		results = append(results, NearbyUser{
			User:       c.User.Public(),
			Latitude:   c.Location.Latitude,
			Longitude:  c.Location.Longitude,
			DistanceKm: d,
			LastSeen:   c.Location.LastUpdatedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	if len(results) > MaxNearbyResults {
		results = results[:MaxNearbyResults]
	}
	return results, nil
}
