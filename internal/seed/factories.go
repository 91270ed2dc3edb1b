// Package seed provides helpers to create development and demo data.
// Intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"

	"orbit/internal/geo"
	"orbit/internal/models"
)

// Options controls how much demo data is generated and where on the map
// it lands.
type Options struct {
	Users     int
	CenterLat float64
	CenterLng float64
	// SpreadKm scatters generated locations around the center.
	SpreadKm float64
}

// DefaultOptions seeds a small neighborhood around lower Manhattan.
func DefaultOptions() Options {
	return Options{
		Users:     50,
		CenterLat: 40.7128,
		CenterLng: -74.0060,
		SpreadKm:  5,
	}
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var interestPool = []string{
	"hiking", "coffee", "photography", "running", "board games",
	"live music", "cooking", "climbing", "cycling", "film",
	"street food", "chess", "yoga", "book clubs", "astronomy",
}

// BuildUser constructs an unpersisted user with realistic profile data.
func (f *Factory) BuildUser() *models.User {
	username := strings.ToLower(gofakeit.Username())
	if len(username) > 30 {
		username = username[:30]
	}

	n := 2 + f.rng.Intn(3)
	picks := f.rng.Perm(len(interestPool))[:n]
	interests := make([]string, 0, n)
	for _, i := range picks {
		interests = append(interests, interestPool[i])
	}

	return &models.User{
		Subject:     "seed|" + gofakeit.UUID(),
		Username:    username,
		Email:       gofakeit.Email(),
		DisplayName: gofakeit.Name(),
		Bio:         gofakeit.Sentence(10),
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/200?u=%s", username),
		Interests:   strings.Join(interests, ","),
		Available:   f.rng.Intn(10) > 1, // most seeded users are discoverable
		City:        gofakeit.City(),
		Country:     gofakeit.Country(),
		Theme:       "system",
	}
}

// CreateUser persists a generated user.
func (f *Factory) CreateUser() (*models.User, error) {
	user := f.BuildUser()
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateLocation persists a location for the user scattered around the
// seed center, with a LastUpdatedAt spread over the past day.
func (f *Factory) CreateLocation(user *models.User) (*models.Location, error) {
	lat, lng := f.scatter()
	loc := &models.Location{
		UserID:         user.ID,
		Latitude:       lat,
		Longitude:      lng,
		AccuracyMeters: 5 + f.rng.Float64()*45,
		Geohash:        geo.Encode(lat, lng),
		LastUpdatedAt:  time.Now().Add(-time.Duration(f.rng.Intn(24*60)) * time.Minute),
	}
	if err := f.db.Create(loc).Error; err != nil {
		return nil, err
	}
	return loc, nil
}

// scatter returns a point uniformly distributed within SpreadKm of the
// center. Good enough at city scale; no need for exact geodesics here.
func (f *Factory) scatter() (float64, float64) {
	const kmPerDegreeLat = 110.574
	r := f.opts.SpreadKm * f.rng.Float64()
	theta := f.rng.Float64() * 2 * math.Pi

	dLat := r * math.Cos(theta) / kmPerDegreeLat
	dLng := r * math.Sin(theta) / (111.320 * math.Cos(f.opts.CenterLat*math.Pi/180))
	return f.opts.CenterLat + dLat, f.opts.CenterLng + dLng
}

// Run seeds users with locations and a mesh of connections, requests,
// and chat history so every feature has data to show.
func Run(db *gorm.DB, opts Options) error {
	f := NewFactory(db, opts)

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		if _, err := f.CreateLocation(user); err != nil {
			return fmt.Errorf("seed location: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("seeded %d users with locations", len(users))

	// Connect a slice of the mesh: accepted pairs with some chat history,
	// plus a few pending requests.
	connected := 0
	for i := 0; i+1 < len(users); i += 3 {
		a, b := users[i], users[i+1]
		if err := f.connectPair(a, b); err != nil {
			return err
		}
		connected++
	}
	pending := 0
	for i := 2; i+3 < len(users); i += 5 {
		req := &models.ConnectionRequest{
			SenderID:   users[i].ID,
			ReceiverID: users[i+3].ID,
			Status:     models.RequestStatusPending,
		}
		if err := f.db.Create(req).Error; err != nil {
			return fmt.Errorf("seed request: %w", err)
		}
		pending++
	}
	log.Printf("seeded %d connections and %d pending requests", connected, pending)
	return nil
}

func (f *Factory) connectPair(a, b *models.User) error {
	now := time.Now()
	req := &models.ConnectionRequest{
		SenderID:   a.ID,
		ReceiverID: b.ID,
		Status:     models.RequestStatusAccepted,
		ResolvedAt: &now,
	}
	if err := f.db.Create(req).Error; err != nil {
		return fmt.Errorf("seed request: %w", err)
	}

	userA, userB := models.CanonicalPair(a.ID, b.ID)
	conn := &models.Connection{UserAID: userA, UserBID: userB, RequestID: req.ID}
	if err := f.db.Create(conn).Error; err != nil {
		return fmt.Errorf("seed connection: %w", err)
	}

	msgs := 2 + f.rng.Intn(8)
	for i := 0; i < msgs; i++ {
		senderID := a.ID
		if i%2 == 1 {
			senderID = b.ID
		}
		msg := &models.Message{
			ConnectionID: conn.ID,
			SenderID:     senderID,
			Content:      gofakeit.Sentence(4 + f.rng.Intn(10)),
			IsRead:       i < msgs-1,
		}
		if err := f.db.Create(msg).Error; err != nil {
			return fmt.Errorf("seed message: %w", err)
		}
	}
	return nil
}
