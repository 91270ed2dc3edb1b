package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orbit/internal/config"
	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/repository"
	"orbit/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "test_secret"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Location{},
		&models.ConnectionRequest{},
		&models.Connection{},
		&models.Message{},
		&models.Notification{},
	))
	return db
}

// newTestServer builds a Server on an in-memory store with no Redis and
// mounts the full route table on a bare Fiber app.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	return newTestServerWithRedis(t, nil)
}

func newTestServerWithRedis(t *testing.T, redisClient *redis.Client) (*Server, *fiber.App) {
	t.Helper()

	db := setupTestDB(t)
	cfg := &config.Config{JWTSecret: testJWTSecret, Env: "test"}

	srv := &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		userRepo:     repository.NewUserRepository(db),
		locationRepo: repository.NewLocationRepository(db),
		connRepo:     repository.NewConnectionRepository(db),
		messageRepo:  repository.NewMessageRepository(db),
		notifRepo:    repository.NewNotificationRepository(db),
		notifier:     notifications.NewNotifier(redisClient),
		hub:          notifications.NewHub(),
		chatHub:      notifications.NewChatHub(),
	}
	srv.profileService = service.NewProfileService(srv.userRepo)
	srv.locationService = service.NewLocationService(srv.locationRepo)
	srv.connectionService = service.NewConnectionService(db, srv.connRepo, srv.userRepo, srv.notifRepo, srv.notifier)
	srv.messageService = service.NewMessageService(db, srv.messageRepo, srv.connRepo, srv.notifRepo, srv.notifier)
	srv.notificationService = service.NewNotificationService(srv.notifRepo)

	app := fiber.New()
	srv.SetupRoutes(app)
	return srv, app
}

// signToken builds an identity-provider style bearer token for tests.
func signToken(t *testing.T, subject, email, name string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"name":  name,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}
