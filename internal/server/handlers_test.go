package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"orbit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	_, app := newTestServer(t)

	resp := doRequest(t, app, http.MethodGet, "/api/profile/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodGet, "/api/profile/me", "not.a.jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestFirstRequestProvisionsProfile(t *testing.T) {
	srv, app := newTestServer(t)

	token := signToken(t, "idp|alice", "alice@example.com", "Alice A")
	resp := doRequest(t, app, http.MethodGet, "/api/profile/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user models.User
	decodeBody(t, resp, &user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice A", user.DisplayName)

	// The same subject resolves to the same row on repeat requests.
	resp = doRequest(t, app, http.MethodGet, "/api/profile/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again models.User
	decodeBody(t, resp, &again)
	assert.Equal(t, user.ID, again.ID)

	var count int64
	require.NoError(t, srv.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateProfileAndVisibility(t *testing.T) {
	_, app := newTestServer(t)

	aliceToken := signToken(t, "idp|alice", "alice@example.com", "")
	bobToken := signToken(t, "idp|bob", "bob@example.com", "")

	var alice models.User
	resp := doRequest(t, app, http.MethodGet, "/api/profile/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &alice)

	// Bob sees the public projection while alice is available.
	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/profile/%d", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var public models.PublicProfile
	decodeBody(t, resp, &public)
	assert.Equal(t, "alice", public.Username)

	// Alice goes dark.
	hidden := false
	resp = doRequest(t, app, http.MethodPut, "/api/profile/me", aliceToken,
		map[string]interface{}{"available": hidden, "bio": "away"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodGet, fmt.Sprintf("/api/profile/%d", alice.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Her own view still works.
	resp = doRequest(t, app, http.MethodGet, "/api/profile/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.User
	decodeBody(t, resp, &me)
	assert.Equal(t, "away", me.Bio)
	assert.False(t, me.Available)
}

func TestUpdateProfileRejectsBadTheme(t *testing.T) {
	_, app := newTestServer(t)
	token := signToken(t, "idp|alice", "alice@example.com", "")

	resp := doRequest(t, app, http.MethodPut, "/api/profile/me", token,
		map[string]string{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestLocationReportAndNearby(t *testing.T) {
	_, app := newTestServer(t)

	aliceToken := signToken(t, "idp|alice", "alice@example.com", "")
	bobToken := signToken(t, "idp|bob", "bob@example.com", "")

	resp := doRequest(t, app, http.MethodPut, "/api/location", aliceToken,
		map[string]float64{"latitude": 40.7128, "longitude": -74.0060, "accuracy_meters": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Bob is roughly 1.1 km north.
	resp = doRequest(t, app, http.MethodPut, "/api/location", bobToken,
		map[string]float64{"latitude": 40.7228, "longitude": -74.0060, "accuracy_meters": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodGet,
		"/api/nearby?lat=40.7128&lng=-74.0060&radius_km=2", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count   int `json:"count"`
		Results []struct {
			User       models.PublicProfile `json:"user"`
			DistanceKm float64              `json:"distance_km"`
		} `json:"results"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "bob", body.Results[0].User.Username)
	assert.InDelta(t, 1.11, body.Results[0].DistanceKm, 0.05)

	// Outside the 1 km radius nobody shows up.
	resp = doRequest(t, app, http.MethodGet,
		"/api/nearby?lat=40.7128&lng=-74.0060&radius_km=1", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.Equal(t, 0, body.Count)
}

func TestNearbyHighLatitude(t *testing.T) {
	_, app := newTestServer(t)

	aliceToken := signToken(t, "idp|alice", "alice@example.com", "")
	bobToken := signToken(t, "idp|bob", "bob@example.com", "")

	resp := doRequest(t, app, http.MethodPut, "/api/location", aliceToken,
		map[string]float64{"latitude": 80.0, "longitude": 0.0, "accuracy_meters": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Bob is ~1.7 km east; longitude degrees are short up here.
	resp = doRequest(t, app, http.MethodPut, "/api/location", bobToken,
		map[string]float64{"latitude": 80.0, "longitude": 0.09, "accuracy_meters": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodGet,
		"/api/nearby?lat=80.0&lng=0.0&radius_km=2", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count   int `json:"count"`
		Results []struct {
			User       models.PublicProfile `json:"user"`
			DistanceKm float64              `json:"distance_km"`
		} `json:"results"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "bob", body.Results[0].User.Username)
	assert.InDelta(t, 1.74, body.Results[0].DistanceKm, 0.05)
}

func TestNearbyRejectsBadRadius(t *testing.T) {
	_, app := newTestServer(t)
	token := signToken(t, "idp|alice", "alice@example.com", "")

	resp := doRequest(t, app, http.MethodGet,
		"/api/nearby?lat=40.0&lng=-74.0&radius_km=120", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetOwnLocationOnly(t *testing.T) {
	_, app := newTestServer(t)
	token := signToken(t, "idp|alice", "alice@example.com", "")

	resp := doRequest(t, app, http.MethodGet, "/api/location", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodPut, "/api/location", token,
		map[string]float64{"latitude": 10, "longitude": 20, "accuracy_meters": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodGet, "/api/location", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loc models.Location
	decodeBody(t, resp, &loc)
	assert.Equal(t, 10.0, loc.Latitude)
}

func TestConnectionLifecycle(t *testing.T) {
	_, app := newTestServer(t)

	aliceToken := signToken(t, "idp|alice", "alice@example.com", "")
	bobToken := signToken(t, "idp|bob", "bob@example.com", "")

	var alice, bob models.User
	resp := doRequest(t, app, http.MethodGet, "/api/profile/me", aliceToken, nil)
	decodeBody(t, resp, &alice)
	resp = doRequest(t, app, http.MethodGet, "/api/profile/me", bobToken, nil)
	decodeBody(t, resp, &bob)

	// Alice requests, Bob sees it pending.
	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/connections/requests/%d", bob.ID), aliceToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var req models.ConnectionRequest
	decodeBody(t, resp, &req)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	resp = doRequest(t, app, http.MethodGet, "/api/connections/requests", bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []models.ConnectionRequest
	decodeBody(t, resp, &pending)
	require.Len(t, pending, 1)

	// A duplicate request conflicts.
	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/connections/requests/%d", bob.ID), aliceToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Only the receiver may accept.
	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/connections/requests/%d/accept", req.ID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/connections/requests/%d/accept", req.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var accepted models.ConnectionRequest
	decodeBody(t, resp, &accepted)
	assert.Equal(t, models.RequestStatusAccepted, accepted.Status)

	// Both sides now list the connection.
	resp = doRequest(t, app, http.MethodGet, "/api/connections/", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summaries []struct {
		ID   uint                 `json:"id"`
		Peer models.PublicProfile `json:"peer"`
	}
	decodeBody(t, resp, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, "bob", summaries[0].Peer.Username)

	// The sender was notified of the acceptance.
	resp = doRequest(t, app, http.MethodGet, "/api/notifications/", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notifs []models.Notification
	decodeBody(t, resp, &notifs)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationConnectionAccepted, notifs[0].Type)
}

func TestMessagingFlow(t *testing.T) {
	srv, app := newTestServer(t)

	aliceToken := signToken(t, "idp|alice", "alice@example.com", "")
	bobToken := signToken(t, "idp|bob", "bob@example.com", "")
	carolToken := signToken(t, "idp|carol", "carol@example.com", "")

	var alice, bob models.User
	resp := doRequest(t, app, http.MethodGet, "/api/profile/me", aliceToken, nil)
	decodeBody(t, resp, &alice)
	resp = doRequest(t, app, http.MethodGet, "/api/profile/me", bobToken, nil)
	decodeBody(t, resp, &bob)
	resp = doRequest(t, app, http.MethodGet, "/api/profile/me", carolToken, nil)
	resp.Body.Close()

	conn := &models.Connection{UserAID: alice.ID, UserBID: bob.ID}
	require.NoError(t, srv.connRepo.CreateConnection(context.Background(), conn))

	// Post and read back.
	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/connections/%d/messages", conn.ID), aliceToken,
		map[string]string{"content": "hello bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var msg models.Message
	decodeBody(t, resp, &msg)
	assert.Equal(t, "hello bob", msg.Content)

	resp = doRequest(t, app, http.MethodGet,
		fmt.Sprintf("/api/connections/%d/messages", conn.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msgs []models.Message
	decodeBody(t, resp, &msgs)
	require.Len(t, msgs, 1)

	// Outsiders are walled off.
	resp = doRequest(t, app, http.MethodGet,
		fmt.Sprintf("/api/connections/%d/messages", conn.ID), carolToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Unread then read.
	resp = doRequest(t, app, http.MethodGet,
		fmt.Sprintf("/api/connections/%d/unread", conn.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unread map[string]int64
	decodeBody(t, resp, &unread)
	assert.Equal(t, int64(1), unread["unread"])

	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/connections/%d/read", conn.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var marked map[string]int64
	decodeBody(t, resp, &marked)
	assert.Equal(t, int64(1), marked["marked"])

	// Empty content is rejected.
	resp = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/connections/%d/messages", conn.ID), aliceToken,
		map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestNotificationEndpoints(t *testing.T) {
	srv, app := newTestServer(t)

	token := signToken(t, "idp|alice", "alice@example.com", "")
	var alice models.User
	resp := doRequest(t, app, http.MethodGet, "/api/profile/me", token, nil)
	decodeBody(t, resp, &alice)

	for i := 0; i < 2; i++ {
		require.NoError(t, srv.db.Create(&models.Notification{
			UserID: alice.ID, Type: models.NotificationMessage, Title: "hi"}).Error)
	}

	resp = doRequest(t, app, http.MethodGet, "/api/notifications/unread", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var unread map[string]int64
	decodeBody(t, resp, &unread)
	assert.Equal(t, int64(2), unread["unread"])

	resp = doRequest(t, app, http.MethodPost, "/api/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var marked map[string]int64
	decodeBody(t, resp, &marked)
	assert.Equal(t, int64(2), marked["marked"])

	resp = doRequest(t, app, http.MethodGet, "/api/notifications/unread", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &unread)
	assert.Equal(t, int64(0), unread["unread"])
}

func TestHealthEndpoints(t *testing.T) {
	_, app := newTestServer(t)

	resp := doRequest(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Without Redis the service is degraded but still ready.
	resp = doRequest(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string `json:"status"`
		Checks struct {
			Database string `json:"database"`
			Redis    string `json:"redis"`
		} `json:"checks"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "unavailable", body.Checks.Redis)
}
