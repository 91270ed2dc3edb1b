package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"orbit/internal/models"
	"orbit/internal/notifications"
	"orbit/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMessageService(db *gorm.DB) *MessageService {
	return NewMessageService(
		db,
		repository.NewMessageRepository(db),
		repository.NewConnectionRepository(db),
		repository.NewNotificationRepository(db),
		notifications.NewNotifier(nil),
	)
}

func createConnection(t *testing.T, db *gorm.DB, a, b uint) *models.Connection {
	t.Helper()
	conn := &models.Connection{UserAID: a, UserBID: b}
	if err := repository.NewConnectionRepository(db).CreateConnection(context.Background(), conn); err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	return conn
}

func TestPostMessageNotifiesPeer(t *testing.T) {
	db := setupTestDB(t)
	svc := newMessageService(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	conn := createConnection(t, db, alice.ID, bob.ID)

	msg, err := svc.PostMessage(ctx, conn.ID, alice.ID, "  hello bob  ", "")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", msg.Content)
	assert.Equal(t, alice.ID, msg.SenderID)

	var notif models.Notification
	require.NoError(t, db.Where("user_id = ?", bob.ID).First(&notif).Error)
	assert.Equal(t, models.NotificationMessage, notif.Type)
	assert.Contains(t, notif.Title, "alice")
	assert.Equal(t, "hello bob", notif.Body)
}

func TestPostMessagePreviewKeepsRunesWhole(t *testing.T) {
	db := setupTestDB(t)
	svc := newMessageService(db)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	conn := createConnection(t, db, alice.ID, bob.ID)

	// 40 three-byte runes: 120 bytes, and no rune boundary at byte 80.
	content := strings.Repeat("日", 40)
	_, err := svc.PostMessage(context.Background(), conn.ID, alice.ID, content, "")
	require.NoError(t, err)

	var notif models.Notification
	require.NoError(t, db.Where("user_id = ?", bob.ID).First(&notif).Error)
	assert.True(t, utf8.ValidString(notif.Body))
	assert.True(t, strings.HasPrefix(content, notif.Body))
	assert.LessOrEqual(t, len(notif.Body), notificationPreviewLength)
	assert.NotEmpty(t, notif.Body)
}

func TestPostMessageEchoesClientRef(t *testing.T) {
	db := setupTestDB(t)
	svc := newMessageService(db)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	conn := createConnection(t, db, alice.ID, bob.ID)

	ref := uuid.NewString()
	msg, err := svc.PostMessage(context.Background(), conn.ID, alice.ID, "hi", ref)
	require.NoError(t, err)
	assert.Equal(t, ref, msg.ClientRef)
}

func TestPostMessageValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newMessageService(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	conn := createConnection(t, db, alice.ID, bob.ID)

	_, err := svc.PostMessage(ctx, conn.ID, alice.ID, "   ", "")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	long := strings.Repeat("x", models.MaxMessageLength+1)
	_, err = svc.PostMessage(ctx, conn.ID, alice.ID, long, "")
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.PostMessage(ctx, conn.ID, alice.ID, "hi", "not-a-uuid")
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestPostMessageNonParticipantForbidden(t *testing.T) {
	db := setupTestDB(t)
	svc := newMessageService(db)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	conn := createConnection(t, db, alice.ID, bob.ID)

	_, err := svc.PostMessage(context.Background(), conn.ID, carol.ID, "let me in", "")
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}

func TestListMessagesAuthorizedAndPaged(t *testing.T) {
	db := setupTestDB(t)
	svc := newMessageService(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	conn := createConnection(t, db, alice.ID, bob.ID)

	for i := 0; i < 4; i++ {
		_, err := svc.PostMessage(ctx, conn.ID, alice.ID, "hi", "")
		require.NoError(t, err)
	}

	page, err := svc.ListMessages(ctx, conn.ID, bob.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	_, err = svc.ListMessages(ctx, conn.ID, carol.ID, 0, 0)
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	db := setupTestDB(t)
	svc := newMessageService(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	conn := createConnection(t, db, alice.ID, bob.ID)

	for i := 0; i < 3; i++ {
		_, err := svc.PostMessage(ctx, conn.ID, alice.ID, "ping", "")
		require.NoError(t, err)
	}

	unread, err := svc.UnreadCount(ctx, conn.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	marked, err := svc.MarkRead(ctx, conn.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)

	unread, err = svc.UnreadCount(ctx, conn.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestListConnectionsSummaries(t *testing.T) {
	db := setupTestDB(t)
	svc := newMessageService(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	connAB := createConnection(t, db, alice.ID, bob.ID)
	createConnection(t, db, alice.ID, carol.ID)

	_, err := svc.PostMessage(ctx, connAB.ID, bob.ID, "hey alice", "")
	require.NoError(t, err)

	summaries, err := svc.ListConnections(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byPeer := map[string]ConnectionSummary{}
	for _, s := range summaries {
		byPeer[s.Peer.Username] = s
	}
	assert.Equal(t, int64(1), byPeer["bob"].UnreadCount)
	assert.Equal(t, int64(0), byPeer["carol"].UnreadCount)

	// Bob only sees his own edge.
	summaries, err = svc.ListConnections(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "alice", summaries[0].Peer.Username)
}
