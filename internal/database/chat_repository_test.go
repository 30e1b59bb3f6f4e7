package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupChatTestDB(t *testing.T) (*pgxpool.Pool, *ChatRepository) {
	ctx := context.Background()

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("DB_USER")
	if user == "" {
		user = "chatcore"
	}
	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = "secret"
	}
	dbname := os.Getenv("DB_NAME")
	if dbname == "" {
		dbname = "chatcore_db"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbname)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
		return nil, nil
	}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	repo := NewChatRepository(pool, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		t.Skipf("Skipping test: database connection failed: %v", err)
		pool.Close()
		return nil, nil
	}

	var tableExists bool
	err = pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = 'chat_messages'
		)
	`).Scan(&tableExists)
	if err != nil || !tableExists {
		t.Skipf("Skipping test: chat_messages table does not exist (run migrations first)")
		pool.Close()
		return nil, nil
	}

	return pool, repo
}

func cleanupChatTestDB(t *testing.T, pool *pgxpool.Pool, roomID string) {
	ctx := context.Background()
	if _, err := pool.Exec(ctx, "DELETE FROM chat_messages WHERE room_id = $1", roomID); err != nil {
		t.Logf("Warning: Failed to cleanup chat_messages: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM chat_rooms WHERE id = $1", roomID); err != nil {
		t.Logf("Warning: Failed to cleanup chat_rooms: %v", err)
	}
}

func testRoomID(t *testing.T) string {
	return "test-room-" + time.Now().Format("20060102150405.000000")
}

func TestChatRepository_CreateAndGetRoom(t *testing.T) {
	pool, repo := setupChatTestDB(t)
	if pool == nil {
		return
	}
	roomID := testRoomID(t)
	defer cleanupChatTestDB(t, pool, roomID)
	defer pool.Close()

	ctx := context.Background()

	room := &ChatRoom{ID: roomID, Name: "general", CreatedBy: "alice"}
	require.NoError(t, repo.CreateRoom(ctx, room))
	assert.False(t, room.CreatedAt.IsZero())

	fetched, err := repo.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, room.Name, fetched.Name)
	assert.Equal(t, room.CreatedBy, fetched.CreatedBy)

	_, err = repo.GetRoom(ctx, "no-such-room")
	assert.Error(t, err)
}

func TestChatRepository_ListRooms(t *testing.T) {
	pool, repo := setupChatTestDB(t)
	if pool == nil {
		return
	}
	roomID := testRoomID(t)
	defer cleanupChatTestDB(t, pool, roomID)
	defer pool.Close()

	ctx := context.Background()
	require.NoError(t, repo.CreateRoom(ctx, &ChatRoom{ID: roomID, Name: "general", CreatedBy: "alice"}))

	rooms, total, err := repo.ListRooms(ctx, 10, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)

	found := false
	for _, r := range rooms {
		if r.ID == roomID {
			found = true
		}
	}
	assert.True(t, found, "expected to find the created room in the listing")
}

func TestChatRepository_InsertMessageAssignsSequence(t *testing.T) {
	pool, repo := setupChatTestDB(t)
	if pool == nil {
		return
	}
	roomID := testRoomID(t)
	defer cleanupChatTestDB(t, pool, roomID)
	defer pool.Close()

	ctx := context.Background()
	require.NoError(t, repo.CreateRoom(ctx, &ChatRoom{ID: roomID, Name: "general", CreatedBy: "alice"}))

	first, err := repo.InsertMessage(ctx, roomID, "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.SequenceID)

	second, err := repo.InsertMessage(ctx, roomID, "bob", "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.SequenceID)
}

func TestChatRepository_MessagesPage(t *testing.T) {
	pool, repo := setupChatTestDB(t)
	if pool == nil {
		return
	}
	roomID := testRoomID(t)
	defer cleanupChatTestDB(t, pool, roomID)
	defer pool.Close()

	ctx := context.Background()
	require.NoError(t, repo.CreateRoom(ctx, &ChatRoom{ID: roomID, Name: "general", CreatedBy: "alice"}))

	for i := 0; i < 5; i++ {
		_, err := repo.InsertMessage(ctx, roomID, "alice", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	page, err := repo.MessagesPage(ctx, roomID, -1, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(4), page[0].SequenceID, "most recent message must come first")
	assert.Equal(t, int64(3), page[1].SequenceID)
	assert.Equal(t, int64(2), page[2].SequenceID)

	nextPage, err := repo.MessagesPage(ctx, roomID, page[2].SequenceID, 3)
	require.NoError(t, err)
	require.Len(t, nextPage, 2)
	assert.Equal(t, int64(1), nextPage[0].SequenceID)
	assert.Equal(t, int64(0), nextPage[1].SequenceID)
}
