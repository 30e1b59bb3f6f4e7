package sessioncache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cache := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	return mr, cache
}

func TestPutAndGetSession(t *testing.T) {
	_, cache := setupMiniRedis(t)
	ctx := context.Background()

	entry := SessionEntry{UserID: "u1", Username: "alice", Role: "user", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, cache.PutSession(ctx, "tok-1", entry, time.Hour))

	got, err := cache.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, entry.UserID, got.UserID)
	assert.Equal(t, entry.Username, got.Username)
	assert.Equal(t, entry.Role, got.Role)
}

func TestGetSession_NotFound(t *testing.T) {
	_, cache := setupMiniRedis(t)
	_, err := cache.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetSession_DefaultTTL(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.PutSession(ctx, "tok-2", SessionEntry{UserID: "u2"}, 0))
	mr.FastForward(2 * time.Minute)

	_, err := cache.GetSession(ctx, "tok-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSession(t *testing.T) {
	_, cache := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.PutSession(ctx, "tok-3", SessionEntry{UserID: "u3"}, time.Hour))
	require.NoError(t, cache.DeleteSession(ctx, "tok-3"))

	_, err := cache.GetSession(ctx, "tok-3")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTouchSession(t *testing.T) {
	mr, cache := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.PutSession(ctx, "tok-4", SessionEntry{UserID: "u4"}, time.Minute))
	require.NoError(t, cache.TouchSession(ctx, "tok-4", time.Hour))

	mr.FastForward(2 * time.Minute)
	_, err := cache.GetSession(ctx, "tok-4")
	assert.NoError(t, err)

	t.Run("missing key", func(t *testing.T) {
		err := cache.TouchSession(ctx, "never-existed", time.Hour)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPresence(t *testing.T) {
	_, cache := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.MarkPresent(ctx, "room-1", "u1", time.Minute))
	require.NoError(t, cache.MarkPresent(ctx, "room-1", "u2", time.Minute))

	users, err := cache.PresentUsers(ctx, "room-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, users)

	require.NoError(t, cache.ClearPresent(ctx, "room-1", "u1"))
	users, err = cache.PresentUsers(ctx, "room-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, users)
}

func TestPing(t *testing.T) {
	_, cache := setupMiniRedis(t)
	assert.NoError(t, cache.Ping(context.Background()))
}
