// Package sessioncache stores active session tokens and small pieces of
// connection state in Redis, alongside the session rows internal/database
// keeps. The HTTP API writes a session entry at login and pings Redis from
// /healthz; no request path reads entries back.
package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coldharbor/chatcore/internal/config"
)

// ErrNotFound is returned when a lookup key has no entry, mirroring
// redis.Nil without leaking the driver error to callers.
var ErrNotFound = errors.New("sessioncache: not found")

// Cache wraps a Redis client with the session/presence operations the chat
// service needs. A nil *Cache is never handed out; construction failures
// return an error instead.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// New dials Redis using cfg and verifies connectivity with a short-lived
// ping before returning.
func New(ctx context.Context, cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("sessioncache: connect: %w", err)
	}

	return &Cache{client: client, defaultTTL: 24 * time.Hour}, nil
}

// NewWithClient wraps an already-constructed go-redis client, letting tests
// point the cache at a miniredis instance.
func NewWithClient(client *redis.Client, defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &Cache{client: client, defaultTTL: defaultTTL}
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func sessionKey(token string) string {
	return "session:" + token
}

func presenceKey(roomID string) string {
	return "presence:" + roomID
}

// SessionEntry is the value stored against a session token.
type SessionEntry struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PutSession stores a session entry under its token with ttl, defaulting to
// the cache's configured TTL when ttl is zero.
func (c *Cache) PutSession(ctx context.Context, token string, entry SessionEntry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("sessioncache: marshal session: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("sessioncache: put session: %w", err)
	}
	return nil
}

// GetSession retrieves the session entry for token, returning ErrNotFound
// if it is missing or has expired.
func (c *Cache) GetSession(ctx context.Context, token string) (SessionEntry, error) {
	var entry SessionEntry
	data, err := c.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry, ErrNotFound
	}
	if err != nil {
		return entry, fmt.Errorf("sessioncache: get session: %w", err)
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, fmt.Errorf("sessioncache: unmarshal session: %w", err)
	}
	return entry, nil
}

// DeleteSession removes a session entry.
func (c *Cache) DeleteSession(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("sessioncache: delete session: %w", err)
	}
	return nil
}

// TouchSession resets a session entry's TTL without rewriting its value,
// returning ErrNotFound if the entry is missing.
func (c *Cache) TouchSession(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	ok, err := c.client.Expire(ctx, sessionKey(token), ttl).Result()
	if err != nil {
		return fmt.Errorf("sessioncache: touch session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// MarkPresent records userID as present in roomID. The room's whole presence
// set expires ttl (default 2m) after the latest MarkPresent call, so members
// ClearPresent never removes do not outlive it.
func (c *Cache) MarkPresent(ctx context.Context, roomID, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	member := redis.Z{Score: float64(time.Now().Unix()), Member: userID}
	if err := c.client.ZAdd(ctx, presenceKey(roomID), member).Err(); err != nil {
		return fmt.Errorf("sessioncache: mark present: %w", err)
	}
	if err := c.client.Expire(ctx, presenceKey(roomID), ttl).Err(); err != nil {
		return fmt.Errorf("sessioncache: set presence ttl: %w", err)
	}
	return nil
}

// ClearPresent removes userID from roomID's presence set.
func (c *Cache) ClearPresent(ctx context.Context, roomID, userID string) error {
	if err := c.client.ZRem(ctx, presenceKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("sessioncache: clear present: %w", err)
	}
	return nil
}

// PresentUsers lists the user IDs currently marked present in roomID whose
// last MarkPresent call falls at or after olderThan, compared in whole
// seconds.
func (c *Cache) PresentUsers(ctx context.Context, roomID string, olderThan time.Time) ([]string, error) {
	users, err := c.client.ZRangeByScore(ctx, presenceKey(roomID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", olderThan.Unix()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("sessioncache: present users: %w", err)
	}
	return users, nil
}
