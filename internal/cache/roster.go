package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mymail/mymail/internal/model"
)

// rosterKey holds the serialized active roster. The roster endpoint is
// polled by every connected client, so a short-TTL snapshot keeps the
// read load off Postgres.
const rosterKey = "roster:all"

// DefaultRosterTTL is the fallback TTL for the cached roster snapshot.
const DefaultRosterTTL = 5 * time.Second

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetRoster retrieves the cached roster snapshot.
// Returns ErrCacheMiss if no snapshot is present.
func (c *Cache) GetRoster(ctx context.Context) ([]model.User, error) {
	data, err := c.client.Get(ctx, rosterKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var users []model.User
	if err := json.Unmarshal(data, &users); err != nil {
		// A corrupt snapshot behaves like a miss; the caller falls
		// through to Postgres and rewrites the key.
		return nil, ErrCacheMiss
	}

	return users, nil
}

// SetRoster stores the roster snapshot with the given TTL.
func (c *Cache) SetRoster(ctx context.Context, users []model.User, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultRosterTTL
	}

	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal roster: %w", err)
	}

	if err := c.client.Set(ctx, rosterKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// InvalidateRoster drops the cached snapshot. Called after any user
// mutation (create, delete, profile update, login, logout) so the next
// roster read reflects it immediately instead of after TTL expiry.
func (c *Cache) InvalidateRoster(ctx context.Context) error {
	if err := c.client.Del(ctx, rosterKey).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
