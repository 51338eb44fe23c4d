// Package session caches the signed-in user's identity in redis so
// /api/users/me does not hit Postgres on every page load.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/cohorthub/internal/domain/user"
	"github.com/geocoder89/cohorthub/internal/utils"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 5 * time.Minute

// Cache never fails a request: redis errors are logged and read as a miss.
type Cache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewCache(rdb redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, userID string) (user.Identity, bool) {
	if c == nil || c.rdb == nil {
		return user.Identity{}, false
	}

	raw, err := c.rdb.Get(ctx, utils.BuildSessionCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Default().WarnContext(ctx, "session_cache_get_failed", "user_id", userID, "err", err)
		}
		return user.Identity{}, false
	}

	var id user.Identity
	if err := json.Unmarshal(raw, &id); err != nil || id.ID != userID {
		return user.Identity{}, false
	}
	return id, true
}

func (c *Cache) Set(ctx context.Context, id user.Identity) {
	if c == nil || c.rdb == nil {
		return
	}

	b, err := json.Marshal(id)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, utils.BuildSessionCacheKey(id.ID), b, c.ttl).Err(); err != nil {
		slog.Default().WarnContext(ctx, "session_cache_set_failed", "user_id", id.ID, "err", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.rdb == nil {
		return
	}

	if err := c.rdb.Del(ctx, utils.BuildSessionCacheKey(userID)).Err(); err != nil {
		slog.Default().WarnContext(ctx, "session_cache_invalidate_failed", "user_id", userID, "err", err)
	}
}
