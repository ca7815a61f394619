package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	projectsdomain "github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
)

const (
	keyPrefix     = "vulcano:stats:"
	categoriesKey = keyPrefix + "categories"

	UserTTL     = 5 * time.Minute
	CategoryTTL = 10 * time.Minute
)

func userKey(id uuid.UUID) string { return keyPrefix + "user:" + id.String() }

// Cache serves statistics from Redis, computing them from the Source on a
// miss. Redis failures are logged and fall through to the Source.
type Cache struct {
	rdb *redis.Client
	src Source
	log *slog.Logger
}

func NewCache(rdb *redis.Client, src Source, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, src: src, log: logger}
}

func (c *Cache) get(ctx context.Context, key string, into any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("stats cache read failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(b, into); err != nil {
		c.log.Warn("stats cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		c.log.Warn("stats cache write failed", "key", key, "err", err)
	}
}

func (c *Cache) UserStats(ctx context.Context, actor access.Actor) (Stats, error) {
	key := userKey(actor.UserID)
	var st Stats
	if c.get(ctx, key, &st) {
		return st, nil
	}
	st, err := c.src.UserStats(ctx, actor)
	if err != nil {
		return st, err
	}
	c.set(ctx, key, st, UserTTL)
	return st, nil
}

func (c *Cache) CategoryCounts(ctx context.Context) ([]projectsdomain.Count, error) {
	var out []projectsdomain.Count
	if c.get(ctx, categoriesKey, &out) {
		return out, nil
	}
	return c.WarmCategories(ctx)
}

// WarmCategories recomputes the category counts and stores them.
func (c *Cache) WarmCategories(ctx context.Context) ([]projectsdomain.Count, error) {
	out, err := c.src.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, categoriesKey, out, CategoryTTL)
	return out, nil
}

func (c *Cache) InvalidateUsers(ctx context.Context, ids ...uuid.UUID) {
	keys := make([]string, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, userKey(id))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("stats cache invalidation failed", "keys", len(keys), "err", err)
	}
}

func (c *Cache) InvalidateCategories(ctx context.Context) {
	if err := c.rdb.Del(ctx, categoriesKey).Err(); err != nil {
		c.log.Warn("stats cache invalidation failed", "key", categoriesKey, "err", err)
	}
}

// Flush drops every cached statistic and returns how many keys went away.
func (c *Cache) Flush(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
