package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veloradating/matchsvc/internal/config"
)

// likedCountTTL bounds staleness of the liked-you counters; the DB is always
// the source of truth.
const likedCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes the Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// KeyForLikedCount generates the key for a user's liked-you counter.
func (c *RedisCache) KeyForLikedCount(userID uint64) string {
	return fmt.Sprintf("liked:count:%d", userID)
}

// SetLikedCount stores a counter value and refreshes its TTL.
func (c *RedisCache) SetLikedCount(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForLikedCount(userID), count, likedCountTTL).Err()
}

// GetLikedCount returns the cached counter, or (0, false) on a miss.
func (c *RedisCache) GetLikedCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForLikedCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, likedCountTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// IncrLikedCount bumps the counter after a new like and refreshes its TTL.
// Best effort: the counter is a cache, never authoritative.
func (c *RedisCache) IncrLikedCount(ctx context.Context, userID uint64) {
	key := c.KeyForLikedCount(userID)
	_, _ = c.Client.Incr(ctx, key).Result()
	_ = c.Client.Expire(ctx, key, likedCountTTL).Err()
}

// InvalidateLikedCount drops the counter, forcing the next read to the DB.
// Used by the reconciler after deleting duplicate like rows.
func (c *RedisCache) InvalidateLikedCount(ctx context.Context, userID uint64) {
	_ = c.Client.Del(ctx, c.KeyForLikedCount(userID)).Err()
}
