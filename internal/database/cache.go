package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Cache key prefixes
	CacheKeyAppMetrics = "jetsocket:metrics:"
	CacheKeyRevoked    = "jetsocket:revoked:"

	// Cache TTLs
	CacheTTLAppMetrics = 10 * time.Second
)

// ErrCacheMiss is returned by Get when the key is absent or Redis is not
// configured.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a JSON cache over Redis. A Cache with a nil client is valid and
// never stores anything.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get retrieves a value from Redis cache and unmarshals it into dest
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.Enabled() {
		return ErrCacheMiss
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Set stores a value in Redis cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys from Redis cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateAppMetrics clears the cached latest snapshot of an application.
func (c *Cache) InvalidateAppMetrics(ctx context.Context, appID string) {
	if err := c.Delete(ctx, CacheKeyAppMetrics+appID); err != nil {
		log.Warn("failed to invalidate metrics cache", "app_id", appID, err)
	}
}
