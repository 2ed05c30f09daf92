package database

import (
	"context"
	"time"
)

// BlacklistToken revokes a JWT until it would have expired anyway.
func (c *Cache) BlacklistToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if !c.Enabled() || tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, CacheKeyRevoked+tokenID, "1", ttl).Err()
}

// IsTokenBlacklisted reports whether the token has been revoked. Without
// Redis nothing is ever revoked.
func (c *Cache) IsTokenBlacklisted(ctx context.Context, tokenID string) bool {
	if !c.Enabled() || tokenID == "" {
		return false
	}
	n, err := c.rdb.Exists(ctx, CacheKeyRevoked+tokenID).Result()
	if err != nil {
		log.Warn("token blacklist lookup failed", err)
		return false
	}
	return n > 0
}
