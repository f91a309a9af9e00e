package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache exposes the metadata cache as TTL-keyed byte operations.
type Cache struct {
	rdb *redis.Client
}

// NewCache creates a cache view over an established client.
func NewCache(c *Client) *Cache {
	return &Cache{rdb: c.rdb}
}

// Get fetches a cached value. The second return is false on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}
	return val, true, nil
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("setex failed: %w", err)
	}
	return nil
}
