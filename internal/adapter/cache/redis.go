// Package cache holds the short code to original URL caches used in front of the store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const keyPrefix = "url:"

// RedisCache stores original URLs under url:<shortCode>. Every call is bounded
// by the configured timeout on top of the caller's context.
type RedisCache struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisCache(client *redis.Client, timeout time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		timeout: timeout,
	}
}

func key(shortCode string) string {
	return keyPrefix + shortCode
}

func (c *RedisCache) Enabled() bool {
	return true
}

func (c *RedisCache) Get(ctx context.Context, shortCode string) (string, error) {
	const op = "adapter.cache.RedisCache.Get"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	originalURL, err := c.client.Get(ctx, key(shortCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: %w", op, entity.ErrCacheMiss)
		}

		return "", fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	return originalURL, nil
}

func (c *RedisCache) Set(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error {
	const op = "adapter.cache.RedisCache.Set"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, key(shortCode), originalURL, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}

	return nil
}

func (c *RedisCache) Delete(ctx context.Context, shortCodes ...string) error {
	const op = "adapter.cache.RedisCache.Delete"

	if len(shortCodes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(shortCodes))
	for _, code := range shortCodes {
		keys = append(keys, key(code))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete keys: %w", op, err)
	}

	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	const op = "adapter.cache.RedisCache.Ping"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
