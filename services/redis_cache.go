package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache backs the Cache interface with Redis so that cached market
// data survives restarts and is shared across instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{client: client}, nil
}

// Get returns the cached value, or (nil, nil) when the key is absent
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := WithCircuitBreaker(ctx, BreakerRedis, func() ([]byte, error) {
		v, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", key, err)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores the value with a TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := WithCircuitBreaker(ctx, BreakerRedis, func() (struct{}, error) {
		if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
			return struct{}{}, fmt.Errorf("failed to set %s: %w", key, err)
		}
		return struct{}{}, nil
	})
	return err
}

// Delete removes a key
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := WithCircuitBreaker(ctx, BreakerRedis, func() (struct{}, error) {
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return struct{}{}, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return struct{}{}, nil
	})
	return err
}

// Close releases the underlying connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}
