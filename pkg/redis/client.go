package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LOOKUP CACHE

// ErrCacheMiss is returned when the requested key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new Redis client. ttl applies to every cached entry.
func New(addr, password string, db int, ttl time.Duration) *Client {
	return &Client{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			PoolSize:     100,
			MinIdleConns: 10,
		}),
		ttl: ttl,
	}
}

// Close closes the Redis connection
func (c *Client) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

// Get retrieves a key's value
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

// Set sets a key's value with the client's TTL
func (c *Client) Set(ctx context.Context, key string, data []byte) error {
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Del deletes a key
func (c *Client) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// GetJSON reads a cached entry into out. Returns ErrCacheMiss when absent.
func (c *Client) GetJSON(ctx context.Context, key string, out any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal cached value: %w", err)
	}
	return nil
}

// SetJSON marshals value and stores it under key with the client's TTL.
func (c *Client) SetJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	return c.Set(ctx, key, data)
}
