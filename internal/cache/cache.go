// Package cache is a Redis read-through cache for API responses. A Cache
// without a client is valid and behaves as a permanent miss.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/hydromap/backend/internal/metrics"
)

// KeyPrefix namespaces every key this service writes
const KeyPrefix = "hydromap:"

// ErrMiss is returned by Get when the key is absent or caching is disabled
var ErrMiss = errors.New("cache: miss")

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redisURL. An empty URL returns a disabled cache.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	if redisURL == "" {
		return &Cache{ttl: ttl}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Available() bool {
	return c != nil && c.client != nil
}

// Key builds a cache key for a table query
func Key(table string, parts ...string) string {
	return KeyPrefix + table + ":" + strings.Join(parts, ":")
}

// Get decodes the cached value into dest
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if !c.Available() {
		return ErrMiss
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return ErrMiss
	}
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		return err
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return json.Unmarshal(val, dest)
}

// Set stores value under key for the configured TTL
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.Available() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops every cached entry for a table
func (c *Cache) Invalidate(ctx context.Context, table string) error {
	if !c.Available() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, KeyPrefix+table+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.client.Close()
}
