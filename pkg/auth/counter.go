package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// AttemptCounter tracks failed events per key inside a sliding window.
// Login throttling and the HTTP rate limiter share this interface.
type AttemptCounter interface {
	// Increment records one attempt for key and returns the count seen
	// inside the current window, including this one.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}

// MemoryCounter is a process-local AttemptCounter.
type MemoryCounter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	count     int64
	windowEnd time.Time
}

// NewMemoryCounter creates an in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{buckets: make(map[string]*bucket)}
}

// Increment implements AttemptCounter.
func (c *MemoryCounter) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	b, ok := c.buckets[key]
	if !ok || now.After(b.windowEnd) {
		b = &bucket{windowEnd: now.Add(window)}
		c.buckets[key] = b
	}
	b.count++
	return b.count, nil
}

// Reset implements AttemptCounter.
func (c *MemoryCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buckets, key)
	return nil
}

// Cleanup drops expired buckets. Called periodically from the job
// scheduler so the map does not grow without bound.
func (c *MemoryCounter) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, b := range c.buckets {
		if now.After(b.windowEnd) {
			delete(c.buckets, key)
			removed++
		}
	}
	return removed
}

// RedisCounter is a Redis-backed AttemptCounter shared across
// instances.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "attempts"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

// Increment implements AttemptCounter. INCR and EXPIRE run in one
// pipeline; the expiry is only set when the key is new so the window
// does not slide on every attempt.
func (c *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf("%s:%s", c.prefix, key)

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return incr.Val(), nil
}

// Reset implements AttemptCounter.
func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	return c.client.Del(ctx, fmt.Sprintf("%s:%s", c.prefix, key)).Err()
}
