// Package cache mirrors the full-table collections so read views avoid a store round trip.
// Values are opaque bytes; callers own encoding and invalidation.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is the abstraction over the in-memory and Redis backends.
//
// Each key also carries a generation counter that only grows. Writers Bump it when they
// invalidate a key; readers compare it before and after a slow load so a value computed
// from an older snapshot is never served as current.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Generation(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, keys ...string) error
}

// InMemory is a map-backed cache for dev/testing.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry
	gens    map[string]int64
	now     func() time.Time
}

type entry struct {
	val     []byte
	expires time.Time
}

// NewInMemory creates an empty in-memory cache.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]entry), gens: make(map[string]int64), now: time.Now}
}

// Get returns a copy of the stored value.
func (c *InMemory) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && !c.now().Before(e.expires)) {
		return nil, ErrMiss
	}
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, nil
}

// Set stores a value; a zero ttl never expires.
func (c *InMemory) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete removes the keys; missing keys are ignored.
func (c *InMemory) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
	return nil
}

// Generation returns the key's counter, zero if it was never bumped.
func (c *InMemory) Generation(ctx context.Context, key string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[key], nil
}

// Bump advances the counters of the keys.
func (c *InMemory) Bump(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		c.gens[k]++
	}
	c.mu.Unlock()
	return nil
}

// Redis stores entries as plain string keys under a common prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a cache on an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "classlog:cache:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Get fetches a value, mapping redis.Nil to ErrMiss.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

// Set writes a value with the given ttl.
func (c *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, val, ttl).Err()
}

// Delete removes the keys in one round trip.
func (c *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.client.Del(ctx, full...).Err()
}

// Generation reads the counter stored beside the key.
func (c *Redis) Generation(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, c.genKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Bump increments the counters in one pipelined round trip.
func (c *Redis) Bump(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, c.genKey(k))
		}
		return nil
	})
	return err
}

func (c *Redis) genKey(key string) string {
	return c.prefix + "gen:" + key
}
