package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

func (i item[V]) expired(now time.Time) bool {
	return !now.Before(i.expiresAt)
}

// Cache is a thread-safe in-memory TTL cache keyed by string.
type Cache[V any] struct {
	mu         sync.RWMutex
	items      map[string]item[V]
	defaultTTL time.Duration
	now        func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New starts a cache whose expired entries are swept every defaultTTL/2.
// Call Stop to release the sweeper.
func New[V any](defaultTTL time.Duration) *Cache[V] {
	return newCache[V](defaultTTL, time.Now)
}

func newCache[V any](defaultTTL time.Duration, now func() time.Time) *Cache[V] {
	c := &Cache[V]{
		items:      make(map[string]item[V]),
		defaultTTL: defaultTTL,
		now:        now,
		stop:       make(chan struct{}),
	}
	interval := defaultTTL / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	go c.sweep(interval)
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || it.expired(c.now()) {
		var zero V
		return zero, false
	}
	return it.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item[V]{value: value, expiresAt: c.now().Add(ttl)}
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Invalidate drops every key starting with prefix. An empty prefix only
// drops expired entries.
func (c *Cache[V]) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, it := range c.items {
		if prefix == "" {
			if it.expired(now) {
				delete(c.items, key)
			}
			continue
		}
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors are not cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Len counts entries including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Invalidate("")
		case <-c.stop:
			return
		}
	}
}
