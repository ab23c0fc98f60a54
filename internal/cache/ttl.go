package cache

import (
	"sync"
	"time"
)

// TTLCache is a map whose entries stop being returned once they are older
// than the TTL. Expiry is lazy: stale entries stay stored until the next Set
// on the same key or a Clear.
type TTLCache[T any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   Clock
	items map[string]cacheItem[T]
}

type cacheItem[T any] struct {
	data      T
	fetchedAt time.Time
}

var _ Cache[int] = (*TTLCache[int])(nil)

// NewTTLCache creates a cache whose entries are fresh for ttl. A nil clock
// means time.Now.
func NewTTLCache[T any](ttl time.Duration, clock Clock) *TTLCache[T] {
	if clock == nil {
		clock = time.Now
	}
	return &TTLCache[T]{
		ttl:   ttl,
		now:   clock,
		items: make(map[string]cacheItem[T]),
	}
}

// Get returns the value for key while it is younger than the TTL.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	item, exists := c.items[key]
	if !exists {
		return zero, false
	}
	if c.now().Sub(item.fetchedAt) >= c.ttl {
		return zero, false
	}
	return item.data, true
}

// Set stores data under key stamped with the current time.
func (c *TTLCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem[T]{data: data, fetchedAt: c.now()}
}

// Delete removes a key from the cache
func (c *TTLCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheItem[T])
}

func (c *TTLCache[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// TTL returns the freshness window.
func (c *TTLCache[T]) TTL() time.Duration { return c.ttl }
