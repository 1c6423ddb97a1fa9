package market

import (
	"sync"
	"time"
)

// Cache is a TTL map keyed by request shape. Stale entries are silently
// replaced on the next Set; nothing is invalidated proactively.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]cacheItem[V]
	ttl   time.Duration
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// NewCache creates a cache whose entries live for ttl.
func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]cacheItem[V]),
		ttl:   ttl,
	}
}

// Get returns the cached value when present and fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiration) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set stores value under key with a fresh expiry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem[V]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}
