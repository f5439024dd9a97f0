// Package ttlcache provides a generic in-memory cache whose entries expire a
// fixed time-to-live after insertion. Expiry is lazy on read, with an
// optional periodic sweep reclaiming memory for keys nobody asks for again.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	val     V
	expires time.Time
}

// Cache is safe for concurrent readers and writers. Writes go through
// SetIfAbsent only: duplicate concurrent misses for the same key may both
// compute a value, but the first write wins and later ones are dropped.
type Cache[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]entry[V]
	done  chan struct{}
	now   func() time.Time // for testing
}

// New creates a cache with the given time-to-live. A positive sweep interval
// starts a background goroutine that evicts expired entries; Stop ends it.
func New[V any](ttl, sweep time.Duration) *Cache[V] {
	c := &Cache[V]{
		ttl:   ttl,
		items: make(map[string]entry[V]),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	if sweep > 0 {
		go c.sweepLoop(sweep)
	}
	return c
}

// Get returns the live value for key. Expired entries are removed on sight.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		// Recheck under the write lock; another goroutine may have replaced it.
		if cur, ok := c.items[key]; ok && c.now().After(cur.expires) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.val, true
}

// SetIfAbsent stores val under key unless a live entry already exists.
// Returns true if the value was stored.
func (c *Cache[V]) SetIfAbsent(key string, val V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok && !c.now().After(e.expires) {
		return false
	}
	c.items[key] = entry[V]{val: val, expires: c.now().Add(c.ttl)}
	return true
}

// Len counts entries, including expired ones the sweeper has not visited yet.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the sweep goroutine. Safe to call once.
func (c *Cache[V]) Stop() {
	close(c.done)
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache[V]) sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.items {
		if now.After(e.expires) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}
