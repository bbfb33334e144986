// Package cache implements a small in-memory cache with per-entry TTLs.
package cache

import (
	"sync"
	"time"
)

const (
	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL = time.Hour
	// cleanupInterval bounds how often expired entries are swept.
	cleanupInterval = 5 * time.Minute
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a mutex-guarded in-memory TTL cache. Expired entries are dropped
// on read and swept opportunistically during writes.
type Cache struct {
	mu          sync.Mutex
	items       map[string]entry
	lastCleanup time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		items:       make(map[string]entry),
		lastCleanup: time.Now(),
	}
}

// Set stores a value with the given TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	c.items[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Get returns the value for key and whether a live entry exists.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return item.value, true
}

// Delete removes a key, reporting whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	delete(c.items, key)
	return ok
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := time.Now()
	for _, item := range c.items {
		if now.Before(item.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) cleanupLocked() {
	now := time.Now()
	if now.Sub(c.lastCleanup) < cleanupInterval {
		return
	}
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
	c.lastCleanup = now
}
