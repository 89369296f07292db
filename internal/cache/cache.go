// Package cache provides a process-local TTL cache for dashboard aggregates.
//
// Values are stored as JSON so every Get hands the caller an independent
// copy; cached aggregates are never shared as mutable references across
// requests. Size is unbounded, which is acceptable for a single-school
// deployment but is a known scaling limit.
package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock is used by tests to control expiry.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Put stores value under key for ttl. The value is serialized immediately,
// so later mutation of the original has no effect on the cached copy.
func (c *Cache) Put(key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		payload:   payload,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Get unmarshals the cached value into dest and reports whether a live
// entry existed. Expired entries are removed lazily.
func (c *Cache) Get(key string, dest any) bool {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// re-check under write lock; another Put may have refreshed the key
		if cur, still := c.entries[key]; still && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return false
	}

	if err := json.Unmarshal(e.payload, dest); err != nil {
		return false
	}
	return true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeletePrefix drops every entry whose key starts with prefix. Used to
// invalidate derived aggregates when their inputs change.
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
