// cache.go: bounded, expiring LRU cache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// entry is a single cached value. Owned exclusively by its Cache.
type entry[V any] struct {
	key       string
	value     V
	createdAt int64 // nanoseconds, from the cache TimeProvider
}

// Cache is a thread-safe least-recently-used cache with an optional
// time-to-live. The recency list runs from least recently used (front)
// to most recently used (back); eviction always removes the front.
//
// Every operation that touches the recency list or the counters, Get
// included, runs under one mutex per instance. Two caches never share a lock.
type Cache[V any] struct {
	name    string
	maxSize int

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	// ttlNanos is read on every lookup and swapped by hot reload.
	ttlNanos atomic.Int64

	// inflight holds one *flight[V] per key being computed by GetOrCompute.
	inflight sync.Map

	clock   TimeProvider
	logger  Logger
	metrics MetricsCollector
	onEvict func(key string)
}

// NewCache creates a cache from config. Zero values get defaults;
// a negative TTL is rejected.
func NewCache[V any](config CacheConfig) (*Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Cache[V]{
		name:    config.Name,
		maxSize: config.MaxSize,
		items:   make(map[string]*list.Element, config.MaxSize),
		order:   list.New(),
		clock:   config.TimeProvider,
		logger:  config.Logger,
		metrics: config.MetricsCollector,
		onEvict: config.OnEvict,
	}
	c.ttlNanos.Store(int64(config.TTL))
	return c, nil
}

// Name returns the name the cache was configured with.
func (c *Cache[V]) Name() string {
	return c.name
}

// Get returns the value stored under key.
// An entry older than the TTL is removed and reported as a miss.
// Exactly one of the hit or miss counters is incremented per call.
func (c *Cache[V]) Get(key string) (V, bool) {
	start := time.Now()
	var zero V

	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		c.metrics.RecordGet(c.name, time.Since(start).Nanoseconds(), false)
		return zero, false
	}

	e := el.Value.(*entry[V])
	if c.expiredLocked(e, c.clock.Now()) {
		c.removeElementLocked(el)
		c.expirations++
		c.misses++
		c.mu.Unlock()
		c.metrics.RecordExpiration(c.name)
		c.metrics.RecordGet(c.name, time.Since(start).Nanoseconds(), false)
		return zero, false
	}

	c.order.MoveToBack(el)
	c.hits++
	value := e.value
	c.mu.Unlock()

	c.metrics.RecordGet(c.name, time.Since(start).Nanoseconds(), true)
	return value, true
}

// Set inserts or overwrites key. Inserting a new key into a full cache
// evicts the least recently used entry first. The entry timestamp and
// recency position are reset either way.
func (c *Cache[V]) Set(key string, value V) {
	start := time.Now()
	now := c.clock.Now()
	evicted := ""
	didEvict := false

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.createdAt = now
		c.order.MoveToBack(el)
	} else {
		if c.order.Len() >= c.maxSize {
			if front := c.order.Front(); front != nil {
				evicted = front.Value.(*entry[V]).key
				c.removeElementLocked(front)
				c.evictions++
				didEvict = true
				if c.onEvict != nil {
					c.onEvict(evicted)
				}
			}
		}
		c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value, createdAt: now})
	}
	c.mu.Unlock()

	if didEvict {
		c.metrics.RecordEviction(c.name)
		c.logger.Debug("cache eviction", "cache", c.name, "key", evicted)
	}
	c.metrics.RecordSet(c.name, time.Since(start).Nanoseconds())
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	start := time.Now()

	c.mu.Lock()
	el, ok := c.items[key]
	if ok {
		c.removeElementLocked(el)
	}
	c.mu.Unlock()

	c.metrics.RecordDelete(c.name, time.Since(start).Nanoseconds())
	return ok
}

// Clear removes every entry and resets all counters to zero.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
	c.expirations = 0
	c.mu.Unlock()

	c.logger.Debug("cache cleared", "cache", c.name)
}

// Len returns the number of stored entries, expired ones included
// until they are looked up or swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the stored keys ordered from least to most recently used.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// RemoveExpired drops every expired entry and returns how many were removed.
// Lookups expire entries lazily; this is the active counterpart used by
// the Registry janitor.
func (c *Cache[V]) RemoveExpired() int {
	if c.ttlNanos.Load() <= 0 {
		return 0
	}
	now := c.clock.Now()

	c.mu.Lock()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expiredLocked(el.Value.(*entry[V]), now) {
			c.removeElementLocked(el)
			removed++
		}
		el = next
	}
	c.expirations += uint64(removed)
	c.mu.Unlock()

	for i := 0; i < removed; i++ {
		c.metrics.RecordExpiration(c.name)
	}
	return removed
}

// SetTTL changes the time-to-live. Existing entries are judged against
// the new value from the next lookup on. Zero disables expiration.
func (c *Cache[V]) SetTTL(ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	c.ttlNanos.Store(int64(ttl))
}

// TTL returns the current time-to-live.
func (c *Cache[V]) TTL() time.Duration {
	return time.Duration(c.ttlNanos.Load())
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Name:        c.name,
		Size:        c.order.Len(),
		MaxSize:     c.maxSize,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		TTL:         time.Duration(c.ttlNanos.Load()),
	}
}

// expiredLocked uses a strict comparison: an entry exactly TTL old is still valid.
func (c *Cache[V]) expiredLocked(e *entry[V], now int64) bool {
	ttl := c.ttlNanos.Load()
	return ttl > 0 && now-e.createdAt > ttl
}

func (c *Cache[V]) removeElementLocked(el *list.Element) {
	e := c.order.Remove(el).(*entry[V])
	delete(c.items, e.key)
}

// CacheStats provides statistics about cache performance.
type CacheStats struct {
	// Name is the cache name, empty for anonymous caches
	Name string

	// Size is the current number of entries
	Size int

	// MaxSize is the capacity bound
	MaxSize int

	// Hits is the number of successful lookups
	Hits uint64

	// Misses is the number of lookups that found nothing or an expired entry
	Misses uint64

	// Evictions is the number of entries removed to make room
	Evictions uint64

	// Expirations is the number of entries removed for exceeding the TTL
	Expirations uint64

	// TTL is the configured time-to-live, zero when entries never expire
	TTL time.Duration
}

// HitRate returns the hit ratio as a percentage (0-100).
// Returns 0 if no lookups have been performed yet.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// HitRateString formats HitRate with two decimals and a percent sign, e.g. "66.67%".
func (s CacheStats) HitRateString() string {
	return fmt.Sprintf("%.2f%%", s.HitRate())
}

var _ Instance = (*Cache[string])(nil)
