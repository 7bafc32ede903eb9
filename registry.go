// registry.go: named cache instances with uniform administration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Names of the caches created by RegisterDefaults.
const (
	CacheTemplate   = "template"
	CachePrompt     = "prompt"
	CacheAIResponse = "ai_response"
	CachePDF        = "pdf"
	CacheGeneral    = "general"
)

// Registry holds independently configured caches under stable names.
// Caches of different value types live side by side; typed access goes
// through Lookup.
type Registry struct {
	mu     sync.RWMutex
	caches map[string]Instance
	config RegistryConfig
}

// NewRegistry creates an empty registry.
func NewRegistry(config RegistryConfig) *Registry {
	_ = config.Validate()
	return &Registry{
		caches: make(map[string]Instance),
		config: config,
	}
}

// Register creates a cache from config and adds it under config.Name.
// Logger, clock and metrics left nil in config are inherited from the registry.
func Register[V any](r *Registry, config CacheConfig) (*Cache[V], error) {
	if config.Name == "" {
		return nil, NewErrInvalidConfig("name", "")
	}
	if config.Logger == nil {
		config.Logger = r.config.Logger
	}
	if config.TimeProvider == nil {
		config.TimeProvider = r.config.TimeProvider
	}
	if config.MetricsCollector == nil {
		config.MetricsCollector = r.config.MetricsCollector
	}

	c, err := NewCache[V](config)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caches[config.Name]; exists {
		return nil, NewErrDuplicateCache(config.Name)
	}
	r.caches[config.Name] = c
	r.config.Logger.Debug("cache registered", "cache", config.Name, "max_size", c.maxSize, "ttl", config.TTL.String())
	return c, nil
}

// Lookup returns the typed cache registered under name.
func Lookup[V any](r *Registry, name string) (*Cache[V], error) {
	inst, err := r.Instance(name)
	if err != nil {
		return nil, err
	}
	c, ok := inst.(*Cache[V])
	if !ok {
		var want V
		return nil, NewErrCacheTypeMismatch(name, want, inst)
	}
	return c, nil
}

// MustLookup is like Lookup but panics on error. Intended for startup wiring.
func MustLookup[V any](r *Registry, name string) *Cache[V] {
	c, err := Lookup[V](r, name)
	if err != nil {
		panic(err)
	}
	return c
}

// RegisterDefaults adds the caches used by the resume backend.
func RegisterDefaults(r *Registry) error {
	if _, err := Register[string](r, CacheConfig{Name: CacheTemplate, MaxSize: 50, TTL: time.Hour}); err != nil {
		return err
	}
	if _, err := Register[string](r, CacheConfig{Name: CachePrompt, MaxSize: 100, TTL: 30 * time.Minute}); err != nil {
		return err
	}
	if _, err := Register[string](r, CacheConfig{Name: CacheAIResponse, MaxSize: 50, TTL: 15 * time.Minute}); err != nil {
		return err
	}
	if _, err := Register[[]byte](r, CacheConfig{Name: CachePDF, MaxSize: 20, TTL: time.Hour}); err != nil {
		return err
	}
	if _, err := Register[any](r, CacheConfig{Name: CacheGeneral, MaxSize: 100, TTL: 10 * time.Minute}); err != nil {
		return err
	}
	return nil
}

// Instance returns the cache registered under name.
// Unknown names fail with KEYSTONE_UNKNOWN_CACHE.
func (r *Registry) Instance(name string) (Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.caches[name]
	if !ok {
		return nil, NewErrUnknownCache(name)
	}
	return inst, nil
}

// Clear empties one cache.
func (r *Registry) Clear(name string) error {
	inst, err := r.Instance(name)
	if err != nil {
		return err
	}
	inst.Clear()
	r.config.Logger.Info("cache cleared", "cache", name)
	return nil
}

// ClearAll empties every registered cache.
func (r *Registry) ClearAll() {
	for _, inst := range r.snapshot() {
		inst.Clear()
	}
	r.config.Logger.Info("all caches cleared")
}

// StatsAll returns the stats of every cache keyed by name.
func (r *Registry) StatsAll() map[string]CacheStats {
	out := make(map[string]CacheStats)
	for _, inst := range r.snapshot() {
		out[inst.Name()] = inst.Stats()
	}
	return out
}

// SetTTL changes the TTL of one cache.
func (r *Registry) SetTTL(name string, ttl time.Duration) error {
	inst, err := r.Instance(name)
	if err != nil {
		return err
	}
	inst.SetTTL(ttl)
	return nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// RemoveExpired sweeps every cache and returns the total number of removed entries.
func (r *Registry) RemoveExpired() int {
	total := 0
	for _, inst := range r.snapshot() {
		total += inst.RemoveExpired()
	}
	return total
}

// StartJanitor sweeps expired entries every JanitorInterval until ctx is done.
func (r *Registry) StartJanitor(ctx context.Context) {
	t := time.NewTicker(r.config.JanitorInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := r.RemoveExpired(); n > 0 {
					r.config.Logger.Debug("expired cache entries removed", "count", n)
				}
			}
		}
	}()
}

func (r *Registry) snapshot() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Instance, 0, len(r.caches))
	for _, inst := range r.caches {
		out = append(out, inst)
	}
	return out
}
