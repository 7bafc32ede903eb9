// cache_test.go: unit tests for Cache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestCache(t *testing.T, maxSize int, ttl time.Duration, clock TimeProvider) *Cache[string] {
	t.Helper()
	c, err := NewCache[string](CacheConfig{Name: "test", MaxSize: maxSize, TTL: ttl, TimeProvider: clock})
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	return c
}

// TestNewCache_Defaults tests default configuration
func TestNewCache_Defaults(t *testing.T) {
	c, err := NewCache[int](CacheConfig{})
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	st := c.Stats()
	if st.MaxSize != DefaultMaxSize {
		t.Errorf("Expected max size %d, got %d", DefaultMaxSize, st.MaxSize)
	}
	if st.TTL != 0 {
		t.Errorf("Expected no TTL, got %v", st.TTL)
	}
}

// TestNewCache_NegativeTTL tests that a negative TTL is rejected
func TestNewCache_NegativeTTL(t *testing.T) {
	_, err := NewCache[int](CacheConfig{TTL: -time.Second})
	if !IsConfigError(err) {
		t.Errorf("Expected config error, got %v", err)
	}
}

// TestCache_SetGet tests basic storage and overwrite
func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)

	c.Set("k", "v1")
	if v, ok := c.Get("k"); !ok || v != "v1" {
		t.Errorf("Expected 'v1', got %q (found=%v)", v, ok)
	}

	c.Set("k", "v2")
	if v, _ := c.Get("k"); v != "v2" {
		t.Errorf("Expected 'v2', got %q", v)
	}
	if c.Len() != 1 {
		t.Errorf("Expected size 1, got %d", c.Len())
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Expected miss for absent key")
	}
}

// TestCache_LRUEviction tests that the least recently used entry goes first
func TestCache_LRUEviction(t *testing.T) {
	var evicted []string
	c, err := NewCache[string](CacheConfig{
		Name:    "lru",
		MaxSize: 2,
		OnEvict: func(key string) { evicted = append(evicted, key) },
	})
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("Expected 'b' to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("Expected 'a' to survive")
	}
	if diff := cmp.Diff([]string{"b"}, evicted); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Expected 1 eviction, got %d", got)
	}
}

// TestCache_OverwriteRefreshesRecency tests that Set on an existing key moves it to the back
func TestCache_OverwriteRefreshesRecency(t *testing.T) {
	c := newTestCache(t, 3, 0, nil)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Set("a", "1b")

	if diff := cmp.Diff([]string{"b", "c", "a"}, c.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	c.Set("d", "4")
	if _, ok := c.Get("b"); ok {
		t.Error("Expected 'b' evicted after overwrite of 'a'")
	}
}

// TestCache_SizeBound tests that size never exceeds MaxSize
func TestCache_SizeBound(t *testing.T) {
	c := newTestCache(t, 5, 0, nil)
	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
		if c.Len() > 5 {
			t.Fatalf("size %d exceeds bound after %d inserts", c.Len(), i+1)
		}
	}
	if diff := cmp.Diff([]string{"k45", "k46", "k47", "k48", "k49"}, c.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

// TestCache_TTL tests lazy expiration with a strict age comparison
func TestCache_TTL(t *testing.T) {
	clock := newMockTime()
	c := newTestCache(t, 10, time.Minute, clock)

	c.Set("k", "v")

	clock.Advance(time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Error("Expected entry exactly TTL old to be valid")
	}

	clock.Advance(time.Nanosecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry older than TTL to miss")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry removed, size %d", c.Len())
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Expirations != 1 {
		t.Errorf("Expected 1 hit, 1 miss, 1 expiration, got %+v", st)
	}
}

// TestCache_SetResetsAge tests that overwriting an entry restarts its TTL
func TestCache_SetResetsAge(t *testing.T) {
	clock := newMockTime()
	c := newTestCache(t, 10, time.Minute, clock)

	c.Set("k", "v1")
	clock.Advance(50 * time.Second)
	c.Set("k", "v2")
	clock.Advance(50 * time.Second)

	if v, ok := c.Get("k"); !ok || v != "v2" {
		t.Errorf("Expected fresh 'v2', got %q (found=%v)", v, ok)
	}
}

// TestCache_RemoveExpired tests the active sweep
func TestCache_RemoveExpired(t *testing.T) {
	clock := newMockTime()
	metrics := newRecordingMetrics()
	c, err := NewCache[string](CacheConfig{Name: "sweep", MaxSize: 10, TTL: time.Minute, TimeProvider: clock, MetricsCollector: metrics})
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	c.Set("old1", "v")
	c.Set("old2", "v")
	clock.Advance(2 * time.Minute)
	c.Set("new", "v")

	if n := c.RemoveExpired(); n != 2 {
		t.Errorf("Expected 2 removed, got %d", n)
	}
	if diff := cmp.Diff([]string{"new"}, c.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if metrics.expirations["sweep"] != 2 {
		t.Errorf("Expected 2 expiration metrics, got %d", metrics.expirations["sweep"])
	}
}

// TestCache_RemoveExpired_NoTTL tests that a cache without TTL never sweeps
func TestCache_RemoveExpired_NoTTL(t *testing.T) {
	clock := newMockTime()
	c := newTestCache(t, 10, 0, clock)
	c.Set("k", "v")
	clock.Advance(1000 * time.Hour)
	if n := c.RemoveExpired(); n != 0 {
		t.Errorf("Expected nothing removed, got %d", n)
	}
}

// TestCache_SetTTL tests changing the TTL of live entries
func TestCache_SetTTL(t *testing.T) {
	clock := newMockTime()
	c := newTestCache(t, 10, time.Hour, clock)
	c.Set("k", "v")
	clock.Advance(2 * time.Minute)

	c.SetTTL(time.Minute)
	if c.TTL() != time.Minute {
		t.Errorf("Expected TTL 1m, got %v", c.TTL())
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire under the shorter TTL")
	}

	c.SetTTL(-time.Second)
	if c.TTL() != 0 {
		t.Errorf("Expected negative TTL clamped to 0, got %v", c.TTL())
	}
}

// TestCache_Delete tests removal
func TestCache_Delete(t *testing.T) {
	c := newTestCache(t, 10, 0, nil)
	c.Set("k", "v")
	if !c.Delete("k") {
		t.Error("Expected Delete to report presence")
	}
	if c.Delete("k") {
		t.Error("Expected second Delete to report absence")
	}
}

// TestCache_Clear tests that Clear empties the cache and resets counters
func TestCache_Clear(t *testing.T) {
	c := newTestCache(t, 2, 0, nil)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Get("c")
	c.Get("zzz")

	c.Clear()
	st := c.Stats()
	want := CacheStats{Name: "test", MaxSize: 2}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("Stats() after Clear mismatch (-want +got):\n%s", diff)
	}
}

// TestCacheStats_HitRate tests hit rate arithmetic and formatting
func TestCacheStats_HitRate(t *testing.T) {
	tests := []struct {
		hits, misses uint64
		want         string
	}{
		{0, 0, "0.00%"},
		{2, 1, "66.67%"},
		{1, 1, "50.00%"},
		{3, 0, "100.00%"},
	}
	for _, tt := range tests {
		st := CacheStats{Hits: tt.hits, Misses: tt.misses}
		if got := st.HitRateString(); got != tt.want {
			t.Errorf("hits=%d misses=%d: expected %s, got %s", tt.hits, tt.misses, tt.want, got)
		}
	}
}

// TestCache_Metrics tests that operations reach the collector under the cache name
func TestCache_Metrics(t *testing.T) {
	metrics := newRecordingMetrics()
	c, err := NewCache[string](CacheConfig{Name: "m", MaxSize: 1, MetricsCollector: metrics})
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	c.Set("a", "1")
	c.Get("a")
	c.Get("b")
	c.Set("b", "2")
	c.Delete("b")

	if metrics.hits["m"] != 1 || metrics.misses["m"] != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d/%d", metrics.hits["m"], metrics.misses["m"])
	}
	if metrics.sets["m"] != 2 || metrics.deletes["m"] != 1 || metrics.evictions["m"] != 1 {
		t.Errorf("Unexpected counts sets=%d deletes=%d evictions=%d", metrics.sets["m"], metrics.deletes["m"], metrics.evictions["m"])
	}
}

// TestCache_Concurrent tests that counters stay consistent under contention
func TestCache_Concurrent(t *testing.T) {
	c := newTestCache(t, 50, 0, nil)
	const goroutines, ops = 16, 500

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("k%d", (g*ops+i)%100)
				if i%2 == 0 {
					c.Set(key, "v")
				} else {
					c.Get(key)
				}
			}
		}(g)
	}
	wg.Wait()

	st := c.Stats()
	if st.Size > 50 {
		t.Errorf("Expected size <= 50, got %d", st.Size)
	}
	if got := st.Hits + st.Misses; got != goroutines*ops/2 {
		t.Errorf("Expected %d lookups counted, got %d", goroutines*ops/2, got)
	}
}
