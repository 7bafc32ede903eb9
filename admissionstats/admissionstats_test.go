// admissionstats_test.go: tests for admission stats stores
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package admissionstats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agilira/keystone"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

// TestMemoryStore_Record tests totals and per-route counters
func TestMemoryStore_Record(t *testing.T) {
	s := NewMemoryStore(WithTrackClients(true))
	ctx := context.Background()

	events := []keystone.AdmissionEvent{
		{Client: "10.0.0.1", Allowed: true, Method: "POST", Route: "/api/auto-fix"},
		{Client: "10.0.0.1", Allowed: false, Method: "POST", Route: "/api/auto-fix"},
		{Client: "10.0.0.2", Allowed: true, Method: "GET", Route: "/api/cache/stats"},
	}
	for _, ev := range events {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	if got, want := s.Total(), (Counters{Admitted: 2, Rejected: 1}); got != want {
		t.Errorf("Expected total %+v, got %+v", want, got)
	}

	wantRoutes := map[string]Counters{
		"POST /api/auto-fix":   {Admitted: 1, Rejected: 1},
		"GET /api/cache/stats": {Admitted: 1},
	}
	if diff := cmp.Diff(wantRoutes, s.ByRoute()); diff != "" {
		t.Errorf("ByRoute() mismatch (-want +got):\n%s", diff)
	}

	wantClients := map[string]Counters{
		"10.0.0.1": {Admitted: 1, Rejected: 1},
		"10.0.0.2": {Admitted: 1},
	}
	if diff := cmp.Diff(wantClients, s.ByClient()); diff != "" {
		t.Errorf("ByClient() mismatch (-want +got):\n%s", diff)
	}
}

// TestMemoryStore_NoClientTracking tests that clients are not tracked by default
func TestMemoryStore_NoClientTracking(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Record(context.Background(), keystone.AdmissionEvent{Client: "c", Allowed: true})
	if n := len(s.ByClient()); n != 0 {
		t.Errorf("Expected no client counters, got %d", n)
	}
}

// TestMemoryStore_Concurrent tests concurrent recording
func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Record(context.Background(), keystone.AdmissionEvent{Allowed: i%2 == 0, Route: "/x"})
		}(i)
	}
	wg.Wait()

	if got := s.Total(); got.Admitted != 25 || got.Rejected != 25 {
		t.Errorf("Expected 25/25, got %+v", got)
	}
}

// TestRedisStore_NilClient tests that a store without a client is a no-op
func TestRedisStore_NilClient(t *testing.T) {
	var s *RedisStore
	if err := s.Record(context.Background(), keystone.AdmissionEvent{Allowed: true}); err != nil {
		t.Errorf("Expected nil error from nil store, got %v", err)
	}
	if err := NewRedisStore(nil).Record(context.Background(), keystone.AdmissionEvent{Allowed: true}); err != nil {
		t.Errorf("Expected nil error without client, got %v", err)
	}
}

// TestRedisStore_Unreachable tests that connection errors are reported to the caller
func TestRedisStore_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	s := NewRedisStore(rdb, WithRedisPrefix("test:"), WithRedisTTL(time.Minute), WithRedisTrackClients(true))
	if s.prefix != "test" {
		t.Errorf("Expected trimmed prefix 'test', got %q", s.prefix)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.Record(ctx, keystone.AdmissionEvent{Client: "c", Allowed: false, Method: "POST", Route: "/api/auto-fix"})
	if err == nil {
		t.Error("Expected error for unreachable redis")
	}
}

// TestRouteKey tests route key formatting
func TestRouteKey(t *testing.T) {
	tests := []struct {
		ev   keystone.AdmissionEvent
		want string
	}{
		{keystone.AdmissionEvent{Method: "POST", Route: "/a"}, "POST /a"},
		{keystone.AdmissionEvent{Route: "/a"}, "/a"},
		{keystone.AdmissionEvent{}, ""},
	}
	for _, tt := range tests {
		if got := routeKey(tt.ev); got != tt.want {
			t.Errorf("routeKey(%+v) = %q, want %q", tt.ev, got, tt.want)
		}
	}
}
