// memory.go: in-memory admission stats
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package admissionstats

import (
	"context"
	"sync"

	"github.com/agilira/keystone"
)

// Counters holds admitted and rejected totals.
type Counters struct {
	Admitted int64 `json:"admitted"`
	Rejected int64 `json:"rejected"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Admitted++
	} else {
		c.Rejected++
	}
}

// MemoryStore counts decisions in process memory. It never expires data.
type MemoryStore struct {
	mu       sync.Mutex
	total    Counters
	byRoute  map[string]Counters
	byClient map[string]Counters

	trackClients bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTrackClients enables per-client counters. Beware of cardinality.
func WithTrackClients(track bool) MemoryOption {
	return func(s *MemoryStore) { s.trackClients = track }
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		byRoute:  make(map[string]Counters),
		byClient: make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record counts ev.
func (s *MemoryStore) Record(_ context.Context, ev keystone.AdmissionEvent) error {
	route := routeKey(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)

	c := s.byRoute[route]
	c.add(ev.Allowed)
	s.byRoute[route] = c

	if s.trackClients && ev.Client != "" {
		k := s.byClient[ev.Client]
		k.add(ev.Allowed)
		s.byClient[ev.Client] = k
	}
	return nil
}

// Total returns the overall counters.
func (s *MemoryStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByRoute returns a copy of the per-route counters keyed by "METHOD path".
func (s *MemoryStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}

// ByClient returns a copy of the per-client counters.
func (s *MemoryStore) ByClient() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byClient))
	for k, v := range s.byClient {
		out[k] = v
	}
	return out
}

var _ keystone.AdmissionStatsStore = (*MemoryStore)(nil)
