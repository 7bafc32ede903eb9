// helpers_test.go: shared test doubles
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"sync"
	"sync/atomic"
	"time"
)

// mockTimeProvider is a manually advanced clock.
type mockTimeProvider struct {
	now atomic.Int64
}

func newMockTime() *mockTimeProvider {
	m := &mockTimeProvider{}
	m.now.Store(int64(time.Hour))
	return m
}

func (m *mockTimeProvider) Now() int64 {
	return m.now.Load()
}

func (m *mockTimeProvider) Advance(d time.Duration) {
	m.now.Add(int64(d))
}

// recordingMetrics counts MetricsCollector calls per cache.
type recordingMetrics struct {
	mu          sync.Mutex
	hits        map[string]int
	misses      map[string]int
	sets        map[string]int
	deletes     map[string]int
	evictions   map[string]int
	expirations map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		hits:        map[string]int{},
		misses:      map[string]int{},
		sets:        map[string]int{},
		deletes:     map[string]int{},
		evictions:   map[string]int{},
		expirations: map[string]int{},
	}
}

func (r *recordingMetrics) RecordGet(cache string, _ int64, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits[cache]++
	} else {
		r.misses[cache]++
	}
}

func (r *recordingMetrics) RecordSet(cache string, _ int64) {
	r.mu.Lock()
	r.sets[cache]++
	r.mu.Unlock()
}

func (r *recordingMetrics) RecordDelete(cache string, _ int64) {
	r.mu.Lock()
	r.deletes[cache]++
	r.mu.Unlock()
}

func (r *recordingMetrics) RecordEviction(cache string) {
	r.mu.Lock()
	r.evictions[cache]++
	r.mu.Unlock()
}

func (r *recordingMetrics) RecordExpiration(cache string) {
	r.mu.Lock()
	r.expirations[cache]++
	r.mu.Unlock()
}

// capturingLogger keeps every message it receives.
type capturingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *capturingLogger) add(level, msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, level+": "+msg)
	l.mu.Unlock()
}

func (l *capturingLogger) Debug(msg string, _ ...interface{}) { l.add("debug", msg) }
func (l *capturingLogger) Info(msg string, _ ...interface{})  { l.add("info", msg) }
func (l *capturingLogger) Warn(msg string, _ ...interface{})  { l.add("warn", msg) }
func (l *capturingLogger) Error(msg string, _ ...interface{}) { l.add("error", msg) }

func (l *capturingLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}
