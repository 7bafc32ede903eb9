// interfaces.go: public interfaces for Keystone
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import "time"

// Instance is the type-erased view of a named cache held by a Registry.
// All methods must be safe for concurrent use.
type Instance interface {
	// Name returns the registry name of the cache.
	Name() string

	// Len returns the current number of entries.
	Len() int

	// Clear removes every entry and resets hit/miss counters.
	Clear()

	// Stats returns a snapshot of the cache counters.
	Stats() CacheStats

	// RemoveExpired drops every entry older than the TTL and returns
	// how many were removed.
	RemoveExpired() int

	// SetTTL changes the time-to-live applied to subsequent lookups.
	// Zero disables expiration.
	SetTTL(ttl time.Duration)
}

// Logger defines a minimal structured logging interface.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keyvals ...interface{})

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger is a logger that does nothing. Used as default to avoid nil checks.
type NoOpLogger struct{}

// Debug does nothing (no-op implementation).
func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}

// Info does nothing (no-op implementation).
func (NoOpLogger) Info(msg string, keyvals ...interface{}) {}

// Warn does nothing (no-op implementation).
func (NoOpLogger) Warn(msg string, keyvals ...interface{}) {}

// Error does nothing (no-op implementation).
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// TimeProvider provides current time. Injected so TTL and sliding-window
// logic can be driven by a fake clock in tests.
type TimeProvider interface {
	// Now returns the current time in nanoseconds since epoch.
	Now() int64
}

// MetricsCollector receives cache operation metrics.
// Implementations can send metrics to Prometheus, OpenTelemetry or any
// other backend. The cache name is passed on every call so one collector
// can serve a whole Registry.
//
// Thread-safety: all methods may be called concurrently.
type MetricsCollector interface {
	// RecordGet records a Get operation with its latency and hit/miss outcome.
	RecordGet(cache string, latencyNs int64, hit bool)

	// RecordSet records a Set operation with its latency.
	RecordSet(cache string, latencyNs int64)

	// RecordDelete records a Delete operation with its latency.
	RecordDelete(cache string, latencyNs int64)

	// RecordEviction records a capacity eviction.
	RecordEviction(cache string)

	// RecordExpiration records the removal of an expired entry.
	RecordExpiration(cache string)
}

// NoOpMetricsCollector is a no-op implementation of MetricsCollector.
type NoOpMetricsCollector struct{}

// RecordGet does nothing.
func (NoOpMetricsCollector) RecordGet(cache string, latencyNs int64, hit bool) {}

// RecordSet does nothing.
func (NoOpMetricsCollector) RecordSet(cache string, latencyNs int64) {}

// RecordDelete does nothing.
func (NoOpMetricsCollector) RecordDelete(cache string, latencyNs int64) {}

// RecordEviction does nothing.
func (NoOpMetricsCollector) RecordEviction(cache string) {}

// RecordExpiration does nothing.
func (NoOpMetricsCollector) RecordExpiration(cache string) {}
