// config.go: configuration for keystone components
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"time"

	"github.com/agilira/go-timecache"
)

// CacheConfig holds configuration parameters for a single cache instance.
type CacheConfig struct {
	// Name identifies the cache in a Registry and in metrics.
	Name string

	// MaxSize is the maximum number of entries the cache can hold.
	// Must be > 0. Default: DefaultMaxSize.
	MaxSize int

	// TTL is the time-to-live for cache entries.
	// If 0, entries never expire. Default: 0 (no expiration).
	TTL time.Duration

	// Logger is used for debugging and monitoring.
	// If nil, NoOpLogger is used.
	Logger Logger

	// TimeProvider provides current time for TTL calculations.
	// If nil, a go-timecache backed implementation is used.
	TimeProvider TimeProvider

	// MetricsCollector receives per-operation metrics.
	// If nil, NoOpMetricsCollector is used.
	MetricsCollector MetricsCollector

	// OnEvict is called when an entry is evicted to make room.
	// This callback runs under the cache lock and must be fast and non-blocking.
	OnEvict func(key string)
}

// Validate checks configuration parameters and applies sensible defaults.
// Returns an error only when TTL is negative.
//
// Default values applied:
//   - MaxSize: DefaultMaxSize if <= 0
//   - Logger: NoOpLogger{} if nil
//   - TimeProvider: systemTimeProvider{} if nil
//   - MetricsCollector: NoOpMetricsCollector{} if nil
func (c *CacheConfig) Validate() error {
	if c.TTL < 0 {
		return NewErrInvalidConfig("ttl", c.TTL.String())
	}
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultMaxSize
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}
	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}
	return nil
}

// RegistryConfig holds the settings shared by every cache a Registry creates.
type RegistryConfig struct {
	// Logger, TimeProvider and MetricsCollector are inherited by registered
	// caches whose own CacheConfig leaves them nil.
	Logger           Logger
	TimeProvider     TimeProvider
	MetricsCollector MetricsCollector

	// JanitorInterval is how often StartJanitor sweeps expired entries.
	// Default: 1 minute.
	JanitorInterval time.Duration
}

// Validate applies defaults.
func (c *RegistryConfig) Validate() error {
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}
	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = time.Minute
	}
	return nil
}

// AdmissionConfig configures an AdmissionController.
type AdmissionConfig struct {
	// MaxRequests is the number of admissions allowed per client per window.
	// Default: DefaultMaxRequests.
	MaxRequests int

	// Window is the length of the sliding window. Default: DefaultWindow.
	Window time.Duration

	// Retention is how long a client with an empty log is kept before a
	// sweep removes it. Default: DefaultRetention.
	Retention time.Duration

	// SweepInterval is how often StartJanitor calls Sweep.
	// Default: DefaultSweepInterval.
	SweepInterval time.Duration

	Logger       Logger
	TimeProvider TimeProvider
}

// Validate applies defaults.
func (c *AdmissionConfig) Validate() error {
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.TimeProvider == nil {
		c.TimeProvider = &systemTimeProvider{}
	}
	return nil
}

// BatchConfig configures a BatchCoordinator.
type BatchConfig struct {
	// MaxWorkers bounds the number of units running at once across every
	// call made through the coordinator. Default: DefaultMaxWorkers.
	MaxWorkers int

	// BatchSize is the chunk size RunChunked uses when given <= 0.
	// Default: DefaultBatchSize.
	BatchSize int

	// UnitTimeout bounds each unit. Zero means no per-unit deadline.
	UnitTimeout time.Duration

	Logger Logger
}

// Validate applies defaults.
func (c *BatchConfig) Validate() error {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.UnitTimeout < 0 {
		c.UnitTimeout = 0
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	return nil
}

// DebounceConfig configures a DebounceCoordinator.
type DebounceConfig struct {
	// Delay is how long a scheduled computation waits before it starts.
	// Default: DefaultDebounceDelay.
	Delay time.Duration

	// ResultCacheSize and ResultCacheTTL size the results cache when the
	// coordinator creates its own. Ignored when a cache is supplied.
	ResultCacheSize int
	ResultCacheTTL  time.Duration

	Logger Logger
}

// Validate applies defaults.
func (c *DebounceConfig) Validate() error {
	if c.Delay <= 0 {
		c.Delay = DefaultDebounceDelay
	}
	if c.ResultCacheSize <= 0 {
		c.ResultCacheSize = DefaultResultCacheSize
	}
	if c.ResultCacheTTL <= 0 {
		c.ResultCacheTTL = DefaultResultCacheTTL
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	return nil
}

// BatcherConfig configures a RequestBatcher.
type BatcherConfig struct {
	// MaxBatch flushes the queue as soon as it holds this many submissions.
	// Default: DefaultBatchSize.
	MaxBatch int

	// Delay flushes a non-empty queue this long after its first submission.
	// Default: DefaultDebounceDelay.
	Delay time.Duration

	Logger Logger
}

// Validate applies defaults.
func (c *BatcherConfig) Validate() error {
	if c.MaxBatch <= 0 {
		c.MaxBatch = DefaultBatchSize
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDebounceDelay
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	return nil
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	// IndependentTypes lists the fix types that may run concurrently when
	// a Fix does not carry an explicit Kind. Default: grammar, keyword, format.
	IndependentTypes []string

	// TrackedListFields are the top-level list fields whose new items are
	// counted in RunMetrics.ItemsAdded. Default: skills.
	TrackedListFields []string

	Logger Logger
}

// Validate applies defaults.
func (c *OrchestratorConfig) Validate() error {
	if len(c.IndependentTypes) == 0 {
		c.IndependentTypes = []string{"grammar", "keyword", "format"}
	}
	if len(c.TrackedListFields) == 0 {
		c.TrackedListFields = []string{"skills"}
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	return nil
}

// systemTimeProvider is the default time provider using go-timecache.
type systemTimeProvider struct{}

func (t *systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}
