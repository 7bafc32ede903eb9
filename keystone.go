// keystone.go: version and package-wide defaults
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package keystone

import "time"

const (
	// Version of the Keystone library
	Version = "v0.1.0-dev"

	// DefaultMaxSize is the default capacity of a cache instance
	DefaultMaxSize = 100

	// DefaultMaxRequests is the default number of admissions per window
	DefaultMaxRequests = 10

	// DefaultWindow is the default sliding window length
	DefaultWindow = 60 * time.Second

	// DefaultRetention is how long an idle client window is kept before a sweep drops it
	DefaultRetention = time.Hour

	// DefaultSweepInterval is how often the admission janitor runs
	DefaultSweepInterval = 5 * time.Minute

	// DefaultMaxWorkers bounds concurrently running work units
	DefaultMaxWorkers = 5

	// DefaultBatchSize is the chunk size used by RunChunked
	DefaultBatchSize = 10

	// DefaultDebounceDelay is how long a debounced computation waits before running
	DefaultDebounceDelay = 500 * time.Millisecond

	// DefaultResultCacheSize bounds the debounce results cache
	DefaultResultCacheSize = 100

	// DefaultResultCacheTTL is the time-to-live of debounced results
	DefaultResultCacheTTL = 10 * time.Minute
)
