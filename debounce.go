// debounce.go: per-key debounced computations with a results cache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// debounceFlight is one scheduled or running computation.
// started, superseded and timer are guarded by the coordinator mutex; val
// and err are written once before done is closed.
type debounceFlight[V any] struct {
	done       chan struct{}
	val        V
	err        error
	timer      *time.Timer
	started    bool
	superseded bool
}

// DebounceCoordinator maps a key to at most one pending computation.
// Calls for a key that arrive while its computation is scheduled or running
// wait for that computation instead of starting another one. Successful
// results are kept in a Cache and returned directly until they expire or
// are cleared.
type DebounceCoordinator[V any] struct {
	mu       sync.Mutex
	inflight map[string]*debounceFlight[V]
	closed   bool

	delay   atomic.Int64
	results *Cache[V]
	logger  Logger
}

// NewDebounceCoordinator creates a coordinator. If results is nil a private
// cache sized by config is created.
func NewDebounceCoordinator[V any](config DebounceConfig, results *Cache[V]) (*DebounceCoordinator[V], error) {
	_ = config.Validate()
	if results == nil {
		var err error
		results, err = NewCache[V](CacheConfig{
			Name:    "debounce",
			MaxSize: config.ResultCacheSize,
			TTL:     config.ResultCacheTTL,
			Logger:  config.Logger,
		})
		if err != nil {
			return nil, err
		}
	}
	d := &DebounceCoordinator[V]{
		inflight: make(map[string]*debounceFlight[V]),
		results:  results,
		logger:   config.Logger,
	}
	d.delay.Store(int64(config.Delay))
	return d, nil
}

// Run returns the result for key.
//
// Without force, a cached result is returned immediately. Otherwise the
// caller joins the computation already scheduled or running for key, or
// schedules compute to start after the debounce delay.
//
// With force, a still-pending timer for key is cancelled and compute runs
// at once; callers that were waiting on the cancelled timer receive the
// forced result. A computation that has already started is never reused
// by a forced call: it is superseded, its result is not cached, and later
// callers join the forced computation instead.
//
// ctx only bounds how long this caller waits. Once started, compute runs
// to completion with a context detached from cancellation.
func (d *DebounceCoordinator[V]) Run(ctx context.Context, key string, compute func(context.Context) (V, error), force bool) (V, error) {
	if !force {
		if v, ok := d.results.Get(key); ok {
			return v, nil
		}
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		var zero V
		return zero, NewErrCoordinatorClosed(key)
	}

	runCtx := context.WithoutCancel(ctx)
	existing := d.inflight[key]

	if force {
		f := existing
		switch {
		case f != nil && !f.started && f.timer.Stop():
			f.started = true
			d.logger.Debug("debounce timer cancelled by forced run", "key", key)
		case f == nil:
			f = &debounceFlight[V]{done: make(chan struct{}), started: true}
			d.inflight[key] = f
		default:
			// the running computation keeps its waiters but loses the key
			existing.superseded = true
			f = &debounceFlight[V]{done: make(chan struct{}), started: true}
			d.inflight[key] = f
			d.logger.Debug("running computation superseded by forced run", "key", key)
		}
		d.mu.Unlock()
		go d.execute(runCtx, key, f, compute)
		return d.wait(ctx, f)
	}

	if existing != nil {
		d.mu.Unlock()
		return d.wait(ctx, existing)
	}

	f := &debounceFlight[V]{done: make(chan struct{})}
	d.inflight[key] = f
	f.timer = time.AfterFunc(time.Duration(d.delay.Load()), func() {
		d.mu.Lock()
		if f.started {
			d.mu.Unlock()
			return
		}
		f.started = true
		d.mu.Unlock()
		d.execute(runCtx, key, f, compute)
	})
	d.mu.Unlock()

	return d.wait(ctx, f)
}

func (d *DebounceCoordinator[V]) execute(ctx context.Context, key string, f *debounceFlight[V], compute func(context.Context) (V, error)) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				f.err = NewErrPanicRecovered("debounce:"+key, r)
			}
		}()
		f.val, f.err = compute(ctx)
	}()

	if f.err != nil {
		d.logger.Warn("debounced computation failed", "key", key, "error", f.err)
	}

	d.mu.Lock()
	if f.err == nil && !f.superseded {
		d.results.Set(key, f.val)
	}
	if d.inflight[key] == f {
		delete(d.inflight, key)
	}
	d.mu.Unlock()
	close(f.done)
}

func (d *DebounceCoordinator[V]) wait(ctx context.Context, f *debounceFlight[V]) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// ClearCache drops the cached result for key. Scheduled or running
// computations are not affected.
func (d *DebounceCoordinator[V]) ClearCache(key string) {
	d.results.Delete(key)
}

// ClearAll drops every cached result.
func (d *DebounceCoordinator[V]) ClearAll() {
	d.results.Clear()
}

// SetDelay changes the delay used for computations scheduled from now on.
func (d *DebounceCoordinator[V]) SetDelay(delay time.Duration) {
	if delay > 0 {
		d.delay.Store(int64(delay))
	}
}

// Pending returns the number of keys with a scheduled or running computation.
func (d *DebounceCoordinator[V]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// Close rejects new calls and cancels every computation that has not
// started yet; its waiters receive KEYSTONE_COORDINATOR_CLOSED. Running
// computations finish normally.
func (d *DebounceCoordinator[V]) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	for key, f := range d.inflight {
		if !f.started && f.timer.Stop() {
			f.started = true
			f.err = NewErrCoordinatorClosed(key)
			delete(d.inflight, key)
			close(f.done)
		}
	}
	return nil
}
