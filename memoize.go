// memoize.go: explicit memoization on top of Cache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// flight is one in-progress computation. done is closed once val and err
// are final, which broadcasts to every waiter.
type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// GetOrCompute returns the cached value for key, or computes, caches and
// returns it. Concurrent misses on one key share a single computation.
// Errors are returned to every caller sharing the computation and are
// never cached.
func GetOrCompute[V any](c *Cache[V], key string, compute func() (V, error)) (V, error) {
	return GetOrComputeWithContext(context.Background(), c, key, func(context.Context) (V, error) {
		return compute()
	})
}

// GetOrComputeWithContext is like GetOrCompute but passes ctx to compute
// and lets waiters give up when their own ctx is done. A waiter leaving
// early does not stop the computation.
func GetOrComputeWithContext[V any](ctx context.Context, c *Cache[V], key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	f := &flight[V]{done: make(chan struct{})}
	actual, loaded := c.inflight.LoadOrStore(key, f)
	if loaded {
		other := actual.(*flight[V])
		select {
		case <-other.done:
			return other.val, other.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	defer func() {
		close(f.done)
		c.inflight.Delete(key)
	}()

	func() {
		defer func() {
			if r := recover(); r != nil {
				f.err = NewErrPanicRecovered("GetOrCompute:"+key, r)
			}
		}()
		f.val, f.err = compute(ctx)
	}()

	if f.err == nil {
		c.Set(key, f.val)
	}
	return f.val, f.err
}

// KeyOf derives a deterministic cache key from prefix and parts.
// Parts are JSON encoded (map keys come out sorted), hashed with xxhash
// and rendered as "prefix:<16 hex digits>".
func KeyOf(prefix string, parts ...interface{}) string {
	data, err := json.Marshal(parts)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", parts))
	}
	return fmt.Sprintf("%s:%016x", prefix, xxhash.Sum64(data))
}
