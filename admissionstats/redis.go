// redis.go: Redis-backed admission stats
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package admissionstats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agilira/keystone"
	"github.com/redis/go-redis/v9"
)

// RedisStore writes counters into Redis hashes, one pipeline per event:
//
//	<prefix>:total                 admitted / rejected, never expires
//	<prefix>:minute:<YYYYMMDDhhmm> admitted / rejected, expires after TTL
//	<prefix>:route                 "<METHOD path>:admitted" / ":rejected"
//	<prefix>:client:<id>           only with WithRedisTrackClients, expires after TTL
type RedisStore struct {
	rdb redis.Cmdable

	prefix       string
	ttl          time.Duration
	minuteBucket bool
	trackClients bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default: "keystone:admission".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithRedisTTL sets the expiry of bucket and client keys. Default: 24h.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

// WithRedisMinuteBuckets toggles the per-minute series. Default: on.
func WithRedisMinuteBuckets(on bool) RedisOption {
	return func(s *RedisStore) { s.minuteBucket = on }
}

// WithRedisTrackClients enables per-client hashes.
func WithRedisTrackClients(track bool) RedisOption {
	return func(s *RedisStore) { s.trackClients = track }
}

// NewRedisStore creates a store on rdb, which may be a client, a cluster
// client or a ring.
func NewRedisStore(rdb redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:          rdb,
		prefix:       "keystone:admission",
		ttl:          24 * time.Hour,
		minuteBucket: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record increments the counters for ev. A nil store or client is a no-op.
func (s *RedisStore) Record(ctx context.Context, ev keystone.AdmissionEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := fieldFor(ev.Allowed)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.minuteBucket {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if route := routeKey(ev); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", route+":"+field, 1)
	}

	if s.trackClients {
		if c := strings.TrimSpace(ev.Client); c != "" {
			clientKey := s.prefix + ":client:" + c
			pipe.HIncrBy(ctx, clientKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, clientKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Total reads the cumulative counters.
func (s *RedisStore) Total(ctx context.Context) (Counters, error) {
	vals, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return Counters{}, err
	}
	var c Counters
	if _, err := fmt.Sscan(valueOr(vals["admitted"]), &c.Admitted); err != nil {
		return Counters{}, err
	}
	if _, err := fmt.Sscan(valueOr(vals["rejected"]), &c.Rejected); err != nil {
		return Counters{}, err
	}
	return c, nil
}

func valueOr(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

func fieldFor(allowed bool) string {
	if allowed {
		return "admitted"
	}
	return "rejected"
}

func routeKey(ev keystone.AdmissionEvent) string {
	return strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Route))
}

var _ keystone.AdmissionStatsStore = (*RedisStore)(nil)
