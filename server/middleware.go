// middleware.go: admission control for HTTP handlers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/keystone"
)

// KeyFunc extracts the client identity from a request.
type KeyFunc func(r *http.Request) string

// AdmissionRecorder receives one call per admission decision.
// otel.Collector implements it.
type AdmissionRecorder interface {
	RecordAdmission(route string, allowed bool)
}

// MiddlewareOptions configures Admission.
type MiddlewareOptions struct {
	Controller *keystone.AdmissionController

	// Stats records every decision. Errors are logged and ignored.
	Stats keystone.AdmissionStatsStore

	// StatsTimeout bounds a single Stats.Record call. Default: 100ms.
	StatsTimeout time.Duration

	Recorder AdmissionRecorder

	// KeyFn defaults to ClientKey.
	KeyFn KeyFunc

	// Route labels metrics. Default: the request path.
	Route string

	Logger keystone.Logger
}

// ClientKey returns the first X-Forwarded-For entry, then X-Real-IP, then
// the host part of RemoteAddr, and "unknown" when all are empty.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}

// Admission rejects requests over the controller's limit with 429, a
// Retry-After header and a JSON detail. Admitted responses carry
// X-RateLimit-Limit and X-RateLimit-Remaining.
func Admission(opts MiddlewareOptions) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ClientKey
	}
	if opts.StatsTimeout <= 0 {
		opts.StatsTimeout = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = keystone.NoOpLogger{}
	}

	return func(next http.Handler) http.Handler {
		if opts.Controller == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := opts.KeyFn(r)
			dec := opts.Controller.Admit(client)

			route := opts.Route
			if route == "" {
				route = r.URL.Path
			}
			if opts.Recorder != nil {
				opts.Recorder.RecordAdmission(route, dec.Allowed)
			}
			if opts.Stats != nil {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), opts.StatsTimeout)
				err := opts.Stats.Record(ctx, keystone.AdmissionEvent{
					Client:  client,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Route:   route,
					At:      time.Now(),
				})
				cancel()
				if err != nil {
					opts.Logger.Warn("admission stats record failed", "route", route, "error", err)
				}
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				opts.Logger.Info("request rejected by admission control",
					"client", client, "route", route, "retry_after", dec.RetryAfterSeconds)
				w.Header().Set("Retry-After", strconv.Itoa(dec.RetryAfterSeconds))
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Detail: fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", dec.RetryAfterSeconds),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
