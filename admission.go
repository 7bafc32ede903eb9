// admission.go: sliding-window-log admission control
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// clientWindow is the timestamp log of one client, oldest first.
// removed is set by Sweep under mu so a concurrent Admit holding a stale
// pointer retries against a fresh window instead of writing into a dead one.
type clientWindow struct {
	mu        sync.Mutex
	stamps    []int64
	lastStamp int64
	removed   bool
}

// prune drops every stamp older than cutoff without growing the backing array.
func (w *clientWindow) prune(cutoff int64) {
	i := 0
	for i < len(w.stamps) && w.stamps[i] < cutoff {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(w.stamps, w.stamps[i:])
	w.stamps = w.stamps[:n]
}

// Decision is the outcome of one admission check.
type Decision struct {
	Client  string
	Allowed bool

	// Limit is the configured number of requests per window.
	Limit int

	// Remaining is how many more requests the client may make in the current window.
	Remaining int

	// RetryAfter is set on rejection. The client must wait at least this long.
	RetryAfter        time.Duration
	RetryAfterSeconds int
}

// Err returns nil for an admitted request and a KEYSTONE_ADMISSION_REJECTED
// error carrying retry_after otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return NewErrAdmissionRejected(d.Client, d.RetryAfterSeconds)
}

// AdmissionEvent describes one admission decision for stats stores.
type AdmissionEvent struct {
	Client  string
	Allowed bool
	Method  string
	Route   string
	At      time.Time
}

// AdmissionStatsStore persists admission decisions.
// Callers treat Record as best-effort and never fail a request on its error.
type AdmissionStatsStore interface {
	Record(ctx context.Context, ev AdmissionEvent) error
}

// AdmissionController admits at most MaxRequests per client within any
// trailing Window. Each client has its own lock; different clients never
// contend.
type AdmissionController struct {
	clients sync.Map // client id -> *clientWindow

	maxRequests atomic.Int64
	windowNanos atomic.Int64

	retention     time.Duration
	sweepInterval time.Duration
	clock         TimeProvider
	logger        Logger
}

// NewAdmissionController creates a controller. Zero config fields get defaults.
func NewAdmissionController(config AdmissionConfig) *AdmissionController {
	_ = config.Validate()
	a := &AdmissionController{
		retention:     config.Retention,
		sweepInterval: config.SweepInterval,
		clock:         config.TimeProvider,
		logger:        config.Logger,
	}
	a.maxRequests.Store(int64(config.MaxRequests))
	a.windowNanos.Store(int64(config.Window))
	return a
}

// Admit runs the prune-check-append sequence for client atomically.
func (a *AdmissionController) Admit(client string) Decision {
	limit := int(a.maxRequests.Load())
	window := a.windowNanos.Load()

	for {
		w := a.windowFor(client)
		w.mu.Lock()
		if w.removed {
			w.mu.Unlock()
			continue
		}

		// read under the lock so stamps stay in ascending order
		now := a.clock.Now()
		if now < w.lastStamp {
			now = w.lastStamp
		}

		w.prune(now - window)
		if len(w.stamps) < limit {
			w.stamps = append(w.stamps, now)
			w.lastStamp = now
			remaining := limit - len(w.stamps)
			w.mu.Unlock()
			return Decision{Client: client, Allowed: true, Limit: limit, Remaining: remaining}
		}

		oldest := w.stamps[0]
		w.mu.Unlock()

		secs := retryAfterSeconds(window, now-oldest)
		a.logger.Debug("admission rejected", "client", client, "retry_after", secs)
		return Decision{
			Client:            client,
			Allowed:           false,
			Limit:             limit,
			RetryAfter:        time.Duration(secs) * time.Second,
			RetryAfterSeconds: secs,
		}
	}
}

// retryAfterSeconds is ceil(window - elapsed) in whole seconds, plus one.
func retryAfterSeconds(window, elapsed int64) int {
	wait := float64(window-elapsed) / float64(time.Second)
	if wait < 0 {
		wait = 0
	}
	return int(math.Ceil(wait)) + 1
}

// SetLimits replaces the limits applied to subsequent checks.
// Non-positive values leave the current setting unchanged.
func (a *AdmissionController) SetLimits(maxRequests int, window time.Duration) {
	if maxRequests > 0 {
		a.maxRequests.Store(int64(maxRequests))
	}
	if window > 0 {
		a.windowNanos.Store(int64(window))
	}
	a.logger.Info("admission limits updated", "max_requests", a.maxRequests.Load(), "window", time.Duration(a.windowNanos.Load()).String())
}

// Limits returns the current limits.
func (a *AdmissionController) Limits() (int, time.Duration) {
	return int(a.maxRequests.Load()), time.Duration(a.windowNanos.Load())
}

// Reset forgets client entirely.
func (a *AdmissionController) Reset(client string) {
	if v, ok := a.clients.LoadAndDelete(client); ok {
		w := v.(*clientWindow)
		w.mu.Lock()
		w.removed = true
		w.mu.Unlock()
	}
}

// Clients returns the number of tracked clients.
func (a *AdmissionController) Clients() int {
	n := 0
	a.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep prunes every client and removes those whose log has been empty for
// longer than the retention period. Returns the number of removed clients.
func (a *AdmissionController) Sweep() int {
	now := a.clock.Now()
	window := a.windowNanos.Load()
	retention := int64(a.retention)
	removed := 0

	a.clients.Range(func(key, value any) bool {
		w := value.(*clientWindow)
		w.mu.Lock()
		w.prune(now - window)
		// the log became empty once its newest stamp left the window
		if len(w.stamps) == 0 && now-(w.lastStamp+window) > retention {
			w.removed = true
			a.clients.CompareAndDelete(key, w)
			removed++
		}
		w.mu.Unlock()
		return true
	})

	if removed > 0 {
		a.logger.Debug("idle admission clients swept", "removed", removed)
	}
	return removed
}

// StartJanitor calls Sweep every SweepInterval until ctx is done.
func (a *AdmissionController) StartJanitor(ctx context.Context) {
	t := time.NewTicker(a.sweepInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				a.Sweep()
			}
		}
	}()
}

func (a *AdmissionController) windowFor(client string) *clientWindow {
	if v, ok := a.clients.Load(client); ok {
		return v.(*clientWindow)
	}
	v, _ := a.clients.LoadOrStore(client, &clientWindow{})
	return v.(*clientWindow)
}
