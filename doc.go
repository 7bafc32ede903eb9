// Package keystone provides the caching, admission-control and orchestration
// layer of a resume-analysis backend that calls a slow, rate-limited
// text-generation service.
//
// # Overview
//
// The package is process-local. Every component is an explicit object
// constructed once at startup and passed to whoever needs it:
//
//   - Cache[V]: bounded LRU cache with optional TTL and hit/miss counters
//   - Registry: named caches with uniform stats and clear operations
//   - AdmissionController: sliding-window-log rate limiter keyed by client
//   - DebounceCoordinator[V]: collapses repeated calls for one key into one run
//   - BatchCoordinator: bounded parallel execution with per-unit failure isolation
//   - RequestBatcher[I, O]: groups submissions into one batch call, one result slot each
//   - Orchestrator: sequential dependent stages, parallel independent stages, deep merge
//
// # Quick Start
//
//	reg := keystone.NewRegistry(keystone.RegistryConfig{})
//	if err := keystone.RegisterDefaults(reg); err != nil {
//	    return err
//	}
//
//	prompts, err := keystone.Lookup[string](reg, "prompt")
//	if err != nil {
//	    return err
//	}
//
//	text, err := keystone.GetOrCompute(prompts, keystone.KeyOf("opt_prompt", req), func() (string, error) {
//	    return render(req)
//	})
//
// # Admission Control
//
// The controller keeps one timestamp log per client. Each client has its own
// lock, so clients never contend with each other:
//
//	ac := keystone.NewAdmissionController(keystone.AdmissionConfig{
//	    MaxRequests: 10,
//	    Window:      time.Minute,
//	})
//	if d := ac.Admit(clientIP); !d.Allowed {
//	    // reply 429 with Retry-After: d.RetryAfterSeconds
//	}
//
// # Orchestration
//
// Dependent fixes run one after another, each seeing the previous output.
// Independent fixes then run concurrently on private copies and are merged
// back with DeepMerge. A failing dependent stage aborts the run; a failing
// independent stage is reported and skipped.
//
// # Error Handling
//
// Errors are structured with github.com/agilira/go-errors and carry
// KEYSTONE_* codes. Use the Is* helpers to branch on them:
//
//	if keystone.IsAdmissionRejected(err) { ... }
//	if keystone.IsStageFailure(err) { ... }
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package keystone
