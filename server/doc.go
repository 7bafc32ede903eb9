// doc.go: package documentation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package server exposes keystone over HTTP.
//
// Routes:
//
//	POST /api/auto-fix        run an orchestration, debounced and cached per body
//	GET  /api/cache/stats     statistics for every registered cache
//	POST /api/cache/clear     clear one cache (?name=) or all of them
//	GET  /health              liveness
//
// Every /api route passes through the admission middleware. Auto-fix can
// use its own, stricter controller.
package server
