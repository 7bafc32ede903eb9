// Package otel provides OpenTelemetry integration for keystone metrics.
//
// Collector implements keystone.MetricsCollector and additionally counts
// admission decisions per route. Pair it with the Prometheus exporter to
// serve everything on /metrics:
//
//	exporter, _ := prometheus.New()
//	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
//	collector, _ := otel.NewCollector(provider)
//
// # Metrics Exposed
//
//   - keystone_cache_get_latency_ns, keystone_cache_set_latency_ns,
//     keystone_cache_delete_latency_ns: histograms, attribute "cache"
//   - keystone_cache_hits_total, keystone_cache_misses_total: counters, attribute "cache"
//   - keystone_cache_evictions_total, keystone_cache_expirations_total: counters, attribute "cache"
//   - keystone_admission_admitted_total, keystone_admission_rejected_total: counters, attribute "route"
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package otel
