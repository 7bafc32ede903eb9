// Package admissionstats records admission decisions for later inspection.
//
// Two keystone.AdmissionStatsStore implementations are provided:
// MemoryStore for tests and single-process deployments, and RedisStore,
// which keeps cumulative and per-minute counters in Redis hashes.
// Callers treat recording as best-effort.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package admissionstats
