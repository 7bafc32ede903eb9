// doc.go: package documentation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package stages provides rule-based pipeline stages for the fix types the
// orchestrator runs concurrently by default: keyword, grammar and format.
//
// Each stage returns only the sections it changed, so the orchestrator's
// deep merge combines their outputs without one stage overwriting another.
//
//	orch := keystone.NewOrchestrator(keystone.OrchestratorConfig{}, pool)
//	stages.Register(orch)
package stages
