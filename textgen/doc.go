// Package textgen talks to the external text-generation service and turns
// its output into pipeline documents.
//
// HTTPGenerator paces outbound calls with a token bucket so the process as a
// whole stays under the upstream quota, and maps timeouts and throttling to
// typed keystone errors. RewriteStage is a keystone.Stage that renders a
// prompt, memoizes both the prompt and the generated text, and parses the
// answer back into a document.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package textgen
