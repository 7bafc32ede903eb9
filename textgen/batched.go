// batched.go: coalescing single generation calls into batch requests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package textgen

import (
	"context"

	"github.com/agilira/keystone"
)

// BatchGenerator answers several requests in one upstream call.
// HTTPGenerator implements it.
type BatchGenerator interface {
	GenerateBatch(ctx context.Context, reqs []Request) ([]string, error)
}

// Batched turns a BatchGenerator into a Generator. Concurrent Generate
// calls are grouped by a keystone.RequestBatcher, and each caller receives
// the text produced for its own request.
type Batched struct {
	batcher *keystone.RequestBatcher[Request, string]
}

// NewBatched creates a batched generator running batch calls through pool.
// A nil pool gives the batcher its own single-worker coordinator.
func NewBatched(upstream BatchGenerator, config keystone.BatcherConfig, pool *keystone.BatchCoordinator) *Batched {
	return &Batched{
		batcher: keystone.NewRequestBatcher[Request, string](config, pool, upstream.GenerateBatch),
	}
}

// Generate submits req and waits for its own result.
func (b *Batched) Generate(ctx context.Context, req Request) (string, error) {
	return b.batcher.Submit(ctx, req)
}

// Close flushes pending requests.
func (b *Batched) Close() error {
	return b.batcher.Close()
}

var _ Generator = (*Batched)(nil)
