// batcher.go: grouping individual submissions into batch calls
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	"sync"
	"time"
)

// BatchFunc processes a batch of inputs and must return exactly one output
// per input, in the same order.
type BatchFunc[I, O any] func(ctx context.Context, inputs []I) ([]O, error)

// resultSlot belongs to exactly one submission. The flush that takes the
// submission writes val or err once and then closes done.
type resultSlot[O any] struct {
	done chan struct{}
	val  O
	err  error
}

type submission[I, O any] struct {
	input I
	slot  *resultSlot[O]
}

// RequestBatcher collects submissions and hands them to a BatchFunc in
// groups. A group is flushed when it reaches MaxBatch or Delay after its
// first submission, whichever comes first. Batch calls run through the
// shared BatchCoordinator pool.
type RequestBatcher[I, O any] struct {
	mu     sync.Mutex
	queue  []submission[I, O]
	timer  *time.Timer
	closed bool

	maxBatch int
	delay    time.Duration
	fn       BatchFunc[I, O]
	pool     *BatchCoordinator
	logger   Logger
}

// NewRequestBatcher creates a batcher. A nil pool gets a private
// single-worker coordinator.
func NewRequestBatcher[I, O any](config BatcherConfig, pool *BatchCoordinator, fn BatchFunc[I, O]) *RequestBatcher[I, O] {
	_ = config.Validate()
	if pool == nil {
		pool = NewBatchCoordinator(BatchConfig{MaxWorkers: 1, Logger: config.Logger})
	}
	return &RequestBatcher[I, O]{
		maxBatch: config.MaxBatch,
		delay:    config.Delay,
		fn:       fn,
		pool:     pool,
		logger:   config.Logger,
	}
}

// Submit queues input and waits for its own output. ctx only bounds the
// wait; a submission already taken by a flush is still processed.
func (b *RequestBatcher[I, O]) Submit(ctx context.Context, input I) (O, error) {
	slot := &resultSlot[O]{done: make(chan struct{})}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		var zero O
		return zero, NewErrCoordinatorClosed("batcher")
	}
	b.queue = append(b.queue, submission[I, O]{input: input, slot: slot})
	if len(b.queue) >= b.maxBatch {
		batch := b.takeLocked()
		b.mu.Unlock()
		go b.flush(batch)
	} else {
		if b.timer == nil {
			b.timer = time.AfterFunc(b.delay, b.flushPending)
		}
		b.mu.Unlock()
	}

	select {
	case <-slot.done:
		return slot.val, slot.err
	case <-ctx.Done():
		var zero O
		return zero, ctx.Err()
	}
}

// Flush processes whatever is queued right now and waits for it to finish.
func (b *RequestBatcher[I, O]) Flush() {
	b.mu.Lock()
	batch := b.takeLocked()
	b.mu.Unlock()
	b.flush(batch)
}

// Close flushes the queue and rejects further submissions.
func (b *RequestBatcher[I, O]) Close() error {
	b.mu.Lock()
	b.closed = true
	batch := b.takeLocked()
	b.mu.Unlock()
	b.flush(batch)
	return nil
}

// Pending returns the number of queued submissions.
func (b *RequestBatcher[I, O]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *RequestBatcher[I, O]) flushPending() {
	b.mu.Lock()
	batch := b.takeLocked()
	b.mu.Unlock()
	b.flush(batch)
}

func (b *RequestBatcher[I, O]) takeLocked() []submission[I, O] {
	batch := b.queue
	b.queue = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return batch
}

// flush runs one batch call and settles every slot it took.
func (b *RequestBatcher[I, O]) flush(batch []submission[I, O]) {
	if len(batch) == 0 {
		return
	}
	inputs := make([]I, len(batch))
	for i, s := range batch {
		inputs[i] = s.input
	}

	res := RunParallel(context.Background(), b.pool, []WorkUnit[[]O]{{
		ID:   "batch",
		Kind: Independent,
		Run: func(ctx context.Context) ([]O, error) {
			return b.fn(ctx, inputs)
		},
	}})

	var err error
	var outputs []O
	switch {
	case len(res.Failures) > 0:
		err = res.Failures[0].Err
	case len(res.Results[0].Value) != len(batch):
		err = NewErrBatchMismatch(len(batch), len(res.Results[0].Value))
	default:
		outputs = res.Results[0].Value
	}

	if err != nil {
		b.logger.Warn("batch call failed", "size", len(batch), "error", err)
	}
	for i, s := range batch {
		if err != nil {
			s.slot.err = err
		} else {
			s.slot.val = outputs[i]
		}
		close(s.slot.done)
	}
}
