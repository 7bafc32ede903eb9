// batch.go: bounded parallel execution with per-unit failure isolation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// UnitKind classifies a work unit.
type UnitKind int

const (
	// Independent units may run concurrently against the same input.
	Independent UnitKind = iota
	// Dependent units must run in order, each consuming the previous output.
	Dependent
)

func (k UnitKind) String() string {
	switch k {
	case Independent:
		return "independent"
	case Dependent:
		return "dependent"
	default:
		return fmt.Sprintf("UnitKind(%d)", int(k))
	}
}

// WorkUnit is one opaque piece of work. Run carries its own input.
type WorkUnit[O any] struct {
	ID   string
	Kind UnitKind
	Run  func(ctx context.Context) (O, error)
}

// UnitResult is the output of a successful unit.
type UnitResult[O any] struct {
	ID    string
	Value O
}

// UnitError is the failure of one unit.
type UnitError struct {
	ID  string
	Err error
}

// BatchResult holds the successful results in input order and the
// failures that were excluded from them.
type BatchResult[O any] struct {
	Results  []UnitResult[O]
	Failures []UnitError
}

// Values returns the successful outputs in input order.
func (r BatchResult[O]) Values() []O {
	out := make([]O, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, res.Value)
	}
	return out
}

// Err combines every unit failure, or returns nil when all units succeeded.
func (r BatchResult[O]) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f.Err)
	}
	return err
}

// BatchCoordinator runs work units with bounded parallelism. All calls made
// through one coordinator share a single pool of MaxWorkers slots, so the
// bound holds across concurrent batches and orchestration runs.
type BatchCoordinator struct {
	sem         chan struct{}
	batchSize   int
	unitTimeout time.Duration
	logger      Logger
}

// NewBatchCoordinator creates a coordinator. Zero config fields get defaults.
func NewBatchCoordinator(config BatchConfig) *BatchCoordinator {
	_ = config.Validate()
	return &BatchCoordinator{
		sem:         make(chan struct{}, config.MaxWorkers),
		batchSize:   config.BatchSize,
		unitTimeout: config.UnitTimeout,
		logger:      config.Logger,
	}
}

// MaxWorkers returns the size of the slot pool.
func (b *BatchCoordinator) MaxWorkers() int {
	return cap(b.sem)
}

// Busy returns the number of slots currently held by running units.
func (b *BatchCoordinator) Busy() int {
	return len(b.sem)
}

func (b *BatchCoordinator) acquire(ctx context.Context) (func(), bool) {
	select {
	case b.sem <- struct{}{}:
		return func() { <-b.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// RunParallel executes units concurrently. A failing unit is logged and
// recorded in Failures; it never cancels or blocks the others. An empty
// input returns an empty result without scheduling anything.
func RunParallel[O any](ctx context.Context, b *BatchCoordinator, units []WorkUnit[O]) BatchResult[O] {
	if len(units) == 0 {
		return BatchResult[O]{Results: []UnitResult[O]{}}
	}

	type outcome struct {
		val O
		err error
	}
	outcomes := make([]outcome, len(units))

	var g errgroup.Group
	g.SetLimit(cap(b.sem))
	for i, u := range units {
		g.Go(func() error {
			v, err := runUnit(ctx, b, u)
			outcomes[i] = outcome{val: v, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult[O]{Results: make([]UnitResult[O], 0, len(units))}
	for i, o := range outcomes {
		if o.err != nil {
			b.logger.Warn("work unit failed", "unit", units[i].ID, "error", o.err)
			res.Failures = append(res.Failures, UnitError{ID: units[i].ID, Err: o.err})
			continue
		}
		res.Results = append(res.Results, UnitResult[O]{ID: units[i].ID, Value: o.val})
	}
	return res
}

// runUnit holds a pool slot for as long as the unit body runs, even when
// the caller has already given up on it on timeout.
func runUnit[O any](ctx context.Context, b *BatchCoordinator, u WorkUnit[O]) (O, error) {
	var zero O
	if u.Run == nil {
		return zero, NewErrUnitFailed(u.ID, goerrors.New("unit has no body"))
	}

	release, ok := b.acquire(ctx)
	if !ok {
		return zero, NewErrUnitFailed(u.ID, ctx.Err())
	}

	unitCtx, cancel := ctx, context.CancelFunc(func() {})
	if b.unitTimeout > 0 {
		unitCtx, cancel = context.WithTimeout(ctx, b.unitTimeout)
	}

	type outcome struct {
		val O
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer release()
		defer cancel()
		var o outcome
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.err = NewErrPanicRecovered("unit:"+u.ID, r)
				}
			}()
			o.val, o.err = u.Run(unitCtx)
		}()
		done <- o
	}()

	select {
	case o := <-done:
		if o.err == nil {
			return o.val, nil
		}
		if b.unitTimeout > 0 && ctx.Err() == nil && goerrors.Is(o.err, context.DeadlineExceeded) {
			return zero, NewErrUnitTimeout(u.ID, b.unitTimeout)
		}
		return zero, NewErrUnitFailed(u.ID, o.err)
	case <-unitCtx.Done():
		select {
		case o := <-done:
			if o.err == nil {
				return o.val, nil
			}
		default:
		}
		if err := ctx.Err(); err != nil {
			return zero, NewErrUnitFailed(u.ID, err)
		}
		return zero, NewErrUnitTimeout(u.ID, b.unitTimeout)
	}
}

// RunChunked partitions items into chunks of batchSize (the coordinator
// default when <= 0) and calls fn once per chunk. Results keep chunk
// order; a failing chunk is logged and skipped.
func RunChunked[T, R any](ctx context.Context, b *BatchCoordinator, items []T, batchSize int, fn func(ctx context.Context, chunk []T) (R, error)) BatchResult[R] {
	if batchSize <= 0 {
		batchSize = b.batchSize
	}
	chunks := chunk(items, batchSize)
	units := make([]WorkUnit[R], len(chunks))
	for i, c := range chunks {
		units[i] = WorkUnit[R]{
			ID:   fmt.Sprintf("chunk-%d", i),
			Kind: Independent,
			Run: func(ctx context.Context) (R, error) {
				return fn(ctx, c)
			},
		}
	}
	return RunParallel(ctx, b, units)
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end:end])
	}
	return out
}
