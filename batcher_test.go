// batcher_test.go: tests for RequestBatcher
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func upperBatch(calls *atomic.Int32, sizes chan<- int) BatchFunc[string, string] {
	return func(_ context.Context, inputs []string) ([]string, error) {
		calls.Add(1)
		if sizes != nil {
			sizes <- len(inputs)
		}
		out := make([]string, len(inputs))
		for i, in := range inputs {
			out[i] = strings.ToUpper(in)
		}
		return out, nil
	}
}

// TestRequestBatcher_OwnResults tests that each submission receives its own output
func TestRequestBatcher_OwnResults(t *testing.T) {
	var calls atomic.Int32
	b := NewRequestBatcher(BatcherConfig{MaxBatch: 100, Delay: 20 * time.Millisecond}, nil, upperBatch(&calls, nil))
	defer b.Close()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := fmt.Sprintf("item-%d", i)
			out, err := b.Submit(context.Background(), in)
			if err != nil {
				t.Errorf("Submit(%s) error = %v", in, err)
				return
			}
			if out != strings.ToUpper(in) {
				t.Errorf("Expected %s, got %s", strings.ToUpper(in), out)
			}
		}(i)
	}
	wg.Wait()

	if c := calls.Load(); c != 1 {
		t.Errorf("Expected a single batch call, got %d", c)
	}
}

// TestRequestBatcher_MaxBatchFlush tests that a full queue flushes immediately
func TestRequestBatcher_MaxBatchFlush(t *testing.T) {
	var calls atomic.Int32
	sizes := make(chan int, 10)
	b := NewRequestBatcher(BatcherConfig{MaxBatch: 3, Delay: time.Hour}, nil, upperBatch(&calls, sizes))
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := b.Submit(context.Background(), fmt.Sprint(i)); err != nil {
				t.Errorf("Submit() error = %v", err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("full batch was not flushed")
	}
	if got := <-sizes; got != 3 {
		t.Errorf("Expected batch of 3, got %d", got)
	}
}

// TestRequestBatcher_DelayFlush tests that a partial queue flushes after the delay
func TestRequestBatcher_DelayFlush(t *testing.T) {
	var calls atomic.Int32
	b := NewRequestBatcher(BatcherConfig{MaxBatch: 10, Delay: 10 * time.Millisecond}, nil, upperBatch(&calls, nil))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := b.Submit(ctx, "solo")
	if err != nil || out != "SOLO" {
		t.Errorf("Expected SOLO, got %q, %v", out, err)
	}
	if b.Pending() != 0 {
		t.Errorf("Expected empty queue, got %d", b.Pending())
	}
}

// TestRequestBatcher_Mismatch tests a batch function that breaks the one-to-one contract
func TestRequestBatcher_Mismatch(t *testing.T) {
	b := NewRequestBatcher(BatcherConfig{MaxBatch: 2, Delay: time.Hour}, nil,
		func(_ context.Context, inputs []string) ([]string, error) {
			return inputs[:1], nil
		})
	defer b.Close()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := b.Submit(context.Background(), "x")
			errs <- err
		}()
	}
	for i := 0; i < 2; i++ {
		err := <-errs
		if GetErrorCode(err) != ErrCodeBatchMismatch {
			t.Errorf("Expected batch mismatch, got %v", err)
		}
	}
}

// TestRequestBatcher_Close tests that Close flushes and rejects later submissions
func TestRequestBatcher_Close(t *testing.T) {
	var calls atomic.Int32
	b := NewRequestBatcher(BatcherConfig{MaxBatch: 10, Delay: time.Hour}, nil, upperBatch(&calls, nil))

	result := make(chan string, 1)
	go func() {
		out, _ := b.Submit(context.Background(), "queued")
		result <- out
	}()
	deadline := time.Now().Add(time.Second)
	for b.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := <-result; got != "QUEUED" {
		t.Errorf("Expected queued submission to be flushed, got %q", got)
	}
	if _, err := b.Submit(context.Background(), "late"); !IsClosed(err) {
		t.Errorf("Expected closed error, got %v", err)
	}
}
