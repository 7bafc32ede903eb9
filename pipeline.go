// pipeline.go: dependent and independent stage orchestration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fix describes one requested transformation.
// Kind is optional; when empty the fix type decides (see OrchestratorConfig).
type Fix struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Kind   string                 `json:"kind,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// StageRequest is what a stage receives besides the document.
type StageRequest struct {
	Fix            Fix
	JobDescription string
}

// Stage applies one fix. It receives a private copy of the document and
// returns the transformed document; it may modify and return its input.
type Stage interface {
	Apply(ctx context.Context, doc Document, req StageRequest) (Document, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, doc Document, req StageRequest) (Document, error)

// Apply calls f.
func (f StageFunc) Apply(ctx context.Context, doc Document, req StageRequest) (Document, error) {
	return f(ctx, doc, req)
}

// OrchestrationRequest is the input of one run.
type OrchestrationRequest struct {
	Document       Document
	Fixes          []Fix
	JobDescription string
}

// FailedFix is an independent fix that was skipped.
type FailedFix struct {
	ID   string
	Type string
	Err  error
}

// RunMetrics summarizes what a run changed.
type RunMetrics struct {
	// SectionsChanged counts top-level keys whose value differs from the input.
	SectionsChanged int

	// ItemsAdded counts list items present in the output but not in the
	// input, over all tracked fields.
	ItemsAdded int

	// ItemsAddedByField breaks ItemsAdded down per tracked field.
	ItemsAddedByField map[string]int
}

// OrchestrationResult is the outcome of a successful run.
type OrchestrationResult struct {
	RunID    string
	Document Document
	Applied  []string
	Failed   []FailedFix
	Metrics  RunMetrics
	Duration time.Duration
}

// Orchestrator runs the dependent fixes of a request one after another,
// then the independent fixes concurrently through a BatchCoordinator, and
// deep-merges the independent outputs in request order.
type Orchestrator struct {
	mu     sync.RWMutex
	stages map[string]Stage

	batch       *BatchCoordinator
	independent map[string]bool
	tracked     []string
	logger      Logger
}

// NewOrchestrator creates an orchestrator without stages. A nil batch gets
// a private coordinator with default settings.
func NewOrchestrator(config OrchestratorConfig, batch *BatchCoordinator) *Orchestrator {
	_ = config.Validate()
	if batch == nil {
		batch = NewBatchCoordinator(BatchConfig{Logger: config.Logger})
	}
	independent := make(map[string]bool, len(config.IndependentTypes))
	for _, t := range config.IndependentTypes {
		independent[t] = true
	}
	return &Orchestrator{
		stages:      make(map[string]Stage),
		batch:       batch,
		independent: independent,
		tracked:     config.TrackedListFields,
		logger:      config.Logger,
	}
}

// Handle registers stage for fixes of the given type, replacing any previous one.
func (o *Orchestrator) Handle(fixType string, stage Stage) {
	o.mu.Lock()
	o.stages[fixType] = stage
	o.mu.Unlock()
}

// Classify returns the kind a fix runs as.
func (o *Orchestrator) Classify(f Fix) UnitKind {
	switch f.Kind {
	case "independent":
		return Independent
	case "dependent":
		return Dependent
	}
	if o.independent[f.Type] {
		return Independent
	}
	return Dependent
}

func (o *Orchestrator) stage(fixType string) (Stage, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.stages[fixType]
	if !ok {
		return nil, fmt.Errorf("no stage handles fix type %q", fixType)
	}
	return s, nil
}

// Run executes one orchestration. A failing dependent stage aborts the run
// with a KEYSTONE_STAGE_FAILED error and no document. A failing independent
// stage is listed in Failed and left out of the merge.
// The request document is never modified.
func (o *Orchestrator) Run(ctx context.Context, req OrchestrationRequest) (*OrchestrationResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	doc := CloneDocument(req.Document)
	if doc == nil {
		doc = Document{}
	}

	var dependent, independent []Fix
	for _, f := range req.Fixes {
		if o.Classify(f) == Independent {
			independent = append(independent, f)
		} else {
			dependent = append(dependent, f)
		}
	}

	applied := make([]string, 0, len(req.Fixes))

	for _, f := range dependent {
		stage, err := o.stage(f.Type)
		if err != nil {
			return nil, o.failStage(runID, f, err)
		}
		out, err := stage.Apply(ctx, CloneDocument(doc), StageRequest{Fix: f, JobDescription: req.JobDescription})
		if err != nil {
			return nil, o.failStage(runID, f, err)
		}
		if out != nil {
			doc = out
		}
		applied = append(applied, f.ID)
	}

	var failed []FailedFix
	if len(independent) > 0 {
		base := doc
		units := make([]WorkUnit[Document], len(independent))
		types := make(map[string]string, len(independent))
		for i, f := range independent {
			types[f.ID] = f.Type
			units[i] = WorkUnit[Document]{
				ID:   f.ID,
				Kind: Independent,
				Run: func(ctx context.Context) (Document, error) {
					stage, err := o.stage(f.Type)
					if err != nil {
						return nil, err
					}
					return stage.Apply(ctx, CloneDocument(base), StageRequest{Fix: f, JobDescription: req.JobDescription})
				},
			}
		}

		res := RunParallel(ctx, o.batch, units)
		for _, r := range res.Results {
			if r.Value != nil {
				doc = DeepMerge(doc, r.Value)
			}
			applied = append(applied, r.ID)
		}
		for _, f := range res.Failures {
			failed = append(failed, FailedFix{ID: f.ID, Type: types[f.ID], Err: f.Err})
		}
	}

	result := &OrchestrationResult{
		RunID:    runID,
		Document: doc,
		Applied:  applied,
		Failed:   failed,
		Metrics:  o.metrics(req.Document, doc),
		Duration: time.Since(start),
	}
	o.logger.Info("orchestration finished",
		"run_id", runID,
		"applied", len(applied),
		"failed", len(failed),
		"duration", result.Duration.String())
	return result, nil
}

func (o *Orchestrator) failStage(runID string, f Fix, cause error) error {
	err := NewErrStageFailed(f.ID, cause)
	o.logger.Error("dependent stage failed", "run_id", runID, "stage", f.ID, "type", f.Type, "error", cause)
	return err
}

func (o *Orchestrator) metrics(before, after Document) RunMetrics {
	m := RunMetrics{ItemsAddedByField: make(map[string]int, len(o.tracked))}
	for k, v := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, v) {
			m.SectionsChanged++
		}
	}
	for _, field := range o.tracked {
		added := countNewItems(before[field], after[field])
		m.ItemsAddedByField[field] = added
		m.ItemsAdded += added
	}
	return m
}

// countNewItems counts the elements of after that do not occur in before.
func countNewItems(before, after interface{}) int {
	av := reflect.ValueOf(after)
	if !av.IsValid() || av.Kind() != reflect.Slice {
		return 0
	}
	bv := reflect.ValueOf(before)
	n := 0
	for i := 0; i < av.Len(); i++ {
		item := av.Index(i).Interface()
		found := false
		if bv.IsValid() && bv.Kind() == reflect.Slice {
			for j := 0; j < bv.Len(); j++ {
				if reflect.DeepEqual(bv.Index(j).Interface(), item) {
					found = true
					break
				}
			}
		}
		if !found {
			n++
		}
	}
	return n
}
