// zaplog_test.go: tests for the zap adapter
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package zaplog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger_Levels tests that every level reaches zap with its fields
func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("debug msg", "cache", "prompt")
	l.Info("info msg", "count", 3)
	l.Warn("warn msg")
	l.Error("error msg", "stage", "rewrite")

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}

	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Errorf("Entry %d: expected level %v, got %v", i, wantLevels[i], e.Level)
		}
	}

	if got := entries[0].ContextMap()["cache"]; got != "prompt" {
		t.Errorf("Expected cache=prompt, got %v", got)
	}
	if got := entries[1].ContextMap()["count"]; got != int64(3) {
		t.Errorf("Expected count=3, got %v (%T)", got, got)
	}
}

// TestLogger_Named tests component scoping
func TestLogger_Named(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	New(zap.New(core)).Named("admission").Info("hello")

	entries := logs.All()
	if len(entries) != 1 || entries[0].LoggerName != "admission" {
		t.Errorf("Expected one entry from logger 'admission', got %+v", entries)
	}
}

// TestNew_Nil tests that a nil zap logger is safe
func TestNew_Nil(t *testing.T) {
	New(nil).Info("dropped")
}

// TestBuild tests logger construction
func TestBuild(t *testing.T) {
	if _, err := Build(false, "warn"); err != nil {
		t.Errorf("Build(production) error = %v", err)
	}
	if _, err := Build(true, ""); err != nil {
		t.Errorf("Build(development) error = %v", err)
	}
	if _, err := Build(false, "loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
