// merge_test.go: tests for DeepMerge and CloneDocument
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestDeepMerge tests the merge rules
func TestDeepMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     Document
		incoming Document
		want     Document
	}{
		{
			name:     "scalar overwrite",
			base:     Document{"summary": "old", "name": "Ada"},
			incoming: Document{"summary": "new"},
			want:     Document{"summary": "new", "name": "Ada"},
		},
		{
			name: "nested mappings merge",
			base: Document{"contact": map[string]interface{}{"email": "a@x", "phone": "1"}},
			incoming: Document{"contact": map[string]interface{}{
				"phone": "2",
				"links": map[string]interface{}{"site": "x.dev"},
			}},
			want: Document{"contact": map[string]interface{}{
				"email": "a@x",
				"phone": "2",
				"links": map[string]interface{}{"site": "x.dev"},
			}},
		},
		{
			name:     "list replaced",
			base:     Document{"skills": []interface{}{"A"}},
			incoming: Document{"skills": []interface{}{"A", "B"}},
			want:     Document{"skills": []interface{}{"A", "B"}},
		},
		{
			name:     "equal list kept",
			base:     Document{"skills": []interface{}{"A"}},
			incoming: Document{"skills": []interface{}{"A"}},
			want:     Document{"skills": []interface{}{"A"}},
		},
		{
			name:     "mapping replaces scalar",
			base:     Document{"contact": "none"},
			incoming: Document{"contact": map[string]interface{}{"email": "a@x"}},
			want:     Document{"contact": map[string]interface{}{"email": "a@x"}},
		},
		{
			name:     "nil base",
			base:     nil,
			incoming: Document{"a": 1},
			want:     Document{"a": 1},
		},
		{
			name:     "empty incoming",
			base:     Document{"a": 1},
			incoming: Document{},
			want:     Document{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeepMerge(tt.base, tt.incoming)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DeepMerge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestDeepMerge_Idempotent tests that merging a document into itself changes nothing
func TestDeepMerge_Idempotent(t *testing.T) {
	doc := Document{
		"summary": "S",
		"skills":  []interface{}{"A", "B"},
		"contact": map[string]interface{}{"email": "a@x"},
	}
	once := DeepMerge(doc, doc)
	twice := DeepMerge(once, doc)
	if diff := cmp.Diff(doc, once); diff != "" {
		t.Errorf("merge(d, d) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second merge changed the result (-want +got):\n%s", diff)
	}
}

// TestDeepMerge_DoesNotMutate tests that neither argument is modified
func TestDeepMerge_DoesNotMutate(t *testing.T) {
	base := Document{"contact": map[string]interface{}{"email": "a@x"}, "skills": []interface{}{"A"}}
	incoming := Document{"contact": map[string]interface{}{"phone": "1"}, "skills": []interface{}{"B"}}
	baseCopy := CloneDocument(base)
	incomingCopy := CloneDocument(incoming)

	out := DeepMerge(base, incoming)
	out["contact"].(map[string]interface{})["email"] = "changed"
	out["skills"].([]interface{})[0] = "changed"

	if diff := cmp.Diff(baseCopy, base); diff != "" {
		t.Errorf("base modified (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(incomingCopy, incoming); diff != "" {
		t.Errorf("incoming modified (-want +got):\n%s", diff)
	}
}

// TestCloneDocument tests deep copying
func TestCloneDocument(t *testing.T) {
	if CloneDocument(nil) != nil {
		t.Error("Expected nil clone of nil")
	}

	doc := Document{
		"skills":     []string{"Go"},
		"experience": []interface{}{map[string]interface{}{"title": "Dev"}},
		"nested":     Document{"k": "v"},
	}
	clone := CloneDocument(doc)
	if diff := cmp.Diff(doc, clone); diff != "" {
		t.Fatalf("clone mismatch (-want +got):\n%s", diff)
	}

	clone["skills"].([]string)[0] = "Rust"
	clone["experience"].([]interface{})[0].(map[string]interface{})["title"] = "Lead"
	clone["nested"].(Document)["k"] = "w"

	if doc["skills"].([]string)[0] != "Go" {
		t.Error("Expected []string to be copied")
	}
	if doc["experience"].([]interface{})[0].(map[string]interface{})["title"] != "Dev" {
		t.Error("Expected list of mappings to be copied")
	}
	if doc["nested"].(Document)["k"] != "v" {
		t.Error("Expected nested Document to be copied")
	}
}
