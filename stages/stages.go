// stages.go: registration and shared helpers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package stages

import (
	"strings"

	"github.com/agilira/keystone"
)

// Fix types handled by this package.
const (
	TypeKeyword = "keyword"
	TypeGrammar = "grammar"
	TypeFormat  = "format"
)

// Register installs the keyword, grammar and format stages on o.
func Register(o *keystone.Orchestrator) {
	o.Handle(TypeKeyword, Keyword{})
	o.Handle(TypeGrammar, NewGrammar(nil))
	o.Handle(TypeFormat, Format{})
}

// stringList accepts []interface{}, []string or a comma separated string
// and returns the trimmed, non-empty entries.
func stringList(v interface{}) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
