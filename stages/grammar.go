// grammar.go: weak phrasing replacement
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package stages

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/agilira/keystone"
)

// DefaultReplacements maps weak phrases to stronger action verbs.
var DefaultReplacements = map[string]string{
	"was responsible for": "managed",
	"worked on":           "developed",
	"looked at":           "analyzed",
	"talked to":           "communicated with",
	"dealt with":          "resolved",
	"helped":              "facilitated",
	"made":                "created",
	"got":                 "achieved",
	"used":                "utilized",
	"did":                 "executed",
}

// experienceText lists the experience entry fields that are rewritten.
var experienceText = []string{"description", "bullets", "achievements", "responsibilities"}

// matcher replaces every phrase of a table in a single pass, so a
// replacement is never rewritten again by another rule.
type matcher struct {
	re   *regexp.Regexp
	with map[string]string // lower-cased phrase -> replacement
}

// Grammar rewrites weak phrases in the summary and in experience entries.
// params["replacements"], a mapping of phrase to replacement, extends the
// stage's table for one request and overrides entries with the same phrase.
type Grammar struct {
	table map[string]string
	rules *matcher
}

// NewGrammar compiles a replacement table. nil means DefaultReplacements.
func NewGrammar(replacements map[string]string) *Grammar {
	if replacements == nil {
		replacements = DefaultReplacements
	}
	table := normalize(replacements)
	return &Grammar{table: table, rules: compileRules(table)}
}

// normalize lower-cases phrases and drops blank ones.
func normalize(replacements map[string]string) map[string]string {
	table := make(map[string]string, len(replacements))
	for p, with := range replacements {
		if strings.TrimSpace(p) != "" {
			table[strings.ToLower(p)] = with
		}
	}
	return table
}

// compileRules builds one alternation ordered longest phrase first; the
// regexp engine takes the first alternative that matches at a position, so
// multi-word phrases win over the single words they contain.
func compileRules(table map[string]string) *matcher {
	if len(table) == 0 {
		return nil
	}
	phrases := make([]string, 0, len(table))
	for p := range table {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) != len(phrases[j]) {
			return len(phrases[i]) > len(phrases[j])
		}
		return phrases[i] < phrases[j]
	})
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return &matcher{
		re:   regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
		with: table,
	}
}

// Apply implements keystone.Stage.
func (g *Grammar) Apply(_ context.Context, doc keystone.Document, req keystone.StageRequest) (keystone.Document, error) {
	rules := g.rules
	if extra, ok := req.Fix.Params["replacements"].(map[string]interface{}); ok && len(extra) > 0 {
		merged := make(map[string]string, len(g.table)+len(extra))
		for k, v := range g.table {
			merged[k] = v
		}
		for k, v := range extra {
			if s, ok := v.(string); ok && strings.TrimSpace(k) != "" {
				merged[strings.ToLower(k)] = s
			}
		}
		rules = compileRules(merged)
	}

	out := keystone.Document{}
	if summary, ok := doc["summary"].(string); ok {
		if fixed := rewrite(rules, summary); fixed != summary {
			out["summary"] = fixed
		}
	}

	if items, ok := doc["experience"].([]interface{}); ok {
		changed := false
		rewritten := make([]interface{}, len(items))
		for i, item := range items {
			rewritten[i] = item
			entry, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			var copied map[string]interface{}
			for _, field := range experienceText {
				v, ok := entry[field]
				if !ok {
					continue
				}
				nv, did := rewriteValue(rules, v)
				if !did {
					continue
				}
				if copied == nil {
					copied = make(map[string]interface{}, len(entry))
					for k, ev := range entry {
						copied[k] = ev
					}
				}
				copied[field] = nv
			}
			if copied != nil {
				rewritten[i] = copied
				changed = true
			}
		}
		if changed {
			out["experience"] = rewritten
		}
	}
	return out, nil
}

func rewriteValue(rules *matcher, v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case string:
		fixed := rewrite(rules, t)
		return fixed, fixed != t
	case []interface{}:
		changed := false
		out := make([]interface{}, len(t))
		for i, item := range t {
			nv, did := rewriteValue(rules, item)
			out[i] = nv
			changed = changed || did
		}
		return out, changed
	}
	return v, false
}

func rewrite(rules *matcher, s string) string {
	if rules == nil {
		return s
	}
	return rules.re.ReplaceAllStringFunc(s, func(match string) string {
		with, ok := rules.with[strings.ToLower(match)]
		if !ok {
			return match
		}
		return matchCase(match, with)
	})
}

// matchCase capitalizes with when match starts with an upper case letter.
func matchCase(match, with string) string {
	if match == "" || with == "" {
		return with
	}
	if c := match[0]; c >= 'A' && c <= 'Z' {
		return strings.ToUpper(with[:1]) + with[1:]
	}
	return with
}

var _ keystone.Stage = (*Grammar)(nil)
