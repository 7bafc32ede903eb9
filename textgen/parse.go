// parse.go: decoding and validating generated documents
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package textgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agilira/keystone"
)

// ParseDocument extracts a JSON object from generated text. Markdown code
// fences are stripped; if the remainder still does not decode, the span
// from the first '{' to the last '}' is tried.
func ParseDocument(text string) (keystone.Document, error) {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var doc keystone.Document
	err := json.Unmarshal([]byte(s), &doc)
	if err == nil && doc != nil {
		return doc, nil
	}

	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start != -1 && end > start {
		var inner keystone.Document
		if err2 := json.Unmarshal([]byte(s[start:end+1]), &inner); err2 == nil && inner != nil {
			return inner, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("output is not a JSON object")
	}
	return nil, keystone.NewErrParseFailed("no JSON object in generated text", err)
}

// ValidateDocument checks the resume shape: experience entries are
// mappings with title and company, education and skills are lists, and
// summary is a string. Absent sections are fine.
func ValidateDocument(doc keystone.Document) error {
	if exp, ok := doc["experience"]; ok {
		items, ok := exp.([]interface{})
		if !ok {
			return keystone.NewErrParseFailed("experience must be a list", nil)
		}
		for i, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				return keystone.NewErrParseFailed(fmt.Sprintf("experience[%d] must be a mapping", i), nil)
			}
			for _, field := range []string{"title", "company"} {
				if _, ok := m[field]; !ok {
					return keystone.NewErrParseFailed(fmt.Sprintf("experience[%d] is missing %s", i, field), nil)
				}
			}
		}
	}
	for _, field := range []string{"education", "skills"} {
		if v, ok := doc[field]; ok {
			if _, ok := v.([]interface{}); !ok {
				return keystone.NewErrParseFailed(field+" must be a list", nil)
			}
		}
	}
	if v, ok := doc["summary"]; ok {
		if _, ok := v.(string); !ok {
			return keystone.NewErrParseFailed("summary must be a string", nil)
		}
	}
	return nil
}
