// merge.go: pipeline documents and deterministic deep merge
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import "reflect"

// Document is the nested mapping transformed by a pipeline run. Values are
// scalars, lists ([]interface{}) or nested mappings, as produced by
// encoding/json.
type Document map[string]interface{}

// CloneDocument returns a deep copy of doc. Mappings and lists are copied;
// scalars are shared.
func CloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneMap(doc)
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return Document(cloneMap(t))
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []map[string]interface{}:
		out := make([]map[string]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneMap(item)
		}
		return out
	default:
		return v
	}
}

// DeepMerge merges incoming into a copy of base and returns the copy.
// Neither argument is modified.
//
// Rules, applied per key of incoming:
//   - mapping into mapping: merged recursively with the same rules
//   - list: replaces the base value wholesale when different, else left as is
//   - anything else: the incoming value wins
//
// Keys missing from incoming are kept; nothing is ever deleted.
func DeepMerge(base, incoming Document) Document {
	out := CloneDocument(base)
	if out == nil {
		out = Document{}
	}
	mergeInto(out, incoming)
	return out
}

func mergeInto(dst, src map[string]interface{}) {
	for k, in := range src {
		cur, exists := dst[k]
		if inMap, ok := asMap(in); ok && exists {
			if curMap, ok := asMap(cur); ok {
				merged := cloneMap(curMap)
				mergeInto(merged, inMap)
				dst[k] = merged
				continue
			}
		}
		if isList(in) && exists && reflect.DeepEqual(cur, in) {
			continue
		}
		dst[k] = cloneValue(in)
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case Document:
		return t, true
	case map[string]interface{}:
		return t, true
	}
	return nil, false
}

func isList(v interface{}) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}
