// keyword.go: skill keyword insertion
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package stages

import (
	"context"
	"strings"

	"github.com/agilira/keystone"
)

// Keyword adds the keywords named in params["keywords"] to the skills
// list. Keywords already present, compared case-insensitively, are skipped.
// params["keywords"] may be a list or a comma separated string.
type Keyword struct{}

// Apply implements keystone.Stage.
func (Keyword) Apply(_ context.Context, doc keystone.Document, req keystone.StageRequest) (keystone.Document, error) {
	keywords := stringList(req.Fix.Params["keywords"])
	if len(keywords) == 0 {
		return keystone.Document{}, nil
	}

	var skills []interface{}
	switch t := doc["skills"].(type) {
	case nil:
	case []interface{}:
		skills = append(skills, t...)
	case []string:
		for _, s := range t {
			skills = append(skills, s)
		}
	default:
		return nil, keystone.NewErrParseFailed("skills must be a list", nil)
	}

	seen := make(map[string]bool, len(skills)+len(keywords))
	for _, s := range skills {
		if str, ok := s.(string); ok {
			seen[strings.ToLower(str)] = true
		}
	}

	added := 0
	for _, k := range keywords {
		lk := strings.ToLower(k)
		if seen[lk] {
			continue
		}
		seen[lk] = true
		skills = append(skills, k)
		added++
	}
	if added == 0 {
		return keystone.Document{}, nil
	}
	return keystone.Document{"skills": skills}, nil
}

var _ keystone.Stage = Keyword{}
