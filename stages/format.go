// format.go: contact field normalization
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

// contactFields are the top-level scalars Format normalizes.
var contactFields = []string{"name", "title", "email", "phone", "location", "linkedin", "portfolio"}

// Format trims and collapses whitespace in contact fields and lower-cases
// the email address.
type Format struct{}

// Apply implements keystone.Stage.
func (Format) Apply(_ context.Context, doc keystone.Document, _ keystone.StageRequest) (keystone.Document, error) {
	out := keystone.Document{}
	for _, field := range contactFields {
		s, ok := doc[field].(string)
		if !ok {
			continue
		}
		fixed := strings.Join(strings.Fields(s), " ")
		if field == "email" {
			fixed = strings.ToLower(strings.ReplaceAll(fixed, " ", ""))
		}
		if fixed != s {
			out[field] = fixed
		}
	}
	return out, nil
}

var _ keystone.Stage = Format{}
