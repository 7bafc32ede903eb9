// stage.go: generated rewrite as a pipeline stage
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package textgen

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/agilira/keystone"
)

// DefaultPromptTemplate asks for the whole document back as JSON.
const DefaultPromptTemplate = `You are a professional resume optimizer with expertise in ATS systems.

Apply the requested change to the resume below while keeping every fact accurate.

ORIGINAL RESUME (JSON):
{{.ResumeJSON}}
{{if .JobDescription}}
JOB DESCRIPTION:
{{.JobDescription}}
{{end}}
REQUESTED CHANGE: {{.FixType}}
{{- range $k, $v := .Params}}
- {{$k}}: {{$v}}
{{- end}}

Return ONLY a valid JSON object with the same structure as the input.
`

// maxJobDescription bounds, in characters, the job description embedded in a prompt.
const maxJobDescription = 500

// RewriteConfig configures a RewriteStage.
type RewriteConfig struct {
	Generator Generator

	// Prompts memoizes rendered prompts; Responses memoizes generated text
	// keyed by prompt. Either may be nil to disable that cache.
	Prompts   *keystone.Cache[string]
	Responses *keystone.Cache[string]

	// Template overrides DefaultPromptTemplate.
	Template string

	MaxTokens   int
	Temperature float64
}

// RewriteStage renders a prompt for a fix, asks the generator for a new
// document and merges the answer over the input document.
type RewriteStage struct {
	gen         Generator
	prompts     *keystone.Cache[string]
	responses   *keystone.Cache[string]
	tmpl        *template.Template
	maxTokens   int
	temperature float64
}

type promptData struct {
	ResumeJSON     string
	JobDescription string
	FixType        string
	Params         map[string]interface{}
}

// NewRewriteStage parses the template and creates the stage.
func NewRewriteStage(config RewriteConfig) (*RewriteStage, error) {
	if config.Generator == nil {
		return nil, keystone.NewErrInvalidConfig("generator", nil)
	}
	src := config.Template
	if src == "" {
		src = DefaultPromptTemplate
	}
	tmpl, err := template.New("rewrite").Parse(src)
	if err != nil {
		return nil, keystone.NewErrInvalidConfig("template", err.Error())
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2000
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.7
	}
	return &RewriteStage{
		gen:         config.Generator,
		prompts:     config.Prompts,
		responses:   config.Responses,
		tmpl:        tmpl,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}, nil
}

// Apply implements keystone.Stage.
func (s *RewriteStage) Apply(ctx context.Context, doc keystone.Document, req keystone.StageRequest) (keystone.Document, error) {
	jd := truncateRunes(req.JobDescription, maxJobDescription)

	render := func() (string, error) { return s.render(doc, req.Fix, jd) }
	var prompt string
	var err error
	if s.prompts != nil {
		prompt, err = keystone.GetOrCompute(s.prompts, keystone.KeyOf("opt_prompt", doc, req.Fix, jd), render)
	} else {
		prompt, err = render()
	}
	if err != nil {
		return nil, err
	}

	generate := func(ctx context.Context) (string, error) {
		return s.gen.Generate(ctx, Request{Prompt: prompt, MaxTokens: s.maxTokens, Temperature: s.temperature})
	}
	var text string
	if s.responses != nil {
		text, err = keystone.GetOrComputeWithContext(ctx, s.responses, keystone.KeyOf("ai_response", prompt), generate)
	} else {
		text, err = generate(ctx)
	}
	if err != nil {
		return nil, err
	}

	out, err := ParseDocument(text)
	if err != nil {
		return nil, err
	}
	if err := ValidateDocument(out); err != nil {
		return nil, err
	}
	return keystone.DeepMerge(doc, out), nil
}

func (s *RewriteStage) render(doc keystone.Document, fix keystone.Fix, jd string) (string, error) {
	resume, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", keystone.NewErrParseFailed("document is not JSON encodable", err)
	}
	var b strings.Builder
	if err := s.tmpl.Execute(&b, promptData{
		ResumeJSON:     string(resume),
		JobDescription: jd,
		FixType:        fix.Type,
		Params:         fix.Params,
	}); err != nil {
		return "", err
	}
	return b.String(), nil
}

var _ keystone.Stage = (*RewriteStage)(nil)

// truncateRunes keeps the first n characters of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
