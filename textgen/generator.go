// generator.go: text generation client
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	goerrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agilira/keystone"
	"golang.org/x/time/rate"
)

// Request is one generation call.
type Request struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// HTTPConfig configures an HTTPGenerator.
type HTTPConfig struct {
	// Endpoint receives POST {"prompt": ...} and answers {"text": ...}.
	Endpoint string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds each call, including the wait for a rate token.
	// Default: 90s.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure client-side pacing.
	// Default: 1 request per second, burst 1.
	RequestsPerSecond float64
	Burst             int

	// Client is the HTTP client. Default: a client without its own timeout.
	Client *http.Client

	Logger keystone.Logger
}

// HTTPGenerator calls a JSON text-generation endpoint.
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	logger   keystone.Logger
}

// NewHTTPGenerator validates config and creates a generator.
func NewHTTPGenerator(config HTTPConfig) (*HTTPGenerator, error) {
	if strings.TrimSpace(config.Endpoint) == "" {
		return nil, keystone.NewErrInvalidConfig("endpoint", config.Endpoint)
	}
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 1
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.Client == nil {
		config.Client = &http.Client{}
	}
	if config.Logger == nil {
		config.Logger = keystone.NoOpLogger{}
	}
	return &HTTPGenerator{
		endpoint: config.Endpoint,
		apiKey:   config.APIKey,
		timeout:  config.Timeout,
		client:   config.Client,
		limiter:  rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:   config.Logger,
	}, nil
}

// Generate sends one request.
//
// Errors:
//   - KEYSTONE_UNIT_TIMEOUT when the call exceeds the configured timeout
//   - KEYSTONE_GENERATOR_FAILED for transport errors and non-2xx answers;
//     retryable for 429 and 5xx
//   - KEYSTONE_PARSE_FAILED when the answer is not the expected JSON
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := g.post(ctx, req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// GenerateBatch sends several prompts in one call to the same endpoint:
// {"prompts": [...]} answered by {"texts": [...]}.
func (g *HTTPGenerator) GenerateBatch(ctx context.Context, reqs []Request) ([]string, error) {
	var out struct {
		Texts []string `json:"texts"`
	}
	if err := g.post(ctx, struct {
		Prompts []Request `json:"prompts"`
	}{reqs}, &out); err != nil {
		return nil, err
	}
	return out.Texts, nil
}

func (g *HTTPGenerator) post(ctx context.Context, payload interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		// Wait fails early when the next token lies beyond the deadline
		if goerrors.Is(ctx.Err(), context.Canceled) {
			return keystone.NewErrGeneratorFailed(0, err, true)
		}
		return keystone.NewErrUnitTimeout("textgen", g.timeout)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return keystone.NewErrGeneratorFailed(0, err, false)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return keystone.NewErrGeneratorFailed(0, err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return g.contextError(ctx, err)
	}
	defer resp.Body.Close()

	g.logger.Debug("text generation call", "status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return keystone.NewErrGeneratorFailed(resp.StatusCode, nil, retryable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return g.contextError(ctx, err)
		}
		return keystone.NewErrParseFailed("generator response body", err)
	}
	return nil
}

func (g *HTTPGenerator) contextError(ctx context.Context, err error) error {
	if goerrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return keystone.NewErrUnitTimeout("textgen", g.timeout)
	}
	return keystone.NewErrGeneratorFailed(0, err, true)
}
