// server.go: HTTP routes and handlers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agilira/keystone"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// Options configures a Server.
type Options struct {
	Registry     *keystone.Registry
	Orchestrator *keystone.Orchestrator

	// Debounce configures the auto-fix coordinator. Results are stored in
	// the registry's general cache when it is registered as Cache[any].
	Debounce keystone.DebounceConfig

	// Admission guards the cache routes; FixAdmission guards auto-fix and
	// defaults to Admission. Nil disables admission for those routes.
	Admission    *keystone.AdmissionController
	FixAdmission *keystone.AdmissionController

	Stats    keystone.AdmissionStatsStore
	Recorder AdmissionRecorder
	KeyFn    KeyFunc

	Logger keystone.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	registry *keystone.Registry
	orch     *keystone.Orchestrator
	autofix  *keystone.DebounceCoordinator[any]
	handler  http.Handler
	logger   keystone.Logger
}

// New validates opts and builds the route table.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, keystone.NewErrInvalidConfig("registry", nil)
	}
	if opts.Orchestrator == nil {
		return nil, keystone.NewErrInvalidConfig("orchestrator", nil)
	}
	if opts.Logger == nil {
		opts.Logger = keystone.NoOpLogger{}
	}
	if opts.FixAdmission == nil {
		opts.FixAdmission = opts.Admission
	}
	if opts.Debounce.Logger == nil {
		opts.Debounce.Logger = opts.Logger
	}

	general, err := keystone.Lookup[any](opts.Registry, keystone.CacheGeneral)
	if err != nil && !keystone.IsUnknownCache(err) {
		return nil, err
	}
	autofix, err := keystone.NewDebounceCoordinator[any](opts.Debounce, general)
	if err != nil {
		return nil, err
	}

	s := &Server{
		registry: opts.Registry,
		orch:     opts.Orchestrator,
		autofix:  autofix,
		logger:   opts.Logger,
	}

	guard := func(route string, ctrl *keystone.AdmissionController) func(http.Handler) http.Handler {
		return Admission(MiddlewareOptions{
			Controller: ctrl,
			Stats:      opts.Stats,
			Recorder:   opts.Recorder,
			KeyFn:      opts.KeyFn,
			Route:      route,
			Logger:     opts.Logger,
		})
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/auto-fix", guard("/api/auto-fix", opts.FixAdmission)(http.HandlerFunc(s.handleAutoFix)))
	mux.Handle("GET /api/cache/stats", guard("/api/cache/stats", opts.Admission)(http.HandlerFunc(s.handleCacheStats)))
	mux.Handle("POST /api/cache/clear", guard("/api/cache/clear", opts.Admission)(http.HandlerFunc(s.handleCacheClear)))
	mux.HandleFunc("GET /health", s.handleHealth)
	s.handler = mux
	return s, nil
}

var _ keystone.DelaySetter = (*Server)(nil)

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetDelay changes the auto-fix debounce delay. It lets HotConfig drive
// the server directly.
func (s *Server) SetDelay(delay time.Duration) {
	s.autofix.SetDelay(delay)
}

// Close releases pending auto-fix waiters.
func (s *Server) Close() error {
	return s.autofix.Close()
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
	Stage  string `json:"stage,omitempty"`
}

type autoFixRequest struct {
	ResumeJSON     keystone.Document `json:"resume_json"`
	Fixes          []keystone.Fix    `json:"fixes"`
	JobDescription string            `json:"job_description"`
	Force          bool              `json:"force"`
}

type failedFix struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type improvementMetrics struct {
	SectionsChanged   int            `json:"sections_changed"`
	ItemsAdded        int            `json:"items_added"`
	ItemsAddedByField map[string]int `json:"items_added_by_field,omitempty"`
}

type autoFixResponse struct {
	RunID              string             `json:"run_id"`
	OptimizedResume    keystone.Document  `json:"optimized_resume"`
	AppliedFixes       []string           `json:"applied_fixes"`
	FailedFixes        []failedFix        `json:"failed_fixes"`
	ImprovementMetrics improvementMetrics `json:"improvement_metrics"`
	ProcessingTime     float64            `json:"processing_time"`
}

func (s *Server) handleAutoFix(w http.ResponseWriter, r *http.Request) {
	var req autoFixRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "invalid request body: " + err.Error()})
		return
	}
	if req.ResumeJSON == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "resume_json is required"})
		return
	}

	key := keystone.KeyOf("autofix", req.ResumeJSON, req.Fixes, req.JobDescription)
	v, err := s.autofix.Run(r.Context(), key, func(ctx context.Context) (any, error) {
		return s.runFixes(ctx, req)
	}, req.Force)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) runFixes(ctx context.Context, req autoFixRequest) (*autoFixResponse, error) {
	res, err := s.orch.Run(ctx, keystone.OrchestrationRequest{
		Document:       req.ResumeJSON,
		Fixes:          req.Fixes,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		return nil, err
	}
	out := &autoFixResponse{
		RunID:           res.RunID,
		OptimizedResume: res.Document,
		AppliedFixes:    res.Applied,
		FailedFixes:     make([]failedFix, 0, len(res.Failed)),
		ImprovementMetrics: improvementMetrics{
			SectionsChanged:   res.Metrics.SectionsChanged,
			ItemsAdded:        res.Metrics.ItemsAdded,
			ItemsAddedByField: res.Metrics.ItemsAddedByField,
		},
		ProcessingTime: res.Duration.Seconds(),
	}
	for _, f := range res.Failed {
		out.FailedFixes = append(out.FailedFixes, failedFix{
			ID:    f.ID,
			Type:  f.Type,
			Error: f.Err.Error(),
			Code:  string(keystone.GetErrorCode(f.Err)),
		})
	}
	return out, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := string(keystone.GetErrorCode(err))
	switch {
	case keystone.IsStageFailure(err):
		stage, _ := keystone.GetErrorContext(err)["stage"].(string)
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: err.Error(), Code: code, Stage: stage})
	case keystone.IsAdmissionRejected(err):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Detail: err.Error(), Code: code})
	case keystone.IsClosed(err):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: err.Error(), Code: code})
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Detail: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: err.Error(), Code: code})
	}
}

type cacheStats struct {
	Size        int    `json:"size"`
	MaxSize     int    `json:"max_size"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	HitRate     string `json:"hit_rate"`
	TTL         int64  `json:"ttl"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	all := s.registry.StatsAll()
	out := make(map[string]cacheStats, len(all))
	for name, st := range all {
		out[name] = cacheStats{
			Size:        st.Size,
			MaxSize:     st.MaxSize,
			Hits:        st.Hits,
			Misses:      st.Misses,
			Evictions:   st.Evictions,
			Expirations: st.Expirations,
			HitRate:     st.HitRateString(),
			TTL:         int64(st.TTL / time.Second),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.registry.ClearAll()
		writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": s.registry.Names()})
		return
	}
	if err := s.registry.Clear(name); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: string(keystone.GetErrorCode(err))})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": []string{name}})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": keystone.Version,
		"caches":  len(s.registry.Names()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
