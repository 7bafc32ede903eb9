// hot-reload.go: dynamic configuration with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package keystone

import (
	"sync"
	"time"

	"github.com/agilira/argus"
)

// DelaySetter is implemented by DebounceCoordinator.
type DelaySetter interface {
	SetDelay(delay time.Duration)
}

// RuntimeConfig is the hot-reloadable part of the configuration.
// Zero values mean "not set in the file".
type RuntimeConfig struct {
	MaxRequests   int
	Window        time.Duration
	RouteLimits   map[string]AdmissionLimits
	DebounceDelay time.Duration
	CacheTTL      map[string]time.Duration
	CacheMaxSize  map[string]int
}

// AdmissionLimits are the limits of one route-specific controller.
type AdmissionLimits struct {
	MaxRequests int
	Window      time.Duration
}

// HotConfig watches a configuration file and applies changes to running
// components. It reloads admission limits (global and per route), the
// debounce delay and cache TTLs. Cache sizes cannot change without rebuilding the cache and are
// only logged.
type HotConfig struct {
	registry  *Registry
	admission *AdmissionController
	routes    map[string]*AdmissionController
	debounce  DelaySetter
	logger    Logger

	watcher *argus.Watcher
	mu      sync.RWMutex
	config  RuntimeConfig

	// OnReload is called after configuration is successfully reloaded.
	// This callback is optional and must be fast and non-blocking.
	OnReload func(oldConfig, newConfig RuntimeConfig)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// Components to update. Any of them may be nil.
	Registry  *Registry
	Admission *AdmissionController
	Debounce  DelaySetter

	// RouteAdmission holds controllers reloaded from admission.routes.<name>.
	RouteAdmission map[string]*AdmissionController

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(oldConfig, newConfig RuntimeConfig)

	Logger Logger
}

// NewHotConfig creates a watcher for opts.ConfigPath. Call Start to begin polling.
//
// Example configuration file (YAML):
//
//	admission:
//	  max_requests: 10
//	  window: "60s"
//	  routes:
//	    auto_fix:
//	      max_requests: 5
//	      window: "60s"
//	debounce:
//	  delay: "500ms"
//	caches:
//	  ai_response:
//	    ttl: "15m"
//	  prompt:
//	    ttl: "30m"
func NewHotConfig(opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, NewErrInvalidConfig("config_path", "")
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	hc := &HotConfig{
		registry:  opts.Registry,
		admission: opts.Admission,
		routes:    opts.RouteAdmission,
		debounce:  opts.Debounce,
		logger:    opts.Logger,
		OnReload:  opts.OnReload,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argus.Config{
		PollInterval: opts.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher
	return hc, nil
}

// Start begins watching the configuration file for changes.
func (hc *HotConfig) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// GetConfig returns the last applied configuration (thread-safe).
func (hc *HotConfig) GetConfig() RuntimeConfig {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.config
}

// handleConfigChange is called by Argus when configuration changes.
func (hc *HotConfig) handleConfigChange(configData map[string]interface{}) {
	hc.mu.Lock()
	oldConfig := hc.config
	newConfig := parseRuntimeConfig(configData)
	hc.config = newConfig
	hc.mu.Unlock()

	hc.applyChanges(oldConfig, newConfig)

	if hc.OnReload != nil {
		hc.OnReload(oldConfig, newConfig)
	}
}

func (hc *HotConfig) applyChanges(old, cur RuntimeConfig) {
	if hc.admission != nil && (cur.MaxRequests != old.MaxRequests || cur.Window != old.Window) {
		hc.admission.SetLimits(cur.MaxRequests, cur.Window)
	}

	for route, limits := range cur.RouteLimits {
		if old.RouteLimits[route] == limits {
			continue
		}
		controller, ok := hc.routes[route]
		if !ok {
			hc.logger.Warn("admission limits not applied", "route", route, "error", "no controller for route")
			continue
		}
		controller.SetLimits(limits.MaxRequests, limits.Window)
	}

	if hc.debounce != nil && cur.DebounceDelay > 0 && cur.DebounceDelay != old.DebounceDelay {
		hc.debounce.SetDelay(cur.DebounceDelay)
		hc.logger.Info("debounce delay updated", "delay", cur.DebounceDelay.String())
	}

	if hc.registry != nil {
		for name, ttl := range cur.CacheTTL {
			if prev, ok := old.CacheTTL[name]; ok && prev == ttl {
				continue
			}
			if err := hc.registry.SetTTL(name, ttl); err != nil {
				hc.logger.Warn("cache ttl not applied", "cache", name, "error", err)
				continue
			}
			hc.logger.Info("cache ttl updated", "cache", name, "ttl", ttl.String())
		}
		for name, size := range cur.CacheMaxSize {
			if prev, ok := old.CacheMaxSize[name]; ok && prev == size {
				continue
			}
			hc.logger.Warn("cache max_size change requires restart", "cache", name, "max_size", size)
		}
	}
}

// parseRuntimeConfig extracts the known sections; unknown keys are ignored.
func parseRuntimeConfig(data map[string]interface{}) RuntimeConfig {
	var cfg RuntimeConfig

	if section, ok := data["admission"].(map[string]interface{}); ok {
		if n, ok := parsePositiveInt(section["max_requests"]); ok {
			cfg.MaxRequests = n
		}
		if d, ok := parseDuration(section["window"]); ok && d > 0 {
			cfg.Window = d
		}
		if routes, ok := section["routes"].(map[string]interface{}); ok {
			for route, raw := range routes {
				r, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				var limits AdmissionLimits
				if n, ok := parsePositiveInt(r["max_requests"]); ok {
					limits.MaxRequests = n
				}
				if d, ok := parseDuration(r["window"]); ok && d > 0 {
					limits.Window = d
				}
				if limits == (AdmissionLimits{}) {
					continue
				}
				if cfg.RouteLimits == nil {
					cfg.RouteLimits = make(map[string]AdmissionLimits)
				}
				cfg.RouteLimits[route] = limits
			}
		}
	}

	if section, ok := data["debounce"].(map[string]interface{}); ok {
		if d, ok := parseDuration(section["delay"]); ok && d > 0 {
			cfg.DebounceDelay = d
		}
	}

	if section, ok := data["caches"].(map[string]interface{}); ok {
		for name, raw := range section {
			c, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if d, ok := parseDuration(c["ttl"]); ok && d >= 0 {
				if cfg.CacheTTL == nil {
					cfg.CacheTTL = make(map[string]time.Duration)
				}
				cfg.CacheTTL[name] = d
			}
			if n, ok := parsePositiveInt(c["max_size"]); ok {
				if cfg.CacheMaxSize == nil {
					cfg.CacheMaxSize = make(map[string]int)
				}
				cfg.CacheMaxSize[name] = n
			}
		}
	}
	return cfg
}

// parsePositiveInt extracts a positive integer from interface{} value.
// Supports int, int64 and float64 (YAML/JSON decoders vary).
func parsePositiveInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	case int64:
		if v > 0 {
			return int(v), true
		}
	case float64:
		if v > 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseDuration extracts a time.Duration from a duration string or a number of seconds.
func parseDuration(value interface{}) (time.Duration, bool) {
	switch v := value.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d, true
		}
	case int:
		return time.Duration(v) * time.Second, true
	case float64:
		return time.Duration(v * float64(time.Second)), true
	}
	return 0, false
}
