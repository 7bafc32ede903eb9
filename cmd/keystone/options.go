// options.go: command-line and environment configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"
	"strings"
	"time"

	"github.com/agilira/keystone"
	"github.com/spf13/pflag"
)

// envPrefix is prepended to the upper-cased flag name to form its
// environment variable, e.g. --listen-addr reads KEYSTONE_LISTEN_ADDR.
const envPrefix = "KEYSTONE_"

// Options contains the process configuration.
type Options struct {
	//
	// HTTP.
	//
	ListenAddr  string
	MetricsPath string

	//
	// Logging.
	//
	LogLevel    string
	Development bool

	//
	// Admission control.
	//
	MaxRequests    int
	Window         time.Duration
	FixMaxRequests int // stricter limit for auto-fix
	FixWindow      time.Duration

	//
	// Coordination.
	//
	DebounceDelay time.Duration
	MaxWorkers    int
	UnitTimeout   time.Duration

	//
	// Text generation. Rewrite stages are only registered when GeneratorURL is set.
	//
	GeneratorURL       string
	GeneratorAPIKey    string
	GeneratorTimeout   time.Duration
	GeneratorRPS       float64
	GeneratorBurst     int
	GeneratorBatch     bool
	GeneratorBatchSize int

	//
	// Admission stats. Redis is used only when RedisAddr is set.
	//
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsPrefix   string
	StatsTTL      time.Duration

	//
	// Hot reload.
	//
	ConfigFile   string
	ConfigPoll   time.Duration
	JanitorEvery time.Duration

	fs *pflag.FlagSet
}

// NewOptions returns Options with default values.
func NewOptions() *Options {
	return &Options{
		ListenAddr:         ":8080",
		MetricsPath:        "/metrics",
		LogLevel:           "info",
		MaxRequests:        keystone.DefaultMaxRequests,
		Window:             keystone.DefaultWindow,
		FixMaxRequests:     5,
		FixWindow:          keystone.DefaultWindow,
		DebounceDelay:      keystone.DefaultDebounceDelay,
		MaxWorkers:         keystone.DefaultMaxWorkers,
		UnitTimeout:        120 * time.Second,
		GeneratorTimeout:   90 * time.Second,
		GeneratorRPS:       1,
		GeneratorBurst:     1,
		GeneratorBatchSize: keystone.DefaultBatchSize,
		StatsPrefix:        "keystone:admission",
		StatsTTL:           24 * time.Hour,
		ConfigPoll:         5 * time.Second,
		JanitorEvery:       time.Minute,
	}
}

// AddFlags binds the Options fields to flags on fs.
func (opts *Options) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}
	opts.fs = fs

	fs.StringVar(&opts.ListenAddr, "listen-addr", opts.ListenAddr, "Address the HTTP server listens on.")
	fs.StringVar(&opts.MetricsPath, "metrics-path", opts.MetricsPath, "Path serving Prometheus metrics. Empty disables it.")

	fs.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug, info, warn, error.")
	fs.BoolVar(&opts.Development, "development", opts.Development, "Human-readable development logging.")

	fs.IntVar(&opts.MaxRequests, "max-requests", opts.MaxRequests, "Requests admitted per client per window.")
	fs.DurationVar(&opts.Window, "window", opts.Window, "Admission window.")
	fs.IntVar(&opts.FixMaxRequests, "fix-max-requests", opts.FixMaxRequests, "Auto-fix requests admitted per client per window.")
	fs.DurationVar(&opts.FixWindow, "fix-window", opts.FixWindow, "Auto-fix admission window.")

	fs.DurationVar(&opts.DebounceDelay, "debounce-delay", opts.DebounceDelay, "Delay before a debounced auto-fix starts.")
	fs.IntVar(&opts.MaxWorkers, "max-workers", opts.MaxWorkers, "Units running at once across all batches.")
	fs.DurationVar(&opts.UnitTimeout, "unit-timeout", opts.UnitTimeout, "Deadline for each independent unit. 0 disables it.")

	fs.StringVar(&opts.GeneratorURL, "generator-url", opts.GeneratorURL, "Text generation endpoint.")
	fs.StringVar(&opts.GeneratorAPIKey, "generator-api-key", opts.GeneratorAPIKey, "Bearer token for the text generation endpoint.")
	fs.DurationVar(&opts.GeneratorTimeout, "generator-timeout", opts.GeneratorTimeout, "Timeout of one generation call.")
	fs.Float64Var(&opts.GeneratorRPS, "generator-rps", opts.GeneratorRPS, "Generation calls per second.")
	fs.IntVar(&opts.GeneratorBurst, "generator-burst", opts.GeneratorBurst, "Generation call burst.")
	fs.BoolVar(&opts.GeneratorBatch, "generator-batch", opts.GeneratorBatch, "Group concurrent generation calls into batch requests.")
	fs.IntVar(&opts.GeneratorBatchSize, "generator-batch-size", opts.GeneratorBatchSize, "Maximum prompts per batch request.")

	fs.StringVar(&opts.RedisAddr, "redis-addr", opts.RedisAddr, "Redis address for admission stats.")
	fs.StringVar(&opts.RedisPassword, "redis-password", opts.RedisPassword, "Redis password.")
	fs.IntVar(&opts.RedisDB, "redis-db", opts.RedisDB, "Redis database.")
	fs.StringVar(&opts.StatsPrefix, "stats-prefix", opts.StatsPrefix, "Key prefix for admission stats.")
	fs.DurationVar(&opts.StatsTTL, "stats-ttl", opts.StatsTTL, "Expiry of per-minute stats buckets.")

	fs.StringVar(&opts.ConfigFile, "config", opts.ConfigFile, "Runtime configuration file watched for changes.")
	fs.DurationVar(&opts.ConfigPoll, "config-poll", opts.ConfigPoll, "Poll interval for the runtime configuration file.")
	fs.DurationVar(&opts.JanitorEvery, "janitor-interval", opts.JanitorEvery, "Interval of the expired cache entry sweep.")
}

// Complete fills every flag not given on the command line from its
// environment variable.
func (opts *Options) Complete() error {
	var firstErr error
	opts.fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || firstErr != nil {
			return
		}
		v, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}
		if err := f.Value.Set(v); err != nil {
			firstErr = keystone.NewErrInvalidConfig(envName(f.Name), v)
		}
	})
	return firstErr
}

// Validate checks value ranges.
func (opts *Options) Validate() error {
	switch {
	case opts.ListenAddr == "":
		return keystone.NewErrInvalidConfig("listen-addr", opts.ListenAddr)
	case opts.MaxRequests <= 0:
		return keystone.NewErrInvalidConfig("max-requests", opts.MaxRequests)
	case opts.FixMaxRequests <= 0:
		return keystone.NewErrInvalidConfig("fix-max-requests", opts.FixMaxRequests)
	case opts.Window <= 0:
		return keystone.NewErrInvalidConfig("window", opts.Window)
	case opts.FixWindow <= 0:
		return keystone.NewErrInvalidConfig("fix-window", opts.FixWindow)
	case opts.MaxWorkers <= 0:
		return keystone.NewErrInvalidConfig("max-workers", opts.MaxWorkers)
	case opts.GeneratorRPS <= 0:
		return keystone.NewErrInvalidConfig("generator-rps", opts.GeneratorRPS)
	}
	return nil
}

func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
