// main.go: keystone HTTP service
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/agilira/keystone"
	"github.com/agilira/keystone/admissionstats"
	keystoneotel "github.com/agilira/keystone/otel"
	"github.com/agilira/keystone/server"
	"github.com/agilira/keystone/stages"
	"github.com/agilira/keystone/textgen"
	"github.com/agilira/keystone/zaplog"
)

// latencyBuckets are histogram boundaries in nanoseconds.
var latencyBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000}

func main() {
	opts := NewOptions()
	opts.AddFlags(pflag.CommandLine)
	pflag.Parse()

	if err := opts.Complete(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	zl, err := zaplog.Build(opts.Development, opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(opts, zl); err != nil {
		zl.Error("keystone stopped", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
}

func run(opts *Options, zl *zap.Logger) error {
	logger := zaplog.New(zl)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exporter, err := prometheus.New()
	if err != nil {
		return err
	}
	providerOpts := make([]sdkmetric.Option, 0, 4)
	providerOpts = append(providerOpts, sdkmetric.WithReader(exporter))
	for _, name := range []string{"keystone_cache_get_latency_ns", "keystone_cache_set_latency_ns", "keystone_cache_delete_latency_ns"} {
		providerOpts = append(providerOpts, sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: name},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyBuckets}},
		)))
	}
	provider := sdkmetric.NewMeterProvider(providerOpts...)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("meter provider shutdown failed", "error", err)
		}
	}()

	collector, err := keystoneotel.NewCollector(provider)
	if err != nil {
		return err
	}

	registry := keystone.NewRegistry(keystone.RegistryConfig{
		Logger:           logger.Named("cache"),
		MetricsCollector: collector,
		JanitorInterval:  opts.JanitorEvery,
	})
	if err := keystone.RegisterDefaults(registry); err != nil {
		return err
	}
	registry.StartJanitor(ctx)

	admission := keystone.NewAdmissionController(keystone.AdmissionConfig{
		MaxRequests: opts.MaxRequests,
		Window:      opts.Window,
		Logger:      logger.Named("admission"),
	})
	admission.StartJanitor(ctx)
	fixAdmission := keystone.NewAdmissionController(keystone.AdmissionConfig{
		MaxRequests: opts.FixMaxRequests,
		Window:      opts.FixWindow,
		Logger:      logger.Named("admission"),
	})
	fixAdmission.StartJanitor(ctx)

	var stats keystone.AdmissionStatsStore
	if opts.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}
		stats = admissionstats.NewRedisStore(rdb,
			admissionstats.WithRedisPrefix(opts.StatsPrefix),
			admissionstats.WithRedisTTL(opts.StatsTTL),
			admissionstats.WithRedisMinuteBuckets(true),
		)
	} else {
		stats = admissionstats.NewMemoryStore()
	}

	pool := keystone.NewBatchCoordinator(keystone.BatchConfig{
		MaxWorkers:  opts.MaxWorkers,
		UnitTimeout: opts.UnitTimeout,
		Logger:      logger.Named("batch"),
	})

	orch := keystone.NewOrchestrator(keystone.OrchestratorConfig{Logger: logger.Named("pipeline")}, pool)
	stages.Register(orch)

	if opts.GeneratorURL != "" {
		closeGen, err := registerRewrite(orch, registry, opts, logger)
		if err != nil {
			return err
		}
		defer closeGen()
	} else {
		logger.Warn("no generator configured, rewrite fixes will fail", "flag", "--generator-url")
	}

	srv, err := server.New(server.Options{
		Registry:     registry,
		Orchestrator: orch,
		Debounce:     keystone.DebounceConfig{Delay: opts.DebounceDelay},
		Admission:    admission,
		FixAdmission: fixAdmission,
		Stats:        stats,
		Recorder:     collector,
		Logger:       logger.Named("http"),
	})
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	if opts.ConfigFile != "" {
		hot, err := keystone.NewHotConfig(keystone.HotConfigOptions{
			ConfigPath:   opts.ConfigFile,
			PollInterval: opts.ConfigPoll,
			Registry:     registry,
			Admission:    admission,
			RouteAdmission: map[string]*keystone.AdmissionController{
				"auto_fix": fixAdmission,
			},
			Debounce: srv,
			Logger:   logger.Named("config"),
		})
		if err != nil {
			return err
		}
		if err := hot.Start(); err != nil {
			return err
		}
		defer func() { _ = hot.Stop() }()
	}

	mux := http.NewServeMux()
	mux.Handle("/", srv.Handler())
	if opts.MetricsPath != "" {
		mux.Handle(opts.MetricsPath, promhttp.Handler())
	}

	httpSrv := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      opts.UnitTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("keystone listening",
		"addr", opts.ListenAddr,
		"version", keystone.Version,
		"max_requests", opts.MaxRequests,
		"window", opts.Window.String(),
		"max_workers", opts.MaxWorkers,
		"redis_stats", opts.RedisAddr != "")

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// registerRewrite wires the generator-backed stages and returns a cleanup func.
func registerRewrite(orch *keystone.Orchestrator, registry *keystone.Registry, opts *Options, logger *zaplog.Logger) (func(), error) {
	httpGen, err := textgen.NewHTTPGenerator(textgen.HTTPConfig{
		Endpoint:          opts.GeneratorURL,
		APIKey:            opts.GeneratorAPIKey,
		Timeout:           opts.GeneratorTimeout,
		RequestsPerSecond: opts.GeneratorRPS,
		Burst:             opts.GeneratorBurst,
		Logger:            logger.Named("textgen"),
	})
	if err != nil {
		return nil, err
	}

	var gen textgen.Generator = httpGen
	cleanup := func() {}
	if opts.GeneratorBatch {
		// batch calls must not wait on slots held by the stages they serve
		batched := textgen.NewBatched(httpGen, keystone.BatcherConfig{
			MaxBatch: opts.GeneratorBatchSize,
			Logger:   logger.Named("textgen"),
		}, nil)
		gen = batched
		cleanup = func() { _ = batched.Close() }
	}

	prompts, err := keystone.Lookup[string](registry, keystone.CachePrompt)
	if err != nil {
		return nil, err
	}
	responses, err := keystone.Lookup[string](registry, keystone.CacheAIResponse)
	if err != nil {
		return nil, err
	}
	rewrite, err := textgen.NewRewriteStage(textgen.RewriteConfig{
		Generator: gen,
		Prompts:   prompts,
		Responses: responses,
	})
	if err != nil {
		return nil, err
	}
	for _, fixType := range []string{"rewrite", "summary", "experience", "tailor"} {
		orch.Handle(fixType, rewrite)
	}
	return cleanup, nil
}
