// collector.go: OpenTelemetry implementation of keystone.MetricsCollector
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package otel

import (
	"context"
	"errors"

	"github.com/agilira/keystone"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Collector records cache and admission metrics to OpenTelemetry.
// Every cache data point carries a "cache" attribute with the cache name,
// so one collector serves a whole keystone.Registry.
//
// Thread-safety: Safe for concurrent use by multiple goroutines.
type Collector struct {
	getLatency    metric.Int64Histogram
	setLatency    metric.Int64Histogram
	deleteLatency metric.Int64Histogram
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	evictions     metric.Int64Counter
	expirations   metric.Int64Counter

	admitted metric.Int64Counter
	rejected metric.Int64Counter
}

// Options for configuring Collector.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/agilira/keystone"
	MeterName string
}

// Option is a functional option for configuring Collector.
type Option func(*Options)

// WithMeterName sets a custom meter name.
func WithMeterName(name string) Option {
	return func(o *Options) {
		o.MeterName = name
	}
}

// NewCollector creates the instruments on a meter from provider.
// Returns an error if provider is nil or an instrument cannot be created.
//
// Example:
//
//	exporter, _ := prometheus.New()
//	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
//	collector, err := otel.NewCollector(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg := keystone.NewRegistry(keystone.RegistryConfig{MetricsCollector: collector})
func NewCollector(provider metric.MeterProvider, opts ...Option) (*Collector, error) {
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}

	options := Options{
		MeterName: "github.com/agilira/keystone",
	}
	for _, opt := range opts {
		opt(&options)
	}

	meter := provider.Meter(options.MeterName)
	c := &Collector{}

	var err error
	histograms := []struct {
		dst  *metric.Int64Histogram
		name string
		desc string
	}{
		{&c.getLatency, "keystone_cache_get_latency_ns", "Latency of cache Get operations in nanoseconds"},
		{&c.setLatency, "keystone_cache_set_latency_ns", "Latency of cache Set operations in nanoseconds"},
		{&c.deleteLatency, "keystone_cache_delete_latency_ns", "Latency of cache Delete operations in nanoseconds"},
	}
	for _, h := range histograms {
		*h.dst, err = meter.Int64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("ns"))
		if err != nil {
			return nil, err
		}
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&c.hits, "keystone_cache_hits_total", "Total number of cache hits"},
		{&c.misses, "keystone_cache_misses_total", "Total number of cache misses"},
		{&c.evictions, "keystone_cache_evictions_total", "Total number of capacity evictions"},
		{&c.expirations, "keystone_cache_expirations_total", "Total number of TTL-based expirations"},
		{&c.admitted, "keystone_admission_admitted_total", "Total number of admitted requests"},
		{&c.rejected, "keystone_admission_rejected_total", "Total number of rejected requests"},
	}
	for _, ctr := range counters {
		*ctr.dst, err = meter.Int64Counter(ctr.name, metric.WithDescription(ctr.desc))
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func cacheAttr(cache string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("cache", cache))
}

// RecordGet records a Get operation and its hit/miss outcome.
func (c *Collector) RecordGet(cache string, latencyNs int64, hit bool) {
	ctx := context.Background()
	attrs := cacheAttr(cache)
	c.getLatency.Record(ctx, latencyNs, attrs)
	if hit {
		c.hits.Add(ctx, 1, attrs)
	} else {
		c.misses.Add(ctx, 1, attrs)
	}
}

// RecordSet records a Set operation.
func (c *Collector) RecordSet(cache string, latencyNs int64) {
	c.setLatency.Record(context.Background(), latencyNs, cacheAttr(cache))
}

// RecordDelete records a Delete operation.
func (c *Collector) RecordDelete(cache string, latencyNs int64) {
	c.deleteLatency.Record(context.Background(), latencyNs, cacheAttr(cache))
}

// RecordEviction records a capacity eviction.
func (c *Collector) RecordEviction(cache string) {
	c.evictions.Add(context.Background(), 1, cacheAttr(cache))
}

// RecordExpiration records an expired entry being removed.
func (c *Collector) RecordExpiration(cache string) {
	c.expirations.Add(context.Background(), 1, cacheAttr(cache))
}

// RecordAdmission records one admission decision for route.
func (c *Collector) RecordAdmission(route string, allowed bool) {
	attrs := metric.WithAttributes(attribute.String("route", route))
	if allowed {
		c.admitted.Add(context.Background(), 1, attrs)
		return
	}
	c.rejected.Add(context.Background(), 1, attrs)
}

var _ keystone.MetricsCollector = (*Collector)(nil)
