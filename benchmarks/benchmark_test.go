// benchmark_test.go: cache, memoization and admission benchmarks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package benchmarks

import (
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agilira/keystone"
)

func warmup(c benchCache, keySpace int) {
	g := newKeyGen(1.01, keySpace)
	for i := 0; i < keySpace/2; i++ {
		c.Set(g.next(), i)
	}
}

func runMixed(b *testing.B, c benchCache, keySpace int, readRatio float64) {
	defer c.Close()
	warmup(c, keySpace)

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		g := newKeyGen(1.01, keySpace)
		i := 0
		for pb.Next() {
			key := g.next()
			if rand.Float64() < readRatio {
				c.Get(key)
			} else {
				c.Set(key, i)
				i++
			}
		}
	})
}

// BenchmarkCaches_Mixed compares caches on the prompt-cache shape and a larger one.
func BenchmarkCaches_Mixed(b *testing.B) {
	shapes := []struct {
		name     string
		size     int
		keySpace int
	}{
		{"prompt", promptCacheSize, smallKeySpace},
		{"large", largeCacheSize, largeKeySpace},
	}
	ratios := []struct {
		name  string
		ratio float64
	}{
		{"WriteHeavy", writeHeavy},
		{"Balanced", balanced},
		{"ReadHeavy", readHeavy},
	}

	for _, shape := range shapes {
		for _, r := range ratios {
			for _, f := range factories {
				b.Run(shape.name+"/"+r.name+"/"+f.name, func(b *testing.B) {
					runMixed(b, f.new(shape.size, 30*time.Minute), shape.keySpace, r.ratio)
				})
			}
		}
	}
}

// BenchmarkCaches_Get measures reads on a warm cache.
func BenchmarkCaches_Get(b *testing.B) {
	for _, f := range factories {
		b.Run(f.name, func(b *testing.B) {
			c := f.new(generalSize, 0)
			defer c.Close()
			warmup(c, generalSize)

			b.ResetTimer()
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				g := newKeyGen(1.01, generalSize)
				for pb.Next() {
					c.Get(g.next())
				}
			})
		})
	}
}

// BenchmarkGetOrCompute measures memoized lookups with a cheap computation.
func BenchmarkGetOrCompute(b *testing.B) {
	c, err := keystone.NewCache[string](keystone.CacheConfig{MaxSize: promptCacheSize, TTL: 30 * time.Minute})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		g := newKeyGen(1.01, smallKeySpace)
		for pb.Next() {
			key := g.next()
			_, _ = keystone.GetOrCompute(c, key, func() (string, error) {
				return "rendered " + key, nil
			})
		}
	})
}

// BenchmarkKeyOf measures key derivation for a resume-sized payload.
func BenchmarkKeyOf(b *testing.B) {
	resume := map[string]interface{}{
		"summary": "Backend developer with ten years of experience",
		"skills":  []string{"Go", "Kubernetes", "PostgreSQL", "Redis"},
		"experience": []map[string]interface{}{
			{"title": "Engineer", "company": "Acme", "description": "Built services"},
		},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		keystone.KeyOf("autofix", resume, "job description")
	}
}

// BenchmarkAdmission_Clients measures Admit across many clients.
func BenchmarkAdmission_Clients(b *testing.B) {
	ac := keystone.NewAdmissionController(keystone.AdmissionConfig{MaxRequests: 1_000_000, Window: time.Minute})
	var seq atomic.Uint64

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ac.Admit("10.0.0." + strconv.FormatUint(seq.Add(1)%256, 10))
		}
	})
}

// BenchmarkAdmission_SingleClient measures contention on one client log.
func BenchmarkAdmission_SingleClient(b *testing.B) {
	ac := keystone.NewAdmissionController(keystone.AdmissionConfig{MaxRequests: 10, Window: time.Minute})

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ac.Admit("203.0.113.7")
		}
	})
}
