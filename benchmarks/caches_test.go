// caches_test.go: adapters that put every cache behind one interface
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package benchmarks

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/agilira/keystone"
	ristretto "github.com/dgraph-io/ristretto/v2"
	"github.com/maypok86/otter/v2"
)

const (
	// Capacities of the registry caches
	promptCacheSize = 100
	generalSize     = 1_000
	largeCacheSize  = 10_000

	// Key spaces
	smallKeySpace = 200
	largeKeySpace = 20_000

	// Read ratios
	writeHeavy = 0.1
	balanced   = 0.5
	readHeavy  = 0.9
)

// keyGen draws keys from a Zipf distribution, so a few prompts are much
// more popular than the rest.
type keyGen struct {
	zipf *rand.Zipf
}

func newKeyGen(s float64, keySpace int) *keyGen {
	if s <= 1.0 {
		s = 1.01
	}
	if keySpace < 2 {
		keySpace = 2
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	z := rand.NewZipf(r, s, 1.0, uint64(keySpace-1))
	if z == nil {
		panic(fmt.Sprintf("invalid zipf parameters s=%f keySpace=%d", s, keySpace))
	}
	return &keyGen{zipf: z}
}

func (g *keyGen) next() string {
	return "prompt:" + strconv.FormatUint(g.zipf.Uint64(), 10)
}

// benchCache is the common surface used by the workloads.
type benchCache interface {
	Set(key string, value int)
	Get(key string) (int, bool)
	Name() string
	Close()
}

type keystoneCache struct {
	c *keystone.Cache[int]
}

func newKeystoneCache(size int, ttl time.Duration) benchCache {
	c, err := keystone.NewCache[int](keystone.CacheConfig{Name: "bench", MaxSize: size, TTL: ttl})
	if err != nil {
		panic(err)
	}
	return &keystoneCache{c: c}
}

func (k *keystoneCache) Set(key string, value int)  { k.c.Set(key, value) }
func (k *keystoneCache) Get(key string) (int, bool) { return k.c.Get(key) }
func (k *keystoneCache) Name() string               { return "Keystone-LRU" }
func (k *keystoneCache) Close()                     {}

type otterCache struct {
	c *otter.Cache[string, int]
}

func newOtterCache(size int, ttl time.Duration) benchCache {
	opts := &otter.Options[string, int]{MaximumSize: size}
	if ttl > 0 {
		opts.ExpiryCalculator = otter.ExpiryWriting[string, int](ttl)
	}
	return &otterCache{c: otter.Must(opts)}
}

func (o *otterCache) Set(key string, value int)  { o.c.Set(key, value) }
func (o *otterCache) Get(key string) (int, bool) { return o.c.GetIfPresent(key) }
func (o *otterCache) Name() string               { return "Otter" }
func (o *otterCache) Close()                     {}

type ristrettoCache struct {
	c   *ristretto.Cache[string, int]
	ttl time.Duration
}

func newRistrettoCache(size int, ttl time.Duration) benchCache {
	c, err := ristretto.NewCache(&ristretto.Config[string, int]{
		NumCounters: int64(size * 10),
		MaxCost:     int64(size),
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	return &ristrettoCache{c: c, ttl: ttl}
}

func (r *ristrettoCache) Set(key string, value int) {
	if r.ttl > 0 {
		r.c.SetWithTTL(key, value, 1, r.ttl)
		return
	}
	r.c.Set(key, value, 1)
}

func (r *ristrettoCache) Get(key string) (int, bool) { return r.c.Get(key) }
func (r *ristrettoCache) Name() string               { return "Ristretto" }
func (r *ristrettoCache) Close()                     { r.c.Close() }

type cacheFactory struct {
	name string
	new  func(size int, ttl time.Duration) benchCache
}

var factories = []cacheFactory{
	{"Keystone", newKeystoneCache},
	{"Otter", newOtterCache},
	{"Ristretto", newRistrettoCache},
}
