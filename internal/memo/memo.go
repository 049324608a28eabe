// Package memo caches simulation results keyed by their exact inputs.
package memo

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/signalsfoundry/impact-simulator/core"
	"github.com/signalsfoundry/impact-simulator/model"
)

const (
	defaultTTL        = 5 * time.Minute
	defaultMaxEntries = 1024
)

// Result is one memoized simulation.
type Result struct {
	Report     core.ImpactReport
	Trajectory core.Trajectory
}

type inputs struct {
	params     model.AsteroidParameters
	deflection model.DeflectionImpulse
}

type entry struct {
	in      inputs
	result  Result
	updated time.Time
}

// Cache memoizes Simulate results. Both computations are pure, so a hit is
// always equivalent to recomputing; the cache only saves work.
type Cache struct {
	mu         sync.RWMutex
	entries    map[uint64]entry
	ttl        time.Duration
	maxEntries int
	hits       int64
	misses     int64

	now func() time.Time
}

// New creates a cache. Zero ttl or maxEntries use defaults.
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Cache{
		entries:    make(map[uint64]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key hashes the exact float bits of the input tuple. Inputs that differ in
// any bit, including -0 versus +0, hash differently.
func Key(p model.AsteroidParameters, d model.DeflectionImpulse) uint64 {
	var buf [8]byte
	h := xxhash.New()
	for _, v := range []float64{
		p.DiameterMeters, p.DensityKgPerM3, p.VelocityKmPerSec, p.EntryAngleDegrees, d.DeltaVKmPerSec,
	} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Get returns a live cached result for the inputs.
func (c *Cache) Get(p model.AsteroidParameters, d model.DeflectionImpulse) (Result, bool) {
	if c == nil {
		return Result{}, false
	}
	k := Key(p, d)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok || !sameInputs(e.in, inputs{p, d}) || c.now().Sub(e.updated) > c.ttl {
		c.misses++
		return Result{}, false
	}
	c.hits++
	return e.result, true
}

// Put stores a result, evicting the oldest entry when the cache is full.
func (c *Cache) Put(p model.AsteroidParameters, d model.DeflectionImpulse, r Result) {
	if c == nil {
		return
	}
	k := Key(p, d)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[k]; !ok && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[k] = entry{in: inputs{p, d}, result: r, updated: c.now()}
}

// Simulate returns the cached result for the inputs or computes, stores and
// returns a fresh one. hit reports whether the cache served the call.
// Invalid inputs are never cached.
func (c *Cache) Simulate(p model.AsteroidParameters, d model.DeflectionImpulse) (res Result, hit bool, err error) {
	if r, ok := c.Get(p, d); ok {
		return r, true, nil
	}
	report, err := core.ComputeImpactReport(p, d)
	if err != nil {
		return Result{}, false, err
	}
	traj, err := core.ComputeTrajectory(p, d)
	if err != nil {
		return Result{}, false, err
	}
	res = Result{Report: report, Trajectory: traj}
	c.Put(p, d, res)
	return res, false, nil
}

// evictLocked drops expired entries, or the single oldest entry when none
// have expired. c.mu must be held.
func (c *Cache) evictLocked() {
	now := c.now()
	var (
		oldestKey uint64
		oldest    time.Time
		found     bool
		expired   bool
	)
	for k, e := range c.entries {
		if now.Sub(e.updated) > c.ttl {
			delete(c.entries, k)
			expired = true
			continue
		}
		if !found || e.updated.Before(oldest) {
			oldestKey, oldest, found = k, e.updated, true
		}
	}
	if !expired && found {
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of stored entries, live or expired.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	c.mu.RLock()
	hits, misses = c.hits, c.misses
	c.mu.RUnlock()
	return
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (c *Cache) HitRatio() float64 {
	hits, misses := c.Stats()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Purge drops every entry. Counters are kept.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[uint64]entry)
	c.mu.Unlock()
}

func sameInputs(a, b inputs) bool {
	return math.Float64bits(a.params.DiameterMeters) == math.Float64bits(b.params.DiameterMeters) &&
		math.Float64bits(a.params.DensityKgPerM3) == math.Float64bits(b.params.DensityKgPerM3) &&
		math.Float64bits(a.params.VelocityKmPerSec) == math.Float64bits(b.params.VelocityKmPerSec) &&
		math.Float64bits(a.params.EntryAngleDegrees) == math.Float64bits(b.params.EntryAngleDegrees) &&
		math.Float64bits(a.deflection.DeltaVKmPerSec) == math.Float64bits(b.deflection.DeltaVKmPerSec)
}
