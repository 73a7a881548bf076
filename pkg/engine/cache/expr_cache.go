// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/expr-lang/expr/vm"
)

// maxCompileSamples bounds the per-expression compile-time ring buffer so a
// hot expression that's recompiled many times (cache churn under heavy
// eviction pressure) can't grow its timing history without bound.
const maxCompileSamples = 32

// CompileTiming summarizes how long an expression has taken to compile
// across the most recent compilations observed for it (at most
// maxCompileSamples).
type CompileTiming struct {
	Count  int
	Mean   time.Duration
	Median time.Duration
}

type compileSamples struct {
	mu      sync.Mutex
	samples []time.Duration
}

func (c *compileSamples) record(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.samples) >= maxCompileSamples {
		c.samples = c.samples[1:]
	}
	c.samples = append(c.samples, d)
}

func (c *compileSamples) summary() CompileTiming {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.samples)
	if n == 0 {
		return CompileTiming{}
	}
	sorted := make([]time.Duration, n)
	copy(sorted, c.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, s := range sorted {
		sum += s
	}
	return CompileTiming{
		Count:  n,
		Mean:   sum / time.Duration(n),
		Median: sorted[n/2],
	}
}

// ProgramCache is an LRU cache of compiled expr-lang programs, keyed by the
// source expression string. It also tracks per-expression compilation
// timing so callers can see that compilation (roughly 100x the cost of an
// evaluation) is actually being amortized.
type ProgramCache struct {
	lru     *lru.Cache[string, *vm.Program]
	stats   Stats
	timings sync.Map // string -> *compileSamples
}

// NewProgramCache creates a program cache with the given capacity
// (default 500).
func NewProgramCache(capacity int) (*ProgramCache, error) {
	if capacity <= 0 {
		capacity = 500
	}
	pc := &ProgramCache{stats: Stats{capacity: capacity}}
	l, err := lru.NewWithEvict[string, *vm.Program](capacity, func(string, *vm.Program) {
		pc.stats.recordEviction()
	})
	if err != nil {
		return nil, err
	}
	pc.lru = l
	return pc, nil
}

// GetOrCompile returns the cached program for expression, compiling (via
// compileFn) and storing it on a miss.
func (c *ProgramCache) GetOrCompile(expression string, compileFn func() (*vm.Program, error)) (*vm.Program, error) {
	if prog, ok := c.lru.Get(expression); ok {
		c.stats.recordHit()
		return prog, nil
	}
	c.stats.recordMiss()

	start := time.Now()
	prog, err := compileFn()
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	samplesVal, _ := c.timings.LoadOrStore(expression, &compileSamples{})
	samplesVal.(*compileSamples).record(elapsed)

	c.lru.Add(expression, prog)
	return prog, nil
}

// Timing returns the compile-time summary recorded for expression, if any.
func (c *ProgramCache) Timing(expression string) (CompileTiming, bool) {
	v, ok := c.timings.Load(expression)
	if !ok {
		return CompileTiming{}, false
	}
	return v.(*compileSamples).summary(), true
}

// Clear empties the cache. Compile timing history is retained since it
// isn't part of the cached-entry contract.
func (c *ProgramCache) Clear() {
	for _, k := range c.lru.Keys() {
		c.lru.Remove(k)
	}
}

// Stats returns a point-in-time snapshot of this cache's counters.
func (c *ProgramCache) Stats() StatsSnapshot {
	return c.stats.snapshot(c.lru.Len())
}
