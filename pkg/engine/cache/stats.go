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

// Package cache provides the engine's three LRU caches: compiled workflows,
// resolved transition paths, and compiled CEL/expr programs. Each is
// backed by hashicorp/golang-lru/v2 and reports hit/miss/eviction counters
// through a shared Stats type.
package cache

import "sync/atomic"

// Stats holds the hit/miss/eviction counters for one cache. All fields are
// updated atomically so snapshot is safe to call concurrently with Get/Put.
type Stats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	capacity  int
}

// StatsSnapshot is the point-in-time read of a Stats.
type StatsSnapshot struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	Capacity  int
}

// HitRate returns hits/(hits+misses), or 0 when there have been no lookups.
func (s StatsSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *Stats) recordHit()      { s.hits.Add(1) }
func (s *Stats) recordMiss()     { s.misses.Add(1) }
func (s *Stats) recordEviction() { s.evictions.Add(1) }

func (s *Stats) snapshot(size int) StatsSnapshot {
	return StatsSnapshot{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
		Size:      size,
		Capacity:  s.capacity,
	}
}
