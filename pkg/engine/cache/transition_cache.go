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
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tombee/baton/pkg/engine"
)

// TransitionPath is the cached result of resolving which conditions guard
// the edge between two states, along with when it was cached.
type TransitionPath struct {
	From       engine.StateID
	To         engine.StateID
	Conditions []string
	CachedAt   time.Time
}

// TransitionCache is an LRU-with-TTL cache of TransitionPath, keyed by
// TransitionKey. Entries older than the configured TTL are treated as
// misses and evicted on access.
type TransitionCache struct {
	lru   *expirable.LRU[engine.TransitionKey, TransitionPath]
	stats Stats
}

// NewTransitionCache creates a transition cache with the given capacity and
// TTL (defaults: 1000 entries, 5 minutes).
func NewTransitionCache(capacity int, ttl time.Duration) *TransitionCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	tc := &TransitionCache{stats: Stats{capacity: capacity}}
	tc.lru = expirable.NewLRU[engine.TransitionKey, TransitionPath](capacity, func(engine.TransitionKey, TransitionPath) {
		tc.stats.recordEviction()
	}, ttl)
	return tc
}

// Get returns the cached path for key. A miss is recorded both for an
// absent key and for one that expired since insertion; expirable.LRU
// already hides expired entries from Get, so the two cases are
// indistinguishable here. On a miss the key is removed, so an expired
// entry is evicted at the moment it is read.
func (c *TransitionCache) Get(key engine.TransitionKey) (TransitionPath, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.stats.recordHit()
		return v, true
	}
	c.lru.Remove(key)
	c.stats.recordMiss()
	return TransitionPath{}, false
}

// Put stores path under key.
func (c *TransitionCache) Put(key engine.TransitionKey, path TransitionPath) {
	c.lru.Add(key, path)
}

// Clear empties the cache.
func (c *TransitionCache) Clear() {
	for _, k := range c.lru.Keys() {
		c.lru.Remove(k)
	}
}

// Stats returns a point-in-time snapshot of this cache's counters.
func (c *TransitionCache) Stats() StatsSnapshot {
	return c.stats.snapshot(c.lru.Len())
}
