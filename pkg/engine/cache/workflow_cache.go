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
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tombee/baton/pkg/engine"
)

// WorkflowCache is an LRU cache of immutable Workflow definitions, keyed by
// name. Safe for concurrent Get/Put; golang-lru/v2's Cache type is
// internally mutex-guarded.
type WorkflowCache struct {
	lru   *lru.Cache[engine.WorkflowName, *engine.Workflow]
	stats Stats
}

// NewWorkflowCache creates a workflow cache with the given capacity
// (default 100).
func NewWorkflowCache(capacity int) (*WorkflowCache, error) {
	if capacity <= 0 {
		capacity = 100
	}
	wc := &WorkflowCache{stats: Stats{capacity: capacity}}
	l, err := lru.NewWithEvict[engine.WorkflowName, *engine.Workflow](capacity, func(engine.WorkflowName, *engine.Workflow) {
		wc.stats.recordEviction()
	})
	if err != nil {
		return nil, err
	}
	wc.lru = l
	return wc, nil
}

// Get returns the cached workflow for name, recording a hit or a miss.
func (c *WorkflowCache) Get(name engine.WorkflowName) (*engine.Workflow, bool) {
	v, ok := c.lru.Get(name)
	if ok {
		c.stats.recordHit()
		return v, true
	}
	c.stats.recordMiss()
	return nil, false
}

// Put stores wf under name, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *WorkflowCache) Put(name engine.WorkflowName, wf *engine.Workflow) {
	c.lru.Add(name, wf)
}

// Remove evicts name, if present.
func (c *WorkflowCache) Remove(name engine.WorkflowName) {
	c.lru.Remove(name)
}

// Clear empties the cache, incrementing the eviction counter once per
// removed entry.
func (c *WorkflowCache) Clear() {
	for _, k := range c.lru.Keys() {
		c.lru.Remove(k)
	}
}

// Stats returns a point-in-time snapshot of this cache's counters.
func (c *WorkflowCache) Stats() StatsSnapshot {
	return c.stats.snapshot(c.lru.Len())
}
