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

import "time"

// Manager owns the three caches the engine shares across every run:
// workflows, resolved transition paths, and compiled expr programs. It is
// safe for concurrent use; each sub-cache guards its own short critical
// section.
type Manager struct {
	Workflows   *WorkflowCache
	Transitions *TransitionCache
	Programs    *ProgramCache
}

// ManagerConfig sizes each of the three caches.
type ManagerConfig struct {
	WorkflowCapacity   int
	TransitionCapacity int
	TransitionTTL      time.Duration
	ProgramCapacity    int
}

// NewManager builds a Manager from cfg, applying each cache's default
// capacity for any zero field.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	wc, err := NewWorkflowCache(cfg.WorkflowCapacity)
	if err != nil {
		return nil, err
	}
	pc, err := NewProgramCache(cfg.ProgramCapacity)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Workflows:   wc,
		Transitions: NewTransitionCache(cfg.TransitionCapacity, cfg.TransitionTTL),
		Programs:    pc,
	}, nil
}

// ManagerStats is the combined stats snapshot across all three caches.
type ManagerStats struct {
	Workflows   StatsSnapshot
	Transitions StatsSnapshot
	Programs    StatsSnapshot
}

// Stats returns a snapshot of every sub-cache's counters.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		Workflows:   m.Workflows.Stats(),
		Transitions: m.Transitions.Stats(),
		Programs:    m.Programs.Stats(),
	}
}

// ClearAll empties every cache. Each cache's eviction count is incremented
// once per entry removed (each sub-cache's Clear routes through its
// eviction callback).
func (m *Manager) ClearAll() {
	m.Workflows.Clear()
	m.Transitions.Clear()
	m.Programs.Clear()
}
