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
	"testing"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/baton/pkg/engine"
)

func TestWorkflowCacheHitMissAndEviction(t *testing.T) {
	wc, err := NewWorkflowCache(1)
	require.NoError(t, err)

	_, ok := wc.Get("missing")
	assert.False(t, ok)

	wf := &engine.Workflow{Name: "a"}
	wc.Put("a", wf)
	got, ok := wc.Get("a")
	assert.True(t, ok)
	assert.Same(t, wf, got)

	wc.Put("b", &engine.Workflow{Name: "b"})
	_, ok = wc.Get("a")
	assert.False(t, ok, "a should have been evicted once capacity 1 was exceeded")

	stats := wc.Stats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 1, stats.Capacity)
}

func TestTransitionCacheExpiresByTTL(t *testing.T) {
	tc := NewTransitionCache(10, 10*time.Millisecond)
	key := engine.TransitionKey{From: "A", To: "B"}
	tc.Put(key, TransitionPath{From: "A", To: "B"})

	_, ok := tc.Get(key)
	assert.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = tc.Get(key)
	assert.False(t, ok, "entry should have expired")
}

func TestProgramCacheCompilesOnceAndRecordsTiming(t *testing.T) {
	pc, err := NewProgramCache(10)
	require.NoError(t, err)

	compiles := 0
	compile := func() (*vm.Program, error) {
		compiles++
		return expr.Compile("1 + 1")
	}

	_, err = pc.GetOrCompile("1 + 1", compile)
	require.NoError(t, err)
	_, err = pc.GetOrCompile("1 + 1", compile)
	require.NoError(t, err)

	assert.Equal(t, 1, compiles, "second call should hit the cache, not recompile")

	timing, ok := pc.Timing("1 + 1")
	require.True(t, ok)
	assert.Equal(t, 1, timing.Count)
}

func TestManagerStatsAndClearAll(t *testing.T) {
	mgr, err := NewManager(ManagerConfig{
		WorkflowCapacity:   5,
		TransitionCapacity: 5,
		TransitionTTL:      time.Minute,
		ProgramCapacity:    5,
	})
	require.NoError(t, err)

	mgr.Workflows.Put("a", &engine.Workflow{Name: "a"})
	mgr.Transitions.Put(engine.TransitionKey{From: "A", To: "B"}, TransitionPath{From: "A", To: "B"})

	stats := mgr.Stats()
	assert.Equal(t, 1, stats.Workflows.Size)
	assert.Equal(t, 1, stats.Transitions.Size)

	mgr.ClearAll()
	_, ok := mgr.Workflows.Get("a")
	assert.False(t, ok)
}
