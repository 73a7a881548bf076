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

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/baton/pkg/engine"
)

func testRun(t *testing.T, name engine.WorkflowName, states ...engine.StateID) *engine.WorkflowRun {
	t.Helper()
	stateMap := make(map[engine.StateID]engine.State, len(states))
	for _, s := range states {
		stateMap[s] = engine.State{ID: s, Type: engine.StateNormal, IsTerminal: true}
	}
	wf, err := engine.NewWorkflow(name, "", states[0], stateMap, nil, engine.DefaultValidateOptions())
	require.NoError(t, err)
	run := engine.NewRun(engine.WorkflowRunID("run-"+string(name)), wf, nil)
	for _, s := range states[1:] {
		run.AppendHistory(s, time.Now())
		run.CurrentState = s
	}
	return run
}

func TestPipelineStartAndCompleteRunFoldsRollups(t *testing.T) {
	p := NewPipeline(engine.MetricsConfig{})
	run := testRun(t, "greet", "Start", "End")

	p.StartRun(run)
	p.RecordStateDuration(run.ID, "Start", 50*time.Millisecond)
	run.Complete()
	p.CompleteRun(run)

	snap := p.Snapshot(run.ID)
	require.NotNil(t, snap.Run)
	assert.Equal(t, engine.StatusCompleted, snap.Run.Status)
	assert.Equal(t, 50*time.Millisecond, snap.Run.StateDurations["Start"])

	require.NotNil(t, snap.Workflow)
	assert.Equal(t, 1, snap.Workflow.TotalsByStatus[engine.StatusCompleted])
	assert.Len(t, snap.Workflow.HottestStates, 2)

	assert.Equal(t, 1, snap.Global.TotalsByStatus[engine.StatusCompleted])
}

func TestRecordStateDurationIgnoresUnknownRun(t *testing.T) {
	p := NewPipeline(engine.MetricsConfig{})
	p.RecordStateDuration("missing", "Start", time.Second)
	snap := p.Snapshot("missing")
	assert.Nil(t, snap.Run)
}

func TestRecordStateDurationCapsAtConfiguredLimit(t *testing.T) {
	p := NewPipeline(engine.MetricsConfig{MaxStateDurationsPerRun: 1})
	run := testRun(t, "cap", "A", "B")
	p.StartRun(run)

	p.RecordStateDuration(run.ID, "A", time.Second)
	p.RecordStateDuration(run.ID, "B", time.Second)

	snap := p.Snapshot(run.ID)
	require.NotNil(t, snap.Run)
	assert.Len(t, snap.Run.StateDurations, 1)
	assert.Contains(t, snap.Run.StateDurations, engine.StateID("A"))
}

func TestEvictRunsLockedDropsOldestFirst(t *testing.T) {
	p := NewPipeline(engine.MetricsConfig{MaxRunMetrics: 1})

	first := testRun(t, "a", "Start")
	p.StartRun(first)
	second := testRun(t, "b", "Start")
	p.StartRun(second)

	assert.Nil(t, p.Snapshot(first.ID).Run)
	require.NotNil(t, p.Snapshot(second.ID).Run)
}

func TestCostTrackingSkippedWhenNeverStarted(t *testing.T) {
	p := NewPipeline(engine.MetricsConfig{})
	run := testRun(t, "no-cost", "Start", "End")
	p.StartRun(run)
	run.Complete()
	p.CompleteRun(run)

	snap := p.Snapshot(run.ID)
	assert.Nil(t, snap.Run.CostMetrics)
	assert.Empty(t, snap.Global.CostTrend.Samples)
}

func TestCostTrackingFoldsIntoGlobalTrends(t *testing.T) {
	p := NewPipeline(engine.MetricsConfig{})
	run := testRun(t, "costed", "Start", "End")

	p.StartRun(run)
	cm := p.StartCostTracking(run.ID, "session-1")
	require.NotNil(t, cm)
	p.RecordActionCost(run.ID, "prompt:x", engine.TokenUsage{InputTokens: 100, OutputTokens: 50}, 0.02)

	run.Complete()
	p.CompleteRun(run)

	snap := p.Snapshot(run.ID)
	require.NotNil(t, snap.Run.CostMetrics)
	assert.Equal(t, 0.02, snap.Run.CostMetrics.TotalCost)
	assert.Len(t, snap.Global.CostTrend.Samples, 1)
	assert.Len(t, snap.Global.TokenEfficiencyTrend.Samples, 1)
	assert.Len(t, snap.Global.AvgCostPerCallTrend.Samples, 1)
}

func TestRegistryExposesExporterMetrics(t *testing.T) {
	p := NewPipeline(engine.MetricsConfig{})
	run := testRun(t, "exported", "Start", "End")
	p.StartRun(run)
	run.Complete()
	p.CompleteRun(run)

	families, err := p.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "baton_engine_runs_total" {
			found = true
		}
	}
	assert.True(t, found, "expected baton_engine_runs_total to be registered")
}
