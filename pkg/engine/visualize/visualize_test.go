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

package visualize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/baton/pkg/engine"
)

func testRun(t *testing.T) *engine.WorkflowRun {
	t.Helper()
	states := map[engine.StateID]engine.State{
		"Start": {ID: "Start", Description: `Log "hello"`, Type: engine.StateNormal},
		"End":   {ID: "End", IsTerminal: true, Type: engine.StateNormal},
	}
	transitions := []engine.Transition{
		{From: "Start", To: "End", Condition: engine.Always()},
	}
	wf, err := engine.NewWorkflow("greet", "", "Start", states, transitions, engine.DefaultValidateOptions())
	require.NoError(t, err)

	run := engine.NewRun("run-1", wf, nil)
	run.AppendHistory("End", run.StartedAt.Add(50*time.Millisecond))
	run.CurrentState = "End"
	run.TransitionCount = 1
	run.Complete()
	return run
}

func TestBuildTraceStepsAndDwell(t *testing.T) {
	run := testRun(t)
	trace := BuildTrace(run)

	require.Len(t, trace.Steps, 2)
	assert.Equal(t, engine.StateID("Start"), trace.Steps[0].State)
	assert.Equal(t, engine.StateID("End"), trace.Steps[1].State)
	assert.Equal(t, 50*time.Millisecond, trace.Steps[0].Dwell)
	assert.Equal(t, time.Duration(0), trace.Steps[1].Dwell)
	assert.Equal(t, engine.StatusCompleted, trace.Status)
}

func TestMermaidRendersEntryAndExitArrows(t *testing.T) {
	trace := BuildTrace(testRun(t))
	out := trace.Mermaid()

	assert.Contains(t, out, "stateDiagram-v2")
	assert.Contains(t, out, "[*] --> Start")
	assert.Contains(t, out, "Start --> End: 50ms")
	assert.Contains(t, out, "End --> [*]")
}

func TestMermaidSanitizesStateIDs(t *testing.T) {
	run := testRun(t)
	run.History[0].State = "weird state"
	trace := BuildTrace(run)
	out := trace.Mermaid()
	assert.NotContains(t, out, "weird state -->")
	assert.Contains(t, out, "weird_state")
}

func TestHTMLEscapesAndRendersTable(t *testing.T) {
	trace := BuildTrace(testRun(t))
	out := trace.HTML()
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "Start")
	assert.Contains(t, out, "completed")
}

func TestJSONRoundTripsStatus(t *testing.T) {
	trace := BuildTrace(testRun(t))
	b, err := trace.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status": "completed"`)
}

func TestSummaryReportNilIsSafe(t *testing.T) {
	assert.Equal(t, "no metrics recorded", SummaryReport(nil))
}
