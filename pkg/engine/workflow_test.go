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

package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

func linearStates(n int) (map[StateID]State, []Transition) {
	states := make(map[StateID]State, n)
	var transitions []Transition
	for i := 0; i < n; i++ {
		id := StateID(fmt.Sprintf("s%d", i))
		states[id] = State{ID: id, Type: StateNormal, IsTerminal: i == n-1}
		if i > 0 {
			transitions = append(transitions, Transition{
				From:      StateID(fmt.Sprintf("s%d", i-1)),
				To:        id,
				Condition: Always(),
			})
		}
	}
	return states, transitions
}

func TestNewWorkflowRejectsMissingInitialState(t *testing.T) {
	states, transitions := linearStates(2)
	_, err := NewWorkflow("w", "", "nope", states, transitions, DefaultValidateOptions())
	require.Error(t, err)
	var nf *engineerrors.StateNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestNewWorkflowRejectsDanglingTransition(t *testing.T) {
	states, transitions := linearStates(2)
	transitions = append(transitions, Transition{From: "s1", To: "ghost", Condition: Always()})
	_, err := NewWorkflow("w", "", "s0", states, transitions, DefaultValidateOptions())
	require.Error(t, err)
}

func TestNewWorkflowComplexityBoundary(t *testing.T) {
	// 3 states + 2 transitions = 5. A limit of exactly 5 admits the
	// workflow; 4 rejects it.
	states, transitions := linearStates(3)

	_, err := NewWorkflow("w", "", "s0", states, transitions, ValidateOptions{MaxComplexity: 5})
	assert.NoError(t, err)

	_, err = NewWorkflow("w", "", "s0", states, transitions, ValidateOptions{MaxComplexity: 4})
	require.Error(t, err)
	var tooComplex *engineerrors.WorkflowTooComplexError
	assert.ErrorAs(t, err, &tooComplex)
}

func TestNewWorkflowRejectsForkWithOneBranch(t *testing.T) {
	states := map[StateID]State{
		"F": {ID: "F", Type: StateFork},
		"B": {ID: "B", Type: StateNormal, IsTerminal: true},
	}
	transitions := []Transition{{From: "F", To: "B", Condition: Always()}}
	_, err := NewWorkflow("w", "", "F", states, transitions, DefaultValidateOptions())
	require.Error(t, err)
	var fm *engineerrors.ForkMisconfiguredError
	assert.ErrorAs(t, err, &fm)
}

func TestOutgoingTransitionsPreservesDeclarationOrder(t *testing.T) {
	states := map[StateID]State{
		"a": {ID: "a", Type: StateChoice},
		"b": {ID: "b", Type: StateNormal, IsTerminal: true},
		"c": {ID: "c", Type: StateNormal, IsTerminal: true},
	}
	transitions := []Transition{
		{From: "a", To: "b", Condition: Custom("x > 10")},
		{From: "a", To: "c", Condition: Always()},
	}
	wf, err := NewWorkflow("w", "", "a", states, transitions, DefaultValidateOptions())
	require.NoError(t, err)

	out := wf.OutgoingTransitions("a")
	require.Len(t, out, 2)
	assert.Equal(t, StateID("b"), out[0].To)
	assert.Equal(t, StateID("c"), out[1].To)
}

func TestRunHistoryStartsAtInitialState(t *testing.T) {
	states, transitions := linearStates(2)
	wf, err := NewWorkflow("w", "", "s0", states, transitions, DefaultValidateOptions())
	require.NoError(t, err)

	run := NewRun("r1", wf, map[string]any{"x": 1})
	assert.Equal(t, StatusRunning, run.Status)
	assert.Equal(t, StateID("s0"), run.CurrentState)
	require.Len(t, run.History, 1)
	assert.Equal(t, StateID("s0"), run.History[0].State)

	// The workflow stack is mirrored into the context from the start.
	_, ok := run.Context.Get(KeyWorkflowStack)
	assert.True(t, ok)
}

func TestRunWorkflowStackPushPopAndCycleCheck(t *testing.T) {
	states, transitions := linearStates(2)
	wf, err := NewWorkflow("w", "", "s0", states, transitions, DefaultValidateOptions())
	require.NoError(t, err)

	run := NewRun("r1", wf, nil)
	run.PushWorkflow("child")
	assert.True(t, run.HasWorkflow("child"))
	assert.False(t, run.HasWorkflow("other"))

	raw, ok := run.Context.Get(KeyWorkflowStack)
	require.True(t, ok)
	assert.Equal(t, []string{"child"}, raw)

	run.PopWorkflow()
	assert.False(t, run.HasWorkflow("child"))
}

func TestRunFailPreservesHistoryAndRecordsError(t *testing.T) {
	states, transitions := linearStates(2)
	wf, err := NewWorkflow("w", "", "s0", states, transitions, DefaultValidateOptions())
	require.NoError(t, err)

	run := NewRun("r1", wf, nil)
	run.Fail("DeadEnd", "no satisfied transition")
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "DeadEnd", run.ErrorKind)
	assert.False(t, run.CompletedAt.IsZero())
	assert.Len(t, run.History, 1)
}
