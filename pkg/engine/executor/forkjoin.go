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

package executor

import (
	"context"
	"time"

	"github.com/tombee/baton/pkg/engine"
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// executeFork runs a Fork state's branches to their join and merges the
// results. Branches run sequentially, in the declaration order of the fork's
// outgoing
// transitions. "Parallel" names the logical model, not the scheduling:
// branches never run concurrently with each other, so no synchronization
// is needed between them.
func (e *Engine) executeFork(ctx context.Context, run *engine.WorkflowRun, fork engine.State) (bool, error) {
	branchStarts := distinctBranchStarts(run.Workflow, fork.ID)
	if len(branchStarts) < 2 {
		err := &engineerrors.ForkMisconfiguredError{StateID: string(fork.ID), Count: len(branchStarts)}
		run.Fail("ForkMisconfigured", err.Error())
		return false, err
	}

	joinState, ok := e.resolveJoinState(run.Workflow, branchStarts)
	if !ok {
		err := &engineerrors.JoinNotFoundError{ForkStateID: string(fork.ID), Reason: "no join state reachable from every branch"}
		run.Fail("JoinNotFound", err.Error())
		return false, err
	}

	branches := make([]*engine.WorkflowRun, 0, len(branchStarts))
	for _, start := range branchStarts {
		branch, err := e.executeBranchToJoin(ctx, run, start, joinState)
		if err != nil {
			run.Fail(branchErrorKind(err), err.Error())
			return false, err
		}
		branches = append(branches, branch)
	}

	for _, b := range branches {
		run.Context.Merge(b.Context, engine.KeyLastActionResult)
		run.History = append(run.History, b.History...)
	}

	now := time.Now()
	run.CurrentState = joinState
	run.TransitionCount++
	if e.Observer != nil {
		e.Observer.OnStateEnter(run, joinState, now)
	}
	return true, nil
}

// distinctBranchStarts collects the unique to_state of every transition
// leaving fork, in declaration order.
func distinctBranchStarts(wf *engine.Workflow, fork engine.StateID) []engine.StateID {
	seen := make(map[engine.StateID]bool)
	var starts []engine.StateID
	for _, t := range wf.OutgoingTransitions(fork) {
		if seen[t.To] {
			continue
		}
		seen[t.To] = true
		starts = append(starts, t.To)
	}
	return starts
}

// resolveJoinState finds a Join-type state reachable, via unconditional
// structural traversal of the transition graph, from every branch start.
// Reachability rather than direct adjacency, since a branch may pass
// through several states before its join.
func (e *Engine) resolveJoinState(wf *engine.Workflow, branchStarts []engine.StateID) (engine.StateID, bool) {
	for id, st := range wf.States {
		if st.Type != engine.StateJoin {
			continue
		}
		reachableFromAll := true
		for _, start := range branchStarts {
			if !reaches(wf, start, id) {
				reachableFromAll = false
				break
			}
		}
		if reachableFromAll {
			return id, true
		}
	}
	return "", false
}

// reaches reports whether target is reachable from start by following
// transitions forward, ignoring guard conditions (structural reachability
// only, used at fork-resolution time before any branch has actually run).
func reaches(wf *engine.Workflow, start, target engine.StateID) bool {
	visited := make(map[engine.StateID]bool)
	queue := []engine.StateID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, t := range wf.OutgoingTransitions(cur) {
			if t.To == target {
				return true
			}
			if !visited[t.To] {
				queue = append(queue, t.To)
			}
		}
	}
	return false
}

// executeBranchToJoin drives a single fork branch from start to joinState
// using a clone of run's context, bounded by MaxBranchTransitions. The
// returned WorkflowRun carries the branch's final context and history; it
// is never itself a member of any run registry.
func (e *Engine) executeBranchToJoin(ctx context.Context, run *engine.WorkflowRun, start, joinState engine.StateID) (*engine.WorkflowRun, error) {
	branch := &engine.WorkflowRun{
		ID:            engine.WorkflowRunID(string(run.ID) + ":branch:" + string(start)),
		Workflow:      run.Workflow,
		CurrentState:  start,
		Status:        engine.StatusRunning,
		Context:       run.Context.Clone(),
		History:       []engine.HistoryEntry{{State: start, Timestamp: time.Now()}},
		WorkflowStack: run.WorkflowStack,
		StartedAt:     time.Now(),
	}

	limit := e.Config.Limits.MaxBranchTransitions
	transitions := 0
	for branch.CurrentState != joinState {
		if limit > 0 && transitions >= limit {
			return nil, &engineerrors.BranchTransitionLimitExceededError{StateID: string(start), Limit: limit}
		}

		state, ok := branch.Workflow.States[branch.CurrentState]
		if !ok {
			return nil, &engineerrors.StateNotFoundError{StateID: string(branch.CurrentState)}
		}
		if state.IsTerminal {
			return nil, &engineerrors.BranchStuckError{BranchStart: string(start), JoinState: string(joinState)}
		}

		switch state.Type {
		case engine.StateFork:
			return nil, &engineerrors.ActionExecutionError{StateID: string(state.ID), Message: "nested fork inside a branch is not supported"}
		case engine.StateNormal:
			if err := e.runNormalAction(ctx, branch, state); err != nil {
				return nil, err
			}
		default:
			// Choice and (unreachable mid-branch) Join states carry no action.
		}

		if _, err := e.takeBranchTransition(branch, state.ID); err != nil {
			return nil, &engineerrors.BranchStuckError{BranchStart: string(start), JoinState: string(joinState)}
		}
		transitions++
	}

	return branch, nil
}

// takeBranchTransition evaluates branch's outgoing transitions in
// declaration order using the same Condition evaluator as the main cycle;
// a branch just happens to evaluate guards against its own cloned context.
func (e *Engine) takeBranchTransition(branch *engine.WorkflowRun, from engine.StateID) (bool, error) {
	vars := branch.Context.Snapshot()
	for _, t := range branch.Workflow.OutgoingTransitions(from) {
		if e.Condition.Evaluate(t.Condition, vars) {
			branch.CurrentState = t.To
			branch.AppendHistory(t.To, time.Now())
			return true, nil
		}
	}
	return false, &engineerrors.DeadEndError{StateID: string(from)}
}

func branchErrorKind(err error) string {
	switch err.(type) {
	case *engineerrors.BranchTransitionLimitExceededError:
		return "BranchTransitionLimitExceeded"
	case *engineerrors.BranchStuckError:
		return "BranchStuck"
	case *engineerrors.StateNotFoundError:
		return "StateNotFound"
	default:
		return "ActionExecutionError"
	}
}
