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
	"errors"
	"time"

	"github.com/tombee/baton/pkg/engine"
	"github.com/tombee/baton/pkg/engine/action"
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// ExecuteSingleCycle performs one action-plus-transition step:
// terminal check, state lookup, dispatch by state type, action
// execution and last_action_result binding for Normal states, transition
// evaluation in declaration order, history append. Returns whether a
// transition was taken. A non-nil error means run.Status has already been
// set to a terminal status (Failed or Cancelled) and the caller should stop
// driving the run.
func (e *Engine) ExecuteSingleCycle(ctx context.Context, run *engine.WorkflowRun) (bool, error) {
	if run.Status != engine.StatusRunning {
		return false, nil
	}

	state, ok := run.Workflow.States[run.CurrentState]
	if !ok {
		err := &engineerrors.StateNotFoundError{StateID: string(run.CurrentState)}
		run.Fail("StateNotFound", err.Error())
		return false, err
	}

	if state.IsTerminal {
		run.Complete()
		return false, nil
	}

	switch state.Type {
	case engine.StateFork:
		advanced, err := e.executeFork(ctx, run, state)
		return advanced, err
	case engine.StateJoin:
		e.Logger.Debug("join reached", "state", state.ID)
	case engine.StateChoice:
		// No action; the guard logic on outgoing transitions does the work.
	case engine.StateNormal:
		// Most action errors never fail the run directly; a circular
		// SubWorkflow reference, for example, sets
		// last_action_result=false and lets transition evaluation proceed.
		// Only ctx cancellation, a SecurityViolation, and exhausted
		// rate-limit retries propagate, and runNormalAction has already
		// put run into the right terminal status in those cases, so this
		// just stops driving the run and avoids clobbering a Failed
		// status with Cancel().
		if err := e.runNormalAction(ctx, run, state); err != nil {
			if run.Status == engine.StatusRunning {
				run.Cancel()
			}
			return false, err
		}
	}

	return e.takeTransition(run, state.ID)
}

// runNormalAction parses state's description and, if it yields an Action,
// executes it and binds last_action_result. Most action failures (parse
// errors, SubWorkflow errors such as CircularDependency and
// WorkflowNotFound, generic execution errors, timeouts) are
// recovered locally: last_action_result is set false and the cycle proceeds
// to transition evaluation so an OnFailure branch can react. A
// SecurityViolationError is the one action failure that fails the run
// outright. RateLimitError triggers the sleep-and-retry policy instead of
// an immediate recover; once retries exceed RateLimit.MaxRetriesPerAction
// the run fails too, rather than recovering like an ordinary action
// failure.
func (e *Engine) runNormalAction(ctx context.Context, run *engine.WorkflowRun, state engine.State) error {
	if e.Guard != nil {
		if err := e.Guard.CheckTemplateText(state.Description, e.TrustedSource); err != nil {
			run.Fail("SecurityViolation", err.Error())
			return err
		}
	}

	act, err := action.Parse(string(state.ID), state.Description)
	if err != nil {
		e.Logger.Warn("action parse failed, treating as failed action", "state", state.ID, "error", err)
		run.Context.Set(engine.KeyLastActionResult, false)
		return nil
	}
	if act == nil {
		return nil
	}

	stack := make([]string, len(run.WorkflowStack))
	for i, n := range run.WorkflowStack {
		stack[i] = string(n)
	}

	retries := 0
	for {
		result, err := e.Actions.Execute(ctx, string(state.ID), act, run.Context, len(run.WorkflowStack), stack)
		if e.Observer != nil {
			e.Observer.OnActionResult(run, state.ID, result, err)
		}

		if err == nil {
			run.Context.Set(engine.KeyLastActionResult, result.Success)
			return nil
		}

		var rle *engineerrors.RateLimitError
		if errors.As(err, &rle) {
			retries++
			if retries > e.Config.RateLimit.MaxRetriesPerAction {
				run.Context.Set(engine.KeyLastActionResult, false)
				e.Logger.Error("rate limit retries exhausted", "state", state.ID, "attempts", retries)
				run.Fail("RateLimit", rle.Error())
				return rle
			}
			e.Logger.Warn("rate limited, retrying state", "state", state.ID, "wait", rle.WaitTime, "attempt", retries)
			select {
			case <-time.After(rle.WaitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		var sve *engineerrors.SecurityViolationError
		if errors.As(err, &sve) {
			run.Fail("SecurityViolation", err.Error())
			return err
		}

		e.Logger.Warn("action execution failed, treating as failed action", "state", state.ID, "error", err)
		run.Context.Set(engine.KeyLastActionResult, false)
		return nil
	}
}

// takeTransition evaluates state's outgoing transitions in declaration
// order and advances run to the first whose condition is satisfied. A run
// that reaches MAX_TRANSITIONS_PER_RUN fails with TransitionLimitExceeded;
// one with no satisfied transition and a non-terminal current state fails
// with DeadEnd.
func (e *Engine) takeTransition(run *engine.WorkflowRun, from engine.StateID) (bool, error) {
	limit := e.Config.Limits.MaxTransitionsPerRun
	if limit > 0 && run.TransitionCount >= limit {
		err := &engineerrors.TransitionLimitExceededError{Limit: limit}
		run.Fail("TransitionLimitExceeded", err.Error())
		return false, err
	}

	vars := run.Context.Snapshot()
	for _, t := range run.Workflow.OutgoingTransitions(from) {
		if e.Condition.Evaluate(t.Condition, vars) {
			now := time.Now()
			run.CurrentState = t.To
			run.TransitionCount++
			run.AppendHistory(t.To, now)
			path := e.TransitionPath(run.Workflow, from, t.To)
			e.Logger.Debug("transition taken", "from", from, "to", t.To, "conditions", path.Conditions)
			if e.Observer != nil {
				e.Observer.OnStateEnter(run, t.To, now)
			}
			return true, nil
		}
	}

	err := &engineerrors.DeadEndError{StateID: string(from)}
	run.Fail("DeadEnd", err.Error())
	return false, err
}
