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

// Package errors defines the typed error taxonomy for the workflow execution
// engine. Each kind is a distinct struct rather than a sentinel value so
// callers can carry structured detail (the failing state, the expression that
// failed to compile, the wait time for a rate limit) through errors.As.
package errors

import (
	"fmt"
	"time"
)

// StateNotFoundError is returned when a transition references a state that
// does not exist in the workflow.
type StateNotFoundError struct {
	StateID string
}

func (e *StateNotFoundError) Error() string {
	return fmt.Sprintf("state not found: %s", e.StateID)
}

// DeadEndError is returned when a non-terminal state has no satisfied
// outgoing transition.
type DeadEndError struct {
	StateID string
}

func (e *DeadEndError) Error() string {
	return fmt.Sprintf("dead end: state %q is non-terminal with no satisfied transition", e.StateID)
}

// TransitionLimitExceededError is returned when a run exceeds its configured
// maximum number of transitions.
type TransitionLimitExceededError struct {
	Limit int
}

func (e *TransitionLimitExceededError) Error() string {
	return fmt.Sprintf("transition limit exceeded: %d", e.Limit)
}

// BranchTransitionLimitExceededError is returned when a fork branch exceeds
// its configured maximum number of transitions before reaching the join.
type BranchTransitionLimitExceededError struct {
	StateID string
	Limit   int
}

func (e *BranchTransitionLimitExceededError) Error() string {
	return fmt.Sprintf("branch transition limit exceeded at %q: %d", e.StateID, e.Limit)
}

// ForkMisconfiguredError is returned when a Fork state has fewer than two
// outgoing transitions.
type ForkMisconfiguredError struct {
	StateID string
	Count   int
}

func (e *ForkMisconfiguredError) Error() string {
	return fmt.Sprintf("fork %q is misconfigured: %d outgoing transitions, need at least 2", e.StateID, e.Count)
}

// JoinNotFoundError is returned when a fork's branches do not converge on a
// single Join state.
type JoinNotFoundError struct {
	ForkStateID string
	Reason      string
}

func (e *JoinNotFoundError) Error() string {
	return fmt.Sprintf("no join state found for fork %q: %s", e.ForkStateID, e.Reason)
}

// BranchStuckError is returned when a fork branch runs out of transitions
// before reaching its resolved join state.
type BranchStuckError struct {
	BranchStart string
	JoinState   string
}

func (e *BranchStuckError) Error() string {
	return fmt.Sprintf("branch starting at %q stuck before reaching join %q", e.BranchStart, e.JoinState)
}

// WorkflowNotFoundError is returned when a sub-workflow reference cannot be
// resolved via the injected workflow source.
type WorkflowNotFoundError struct {
	Name string
	Err  error
}

func (e *WorkflowNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow not found: %s: %s", e.Name, e.Err.Error())
	}
	return fmt.Sprintf("workflow not found: %s", e.Name)
}

func (e *WorkflowNotFoundError) Unwrap() error { return e.Err }

// CircularDependencyError is returned when a sub-workflow reference would
// recurse into a workflow already present on the run's workflow stack.
type CircularDependencyError struct {
	Name  string
	Stack []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular sub-workflow dependency: %q already present in stack %v", e.Name, e.Stack)
}

// SubworkflowDepthExceededError is returned when entering a sub-workflow
// would exceed the configured maximum nesting depth.
type SubworkflowDepthExceededError struct {
	Name  string
	Depth int
	Limit int
}

func (e *SubworkflowDepthExceededError) Error() string {
	return fmt.Sprintf("sub-workflow depth exceeded entering %q: depth %d > limit %d", e.Name, e.Depth, e.Limit)
}

// ActionParseError is returned when a state description matches a known
// action verb but has a malformed identifier or value.
type ActionParseError struct {
	StateID     string
	Description string
	Reason      string
}

func (e *ActionParseError) Error() string {
	return fmt.Sprintf("failed to parse action for state %q: %s", e.StateID, e.Reason)
}

// ActionExecutionError is a generic action failure carrying a message. Used
// for failures that don't warrant their own typed error (e.g. a missing
// collaborator or a shell executor fault). A non-zero shell exit is not one
// of them: it is reported as the action result, not as a Go error.
type ActionExecutionError struct {
	StateID string
	Message string
	Cause   error
}

func (e *ActionExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("action execution failed for %q: %s: %s", e.StateID, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("action execution failed for %q: %s", e.StateID, e.Message)
}

func (e *ActionExecutionError) Unwrap() error { return e.Cause }

// RateLimitError is returned by a Prompt action whose underlying error text
// matches a known provider rate-limit pattern. WaitTime is the duration until
// the top of the next hour (minimum one second) the executor should sleep
// before retrying the same state.
type RateLimitError struct {
	Message  string
	WaitTime time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s (retry after %s)", e.Message, e.WaitTime)
}

// TimeoutError is returned when an action exceeds its configured deadline.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Duration)
}

// SecurityViolationError is returned when path confinement or template
// safety checks reject an input.
type SecurityViolationError struct {
	Check  string
	Detail string
}

func (e *SecurityViolationError) Error() string {
	return fmt.Sprintf("security violation (%s): %s", e.Check, e.Detail)
}

// WorkflowTooComplexError is returned at ingestion when a workflow's state
// and transition count exceeds the configured complexity cap.
type WorkflowTooComplexError struct {
	States      int
	Transitions int
	Limit       int
}

func (e *WorkflowTooComplexError) Error() string {
	return fmt.Sprintf("workflow too complex: %d states + %d transitions = %d > limit %d",
		e.States, e.Transitions, e.States+e.Transitions, e.Limit)
}

// ConditionEvaluationError is returned when a CEL-style expression fails to
// compile or evaluate. Non-fatal to the run: the guard simply evaluates to
// false and this error is logged by the caller.
type ConditionEvaluationError struct {
	Expression string
	Cause      error
}

func (e *ConditionEvaluationError) Error() string {
	return fmt.Sprintf("condition evaluation failed for %q: %s", e.Expression, e.Cause.Error())
}

func (e *ConditionEvaluationError) Unwrap() error { return e.Cause }
