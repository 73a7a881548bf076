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
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// StateType distinguishes the four kinds of state the executor dispatches
// on. Fork and Join are always paired; Choice states carry no action of
// their own and rely entirely on their outgoing transition guards.
type StateType string

const (
	StateNormal StateType = "normal"
	StateChoice StateType = "choice"
	StateFork   StateType = "fork"
	StateJoin   StateType = "join"
)

// State is one node of a Workflow's graph.
type State struct {
	ID             StateID
	Description    string
	Type           StateType
	IsTerminal     bool
	AllowsParallel bool
	Metadata       map[string]string
}

// ConditionKind distinguishes the four guard flavors a Transition can carry.
type ConditionKind string

const (
	ConditionAlways     ConditionKind = "always"
	ConditionOnSuccess  ConditionKind = "on_success"
	ConditionOnFailure  ConditionKind = "on_failure"
	ConditionCustomExpr ConditionKind = "custom"
)

// TransitionCondition is the guard attached to a Transition.
type TransitionCondition struct {
	Kind       ConditionKind
	Expression string // only meaningful when Kind == ConditionCustomExpr
}

// Always returns an always-true condition.
func Always() TransitionCondition { return TransitionCondition{Kind: ConditionAlways} }

// OnSuccess returns a condition satisfied when the last action succeeded.
func OnSuccess() TransitionCondition { return TransitionCondition{Kind: ConditionOnSuccess} }

// OnFailure returns a condition satisfied when the last action failed.
func OnFailure() TransitionCondition { return TransitionCondition{Kind: ConditionOnFailure} }

// Custom returns a CEL-style expression condition.
func Custom(expr string) TransitionCondition {
	return TransitionCondition{Kind: ConditionCustomExpr, Expression: expr}
}

// Transition is a directed, conditionally-guarded edge between two states.
type Transition struct {
	From      StateID
	To        StateID
	Condition TransitionCondition
	Action    string // informational only; actions are derived from state descriptions
	Metadata  map[string]string
}

// MaxWorkflowComplexity is the default cap on states+transitions at
// ingestion. Overridable via ValidateOptions.
const MaxWorkflowComplexity = 1000

// Workflow is an immutable graph of states and transitions, built once and
// shared by every run that executes it.
type Workflow struct {
	Name         WorkflowName
	Description  string
	InitialState StateID
	States       map[StateID]State
	Transitions  []Transition
}

// ValidateOptions carries the configurable caps checked at ingestion.
type ValidateOptions struct {
	MaxComplexity int
}

// DefaultValidateOptions returns the default ingestion caps.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{MaxComplexity: MaxWorkflowComplexity}
}

// NewWorkflow validates and returns a Workflow, or a typed error describing
// the first invariant violation found.
//
// Invariants enforced:
//   - InitialState must exist in States.
//   - Every transition's From/To must exist in States.
//   - states_count + transitions_count <= MaxComplexity.
//   - A Fork state must have >= 2 outgoing transitions.
func NewWorkflow(name WorkflowName, description string, initial StateID, states map[StateID]State, transitions []Transition, opts ValidateOptions) (*Workflow, error) {
	if opts.MaxComplexity <= 0 {
		opts.MaxComplexity = MaxWorkflowComplexity
	}

	if _, ok := states[initial]; !ok {
		return nil, &engineerrors.StateNotFoundError{StateID: string(initial)}
	}

	for _, t := range transitions {
		if _, ok := states[t.From]; !ok {
			return nil, &engineerrors.StateNotFoundError{StateID: string(t.From)}
		}
		if _, ok := states[t.To]; !ok {
			return nil, &engineerrors.StateNotFoundError{StateID: string(t.To)}
		}
	}

	total := len(states) + len(transitions)
	if total > opts.MaxComplexity {
		return nil, &engineerrors.WorkflowTooComplexError{
			States:      len(states),
			Transitions: len(transitions),
			Limit:       opts.MaxComplexity,
		}
	}

	outgoing := make(map[StateID]int, len(states))
	for _, t := range transitions {
		outgoing[t.From]++
	}

	for id, s := range states {
		if s.Type == StateFork && outgoing[id] < 2 {
			return nil, &engineerrors.ForkMisconfiguredError{StateID: string(id), Count: outgoing[id]}
		}
	}

	return &Workflow{
		Name:         name,
		Description:  description,
		InitialState: initial,
		States:       states,
		Transitions:  transitions,
	}, nil
}

// OutgoingTransitions returns the transitions leaving from, in declaration
// order, the order used both for first-match guard evaluation and for
// fork-branch merge ordering.
func (w *Workflow) OutgoingTransitions(from StateID) []Transition {
	var out []Transition
	for _, t := range w.Transitions {
		if t.From == from {
			out = append(out, t)
		}
	}
	return out
}

// Complexity returns states+transitions, the value checked against the
// configured cap.
func (w *Workflow) Complexity() int {
	return len(w.States) + len(w.Transitions)
}
