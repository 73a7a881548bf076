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

import "time"

// RunStatus is the lifecycle state of a WorkflowRun.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
	StatusPaused    RunStatus = "paused"
)

// WorkflowRun is a single in-memory execution of a Workflow. It is mutated
// only by its owning executor; callers that need to inspect a run mid-flight
// should do so between execute_single_cycle calls.
type WorkflowRun struct {
	ID           WorkflowRunID
	Workflow     *Workflow
	CurrentState StateID
	Status       RunStatus
	Context      *Context
	History      []HistoryEntry

	StartedAt   time.Time
	CompletedAt time.Time

	// WorkflowStack tracks ancestor sub-workflow names, for cycle detection.
	// Mirrored into Context under KeyWorkflowStack so CEL expressions and
	// SubWorkflow actions can observe it without a back-reference to the run.
	WorkflowStack []WorkflowName

	// ErrorKind/ErrorMessage are populated when Status == StatusFailed.
	ErrorKind    string
	ErrorMessage string

	// TransitionCount counts transitions taken, excluding rate-limit retries.
	TransitionCount int
}

// NewRun constructs a fresh run positioned at the workflow's initial state,
// with status Running. initialContext may be nil.
func NewRun(id WorkflowRunID, wf *Workflow, initialContext map[string]any) *WorkflowRun {
	ctx := NewContext(initialContext)
	now := time.Now()
	run := &WorkflowRun{
		ID:           id,
		Workflow:     wf,
		CurrentState: wf.InitialState,
		Status:       StatusRunning,
		Context:      ctx,
		History:      []HistoryEntry{{State: wf.InitialState, Timestamp: now}},
		StartedAt:    now,
	}
	run.syncWorkflowStackToContext()
	return run
}

// syncWorkflowStackToContext mirrors WorkflowStack into the context under
// the reserved key, as []string, the shape SubWorkflow actions and CEL
// expressions expect.
func (r *WorkflowRun) syncWorkflowStackToContext() {
	names := make([]string, len(r.WorkflowStack))
	for i, n := range r.WorkflowStack {
		names[i] = string(n)
	}
	r.Context.Set(KeyWorkflowStack, names)
}

// PushWorkflow appends name to the stack (entering a sub-workflow).
func (r *WorkflowRun) PushWorkflow(name WorkflowName) {
	r.WorkflowStack = append(r.WorkflowStack, name)
	r.syncWorkflowStackToContext()
}

// PopWorkflow removes the most recently pushed workflow name.
func (r *WorkflowRun) PopWorkflow() {
	if len(r.WorkflowStack) == 0 {
		return
	}
	r.WorkflowStack = r.WorkflowStack[:len(r.WorkflowStack)-1]
	r.syncWorkflowStackToContext()
}

// HasWorkflow reports whether name is already present on the stack.
func (r *WorkflowRun) HasWorkflow(name WorkflowName) bool {
	for _, n := range r.WorkflowStack {
		if n == name {
			return true
		}
	}
	return false
}

// AppendHistory records a state visit.
func (r *WorkflowRun) AppendHistory(state StateID, at time.Time) {
	r.History = append(r.History, HistoryEntry{State: state, Timestamp: at})
}

// Duration returns the elapsed time between StartedAt and CompletedAt (or
// now, if still running).
func (r *WorkflowRun) Duration() time.Duration {
	end := r.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(r.StartedAt)
}

// Fail transitions the run to Failed, recording the error kind/message.
// CompletedAt is set if not already.
func (r *WorkflowRun) Fail(kind, message string) {
	r.Status = StatusFailed
	r.ErrorKind = kind
	r.ErrorMessage = message
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}
}

// Complete transitions the run to Completed, setting CompletedAt if not
// already set.
func (r *WorkflowRun) Complete() {
	r.Status = StatusCompleted
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}
}

// Cancel transitions the run to Cancelled.
func (r *WorkflowRun) Cancel() {
	r.Status = StatusCancelled
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}
}

// LastActionResult reads last_action_result from the context, defaulting to
// true when absent: a state with no action means nothing failed.
func (r *WorkflowRun) LastActionResult() bool {
	return r.Context.GetBoolOr(KeyLastActionResult, true)
}
