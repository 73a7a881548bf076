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

// Package engine implements the workflow execution engine: a state-machine
// interpreter that drives Mermaid-derived workflows to completion.
//
// A Workflow is an immutable graph of States connected by Transitions,
// built once (typically from a parsed Mermaid diagram) and shared by
// however many concurrent WorkflowRuns need it. Each run owns its own
// mutable context and history; the engine mutates only the run that was
// handed to it.
//
// The engine has no global mutable state. Callers construct an
// executor.Engine with an explicit cache.Manager (and, optionally, an
// executor.Observer, which is how a metrics.Pipeline is fed) and inject the
// external collaborators it needs (prompt executor, shell executor,
// sub-workflow source) through the interfaces in pkg/engine/action and
// pkg/engine/executor.
package engine

import "time"

// Identifiers. These are plain string/time newtypes rather than opaque
// structs: the engine never needs to forbid construction from a literal
// (Mermaid-derived StateIds are just the diagram's node labels), so the
// extra indirection of a private-field wrapper buys nothing here.

// WorkflowName identifies a Workflow definition, the key used by the
// workflow cache and by sub-workflow references.
type WorkflowName string

// StateID identifies a State within a single Workflow.
type StateID string

// WorkflowRunID identifies a single in-memory execution of a workflow.
type WorkflowRunID string

// CostSessionID identifies a cost-tracking session bound to a run by the
// optional external cost tracker.
type CostSessionID string

// TransitionKey identifies a directed edge between two states, used as the
// transition-cache key.
type TransitionKey struct {
	From StateID
	To   StateID
}

// HistoryEntry records a single state visit with its timestamp.
type HistoryEntry struct {
	State     StateID
	Timestamp time.Time
}
