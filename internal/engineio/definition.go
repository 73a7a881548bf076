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

// Package engineio wires the workflow execution engine (pkg/engine) to the
// outside world: loading workflow definitions from disk and implementing
// the Prompt/Shell/UserConfirmer collaborators the engine depends on but
// does not implement itself. This is the thin seam a command-line surface
// needs to exercise the engine end to end.
package engineio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tombee/baton/pkg/engine"
	"github.com/tombee/baton/pkg/engine/security"
)

// stateDoc and transitionDoc mirror engine.State/engine.Transition in a
// JSON-friendly shape. A real deployment would derive these from a parsed
// Mermaid diagram; this format is the simplest stand-in that exercises
// every field the engine cares about.
type stateDoc struct {
	ID             string            `json:"id"`
	Description    string            `json:"description"`
	Type           string            `json:"type"`
	IsTerminal     bool              `json:"is_terminal"`
	AllowsParallel bool              `json:"allows_parallel"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type transitionDoc struct {
	From      string            `json:"from"`
	To        string            `json:"to"`
	Condition string            `json:"condition"` // "always" | "on_success" | "on_failure" | a CEL expression
	Action    string            `json:"action,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type workflowDoc struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	InitialState string          `json:"initial_state"`
	States       []stateDoc      `json:"states"`
	Transitions  []transitionDoc `json:"transitions"`
}

// ParseDefinition decodes a JSON workflow document and builds a validated
// engine.Workflow, applying the same complexity cap engine.NewWorkflow
// enforces at ingestion.
func ParseDefinition(data []byte, opts engine.ValidateOptions) (*engine.Workflow, error) {
	var doc workflowDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workflow definition: %w", err)
	}

	states := make(map[engine.StateID]engine.State, len(doc.States))
	for _, s := range doc.States {
		states[engine.StateID(s.ID)] = engine.State{
			ID:             engine.StateID(s.ID),
			Description:    s.Description,
			Type:           stateType(s.Type),
			IsTerminal:     s.IsTerminal,
			AllowsParallel: s.AllowsParallel,
			Metadata:       s.Metadata,
		}
	}

	transitions := make([]engine.Transition, 0, len(doc.Transitions))
	for _, t := range doc.Transitions {
		transitions = append(transitions, engine.Transition{
			From:      engine.StateID(t.From),
			To:        engine.StateID(t.To),
			Condition: condition(t.Condition),
			Action:    t.Action,
			Metadata:  t.Metadata,
		})
	}

	return engine.NewWorkflow(engine.WorkflowName(doc.Name), doc.Description, engine.StateID(doc.InitialState), states, transitions, opts)
}

func stateType(s string) engine.StateType {
	switch s {
	case "choice":
		return engine.StateChoice
	case "fork":
		return engine.StateFork
	case "join":
		return engine.StateJoin
	default:
		return engine.StateNormal
	}
}

func condition(expr string) engine.TransitionCondition {
	switch expr {
	case "", "always":
		return engine.Always()
	case "on_success":
		return engine.OnSuccess()
	case "on_failure":
		return engine.OnFailure()
	default:
		return engine.Custom(expr)
	}
}

// DirectorySource resolves workflow names to files named "<name>.json"
// under a root directory, enforcing path confinement so a sub-workflow
// reference can never escape it.
type DirectorySource struct {
	confinement *security.PathConfinement
	opts        engine.ValidateOptions
}

// NewDirectorySource builds a DirectorySource rooted at root.
func NewDirectorySource(root string, opts engine.ValidateOptions) (*DirectorySource, error) {
	c, err := security.NewPathConfinement(root, nil)
	if err != nil {
		return nil, err
	}
	return &DirectorySource{confinement: c, opts: opts}, nil
}

// Load implements executor.WorkflowSource.
func (s *DirectorySource) Load(name engine.WorkflowName) (*engine.Workflow, error) {
	path, err := s.confinement.Check(string(name) + ".json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load workflow %q: %w", name, err)
	}
	return ParseDefinition(data, s.opts)
}
