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

package security

import engineerrors "github.com/tombee/baton/pkg/engine/errors"

// CheckComplexity is a cheap pre-ingestion gate for a collaborator that has
// only raw state/transition counts (e.g. while still parsing Mermaid) and
// wants to fail before building the full engine.Workflow graph.
// engine.NewWorkflow enforces the same limit again once the graph exists;
// this lets a loader reject an oversized definition before doing that work.
func CheckComplexity(states, transitions, limit int) error {
	if limit <= 0 {
		return nil
	}
	if total := states + transitions; total > limit {
		return &engineerrors.WorkflowTooComplexError{States: states, Transitions: transitions, Limit: limit}
	}
	return nil
}
