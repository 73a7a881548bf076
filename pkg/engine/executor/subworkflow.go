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

	"github.com/tombee/baton/pkg/engine"
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// RunSubWorkflow implements action.SubWorkflowRunner: resolve name via the
// Workflow Cache, construct a child run whose initial context is the
// parent's context overlaid with inputs, drive it to completion with the
// same Engine, and return its final context snapshot.
// Called with the action.Runtime's SubRun field set to the same Engine that
// owns that Runtime, closing the dependency loop without an import cycle.
func (e *Engine) RunSubWorkflow(ctx context.Context, name string, depth int, stack []string, parentContext map[string]any, inputs map[string]any) (map[string]any, bool, error) {
	limit := e.Config.Limits.MaxSubworkflowDepth
	if limit > 0 && depth+1 > limit {
		return nil, false, &engineerrors.SubworkflowDepthExceededError{Name: name, Depth: depth + 1, Limit: limit}
	}

	wf, err := e.resolveWorkflow(engine.WorkflowName(name))
	if err != nil {
		return nil, false, &engineerrors.WorkflowNotFoundError{Name: name, Err: err}
	}

	childCtx := make(map[string]any, len(parentContext)+len(inputs))
	for k, v := range parentContext {
		childCtx[k] = v
	}
	for k, v := range inputs {
		childCtx[k] = v
	}

	child := e.Start(wf, childCtx)
	for _, n := range stack {
		child.WorkflowStack = append(child.WorkflowStack, engine.WorkflowName(n))
	}
	child.PushWorkflow(engine.WorkflowName(name))

	e.ExecuteState(ctx, child)

	return child.Context.Snapshot(), child.Status == engine.StatusCompleted, nil
}
