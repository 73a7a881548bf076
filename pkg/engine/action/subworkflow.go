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

package action

import (
	"context"

	"github.com/tombee/baton/pkg/engine"
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// executeSubWorkflow delegates to the injected SubWorkflowRunner after
// checking the cycle invariant locally. The runner itself re-checks depth
// against its configured limit, since it owns the authoritative run-stack
// state; this check fails fast before paying the cost of constructing the
// child run.
func (rt *Runtime) executeSubWorkflow(ctx context.Context, stateID string, sw SubWorkflow, run *engine.Context, depth int, stack []string) (Result, error) {
	if rt.SubRun == nil {
		return Result{}, &engineerrors.ActionExecutionError{StateID: stateID, Message: "no sub-workflow runner configured"}
	}

	for _, name := range stack {
		if name == sw.Name {
			return Result{}, &engineerrors.CircularDependencyError{Name: sw.Name, Stack: stack}
		}
	}

	vars := contextVars(run)
	inputs := make(map[string]any, len(sw.InputVariables))
	for k, v := range sw.InputVariables {
		inputs[k] = Substitute(v, vars)
	}

	resultCtx, success, err := rt.SubRun.RunSubWorkflow(ctx, sw.Name, depth, stack, vars, inputs)
	if err != nil {
		return Result{}, err
	}

	for k, v := range resultCtx {
		if k == engine.KeyWorkflowStack || k == engine.KeyLastActionResult {
			continue
		}
		run.Set(k, v)
	}

	return Result{Success: success, Value: resultCtx}, nil
}
