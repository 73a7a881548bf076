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
	"time"

	"github.com/tombee/baton/pkg/engine"
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// executePrompt substitutes act.Args against run's variables, invokes the
// injected PromptExecutor, and binds claude_response on success. A rate
// limit is surfaced as a *engineerrors.RateLimitError so the executor's
// cycle loop can apply the retry policy instead of failing the run
// outright.
func (rt *Runtime) executePrompt(ctx context.Context, stateID string, p Prompt, run *engine.Context) (Result, error) {
	if rt.Prompt == nil {
		return Result{}, &engineerrors.ActionExecutionError{StateID: stateID, Message: "no prompt executor configured"}
	}

	vars := contextVars(run)
	args := SubstituteMap(p.Args, vars)

	timeout := rt.Timeouts.Prompt
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := rt.Prompt.Execute(ctx, p.Name, args)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{}, &engineerrors.TimeoutError{Operation: "prompt:" + p.Name, Duration: timeout}
		}
		if IsRateLimitErr(err) {
			return Result{}, &engineerrors.RateLimitError{
				Message:  err.Error(),
				WaitTime: WaitUntilNextHour(clock()),
			}
		}
		return Result{}, &engineerrors.ActionExecutionError{StateID: stateID, Message: "prompt execution failed", Cause: err}
	}

	run.Set(engine.KeyClaudeResponse, out.Stdout)
	return Result{Success: true, Value: map[string]any{
		"stdout":        out.Stdout,
		"input_tokens":  out.Usage.InputTokens,
		"output_tokens": out.Usage.OutputTokens,
		"cost":          out.Cost,
	}}, nil
}

// clock is the time source a rate-limited prompt uses to compute wait_time.
var clock = time.Now

// SetClockForTesting overrides clock for the duration of a test. Without
// this seam, a rate-limit integration test would have to sleep up to an
// hour waiting for WaitUntilNextHour's real result.
func SetClockForTesting(now func() time.Time) (restore func()) {
	prev := clock
	clock = now
	return func() { clock = prev }
}
