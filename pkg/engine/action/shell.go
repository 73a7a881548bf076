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

// executeShell substitutes act's command/working-dir/env against run's
// variables, runs it through the injected ShellExecutor, and binds the
// standard result keys into run. A non-zero exit code or a timeout is a
// successful action execution carrying Success: false; only a guard
// rejection, a context cancellation, or an executor-level fault surfaces as
// a Go error.
func (rt *Runtime) executeShell(ctx context.Context, stateID string, sh Shell, run *engine.Context) (Result, error) {
	if rt.Shell == nil {
		return Result{}, &engineerrors.ActionExecutionError{StateID: stateID, Message: "no shell executor configured"}
	}

	vars := contextVars(run)
	command := Substitute(sh.Command, vars)
	workingDir := Substitute(sh.WorkingDir, vars)
	env := SubstituteMap(sh.Env, vars)

	if rt.Guard != nil {
		if err := rt.Guard.CheckShellCommand(command); err != nil {
			return Result{}, err
		}
	}

	timeout := sh.Timeout
	if timeout == 0 {
		timeout = rt.Timeouts.Shell
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := rt.Shell.Run(ctx, command, workingDir, env)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			// A timed-out shell action is not a Go error: it completes
			// with success=false and a recognizable stderr marker.
			out = CommandOutput{ExitCode: -1, Stderr: "command timed out", Duration: timeout}
		} else {
			return Result{}, &engineerrors.ActionExecutionError{StateID: stateID, Message: "shell execution failed", Cause: err}
		}
	}

	success := out.ExitCode == 0
	run.Set(engine.KeyStdout, out.Stdout)
	run.Set(engine.KeyStderr, out.Stderr)
	run.Set(engine.KeyExitCode, out.ExitCode)
	run.Set(engine.KeySuccess, success)
	run.Set(engine.KeyFailure, !success)
	run.Set(engine.KeyDurationMS, out.Duration.Milliseconds())

	if sh.ResultVariable != "" {
		run.Set(sh.ResultVariable, out.Stdout)
	}

	return Result{Success: success, Value: out.Stdout}, nil
}
