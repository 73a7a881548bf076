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

package engineio

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/tombee/baton/pkg/engine/action"
)

// OSShellExecutor implements action.ShellExecutor by launching the command
// through the system shell. The command string is passed verbatim to
// "sh -c" (or "cmd /C" on Windows); the engine's own
// security.TemplateGuard has already screened it for deny patterns before
// this is reached.
type OSShellExecutor struct{}

// Run implements action.ShellExecutor.
func (OSShellExecutor) Run(ctx context.Context, command, workingDir string, env map[string]string) (action.CommandOutput, error) {
	cmd := shellCommand(ctx, command)
	if workingDir != "" {
		cmd.Dir = workingDir
	}
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if ctx.Err() != nil {
			// Context cancellation/deadline: let the caller (action.Runtime)
			// translate this into the timed-out result shape. Checked before
			// the ExitError case because a process killed at the deadline
			// also reports an ExitError.
			return action.CommandOutput{}, ctx.Err()
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return action.CommandOutput{}, err
		}
	}

	return action.CommandOutput{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}, nil
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if isWindows {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}
