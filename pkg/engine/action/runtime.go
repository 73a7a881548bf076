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
	"log/slog"
	"strings"
	"time"

	"github.com/tombee/baton/pkg/engine"
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
	"github.com/tombee/baton/pkg/engine/security"
)

// PromptOutput is what a PromptExecutor returns on success.
type PromptOutput struct {
	// Stdout is the trimmed text response, bound to the run's
	// claude_response context key on success.
	Stdout string

	// Usage is the token accounting for the call, if the provider reported
	// one. Zero value if unavailable.
	Usage engine.TokenUsage

	// Cost is the USD cost of the call, if known. Zero if unavailable.
	Cost float64
}

// PromptExecutor runs a named prompt with substituted arguments. Rate-limit
// detection happens on the returned error's text (via IsRateLimitErr), not on
// a dedicated error type, because the underlying provider surfaces rate
// limiting as ordinary stderr text.
type PromptExecutor interface {
	Execute(ctx context.Context, name string, args map[string]string) (PromptOutput, error)
}

// CommandOutput is what a ShellExecutor returns, win or lose: a non-zero
// exit code is a successful execution of a failed command, not a Go error.
type CommandOutput struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ShellExecutor runs a shell command to completion or until ctx is done.
type ShellExecutor interface {
	Run(ctx context.Context, command, workingDir string, env map[string]string) (CommandOutput, error)
}

// SubWorkflowRunner executes a named workflow as a child of the current run
// and returns its final context snapshot. The Runtime depends on this
// interface rather than the executor package directly, so the executor can
// implement it without action importing executor (which would cycle back,
// since executor drives action.Runtime).
type SubWorkflowRunner interface {
	RunSubWorkflow(ctx context.Context, name string, depth int, stack []string, parentContext map[string]any, inputs map[string]any) (resultContext map[string]any, success bool, err error)
}

// rateLimitSubstrings are matched case-insensitively against a failed
// prompt's error text to distinguish a provider rate limit from any other
// failure.
var rateLimitSubstrings = []string{
	"usage limit",
	"rate limit",
	"rate limited",
	"429",
	"quota",
	"too many requests",
}

// IsRateLimitErr reports whether err's text matches a known rate-limit
// pattern.
func IsRateLimitErr(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, s := range rateLimitSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// WaitUntilNextHour returns the duration from now until the top of the next
// hour, with a one-second floor so a request arriving at the exact hour
// boundary still backs off.
func WaitUntilNextHour(now time.Time) time.Duration {
	next := now.Truncate(time.Hour).Add(time.Hour)
	d := next.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d
}

// Runtime executes a parsed Action against a run's Context. It holds no
// per-run state of its own: every call is independent, so a single Runtime
// is shared across concurrent runs.
type Runtime struct {
	Prompt   PromptExecutor
	Shell    ShellExecutor
	SubRun   SubWorkflowRunner
	Confirm  UserConfirmer
	Logger   *slog.Logger
	Timeouts engine.TimeoutsConfig

	// Guard screens a Shell action's substituted command with
	// CheckShellCommand (pkg/engine/security: shell deny-patterns and
	// metacharacter chains); no size cap is applied here. Nil disables the
	// check; callers embedding the engine without untrusted workflow
	// sources can opt out.
	Guard *security.TemplateGuard
}

// NewRuntime builds a Runtime. Prompt, Shell, SubRun, and Confirm may be
// nil; Execute returns an ActionExecutionError if an action variant needing
// a collaborator that is nil is dispatched (a configuration error, not a
// run failure mode). A nil Confirm means "wait for
// user" resolves immediately (non-interactive mode). Guard defaults to nil
// (no enforcement); set rt.Guard after construction to opt in.
func NewRuntime(prompt PromptExecutor, shell ShellExecutor, subRun SubWorkflowRunner, confirm UserConfirmer, timeouts engine.TimeoutsConfig, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{Prompt: prompt, Shell: shell, SubRun: subRun, Confirm: confirm, Timeouts: timeouts, Logger: logger}
}

// Execute dispatches a on its Kind. stateID identifies the state the action
// came from, used only for error context. depth and stack are forwarded to
// SubWorkflow execution for cycle and depth-limit detection.
func (rt *Runtime) Execute(ctx context.Context, stateID string, a Action, run *engine.Context, depth int, stack []string) (Result, error) {
	switch act := a.(type) {
	case Prompt:
		return rt.executePrompt(ctx, stateID, act, run)
	case Wait:
		return rt.executeWait(ctx, act, run)
	case Log:
		return rt.executeLog(stateID, act, run)
	case SetVariable:
		return rt.executeSetVariable(act, run)
	case SubWorkflow:
		return rt.executeSubWorkflow(ctx, stateID, act, run, depth, stack)
	case Shell:
		return rt.executeShell(ctx, stateID, act, run)
	default:
		return Result{}, &engineerrors.ActionExecutionError{StateID: stateID, Message: "unknown action kind"}
	}
}

// contextVars snapshots run's variables as the substitution environment for
// an action's string fields.
func contextVars(run *engine.Context) map[string]any {
	return run.Snapshot()
}
