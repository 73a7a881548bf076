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

// Package action implements the Action Parser and Action Runtime: parsing a
// state's free-form English description into one typed Action variant, and
// executing that variant against a run's context.
package action

import "time"

// Kind tags which Action variant a parsed description produced.
type Kind string

const (
	KindPrompt      Kind = "prompt"
	KindWait        Kind = "wait"
	KindLog         Kind = "log"
	KindSetVariable Kind = "set_variable"
	KindSubWorkflow Kind = "sub_workflow"
	KindShell       Kind = "shell"
)

// Action is the sum type of everything the parser can produce. Exhaustive
// dispatch lives in runtime.go's type switch, not in virtual methods,
// so adding a timeout or context-update rule for one variant can't
// accidentally miss another.
type Action interface {
	Kind() Kind
}

// LogLevel is the severity of a Log action.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// Prompt invokes a named AI prompt with substituted arguments.
type Prompt struct {
	Name string
	Args map[string]string
}

func (Prompt) Kind() Kind { return KindPrompt }

// Wait suspends the run. HasWait selects the shape: when it is set the
// run sleeps for Duration; otherwise the action means "wait for user"
// (interactive confirmation through the Runtime's injected collaborator,
// whatever Message holds), which returns immediately when no collaborator
// is configured.
type Wait struct {
	Duration time.Duration
	HasWait  bool // true when Duration was explicitly specified (vs. "wait for user")
	Message  string
}

func (Wait) Kind() Kind { return KindWait }

// Log emits message at level after substitution.
type Log struct {
	Level   LogLevel
	Message string
}

func (Log) Kind() Kind { return KindLog }

// SetVariable assigns the (substituted, JSON-parsed-if-possible) value of
// Value to Name in the run's context.
type SetVariable struct {
	Name  string
	Value string
}

func (SetVariable) Kind() Kind { return KindSetVariable }

// SubWorkflow delegates execution to another workflow, merging its final
// context back into the parent's on completion.
type SubWorkflow struct {
	Name           string
	InputVariables map[string]string
}

func (SubWorkflow) Kind() Kind { return KindSubWorkflow }

// Shell runs a command through a shell interpreter.
type Shell struct {
	Command        string
	WorkingDir     string
	Env            map[string]string
	Timeout        time.Duration
	ResultVariable string
}

func (Shell) Kind() Kind { return KindShell }

// Result is what every action variant produces: a JSON-serializable value
// plus whether the action is considered to have succeeded (distinct from a
// Go error: a shell command that exits non-zero is a successful action
// execution carrying a failed result).
type Result struct {
	Success bool
	Value   interface{}
}
