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

package engine

import (
	"encoding/json"
	"fmt"
)

// Reserved context keys. Actions and the executor read/write these by
// convention; they are ordinary map entries, not a distinct storage class.
const (
	// KeyLastActionResult records whether the most recently executed action
	// succeeded. Read by OnSuccess/OnFailure transition guards.
	KeyLastActionResult = "last_action_result"

	// KeyWorkflowStack tracks the chain of sub-workflow names currently
	// being executed, for cycle detection.
	KeyWorkflowStack = "_workflow_stack"

	// Shell-action result keys.
	KeyStdout     = "stdout"
	KeyStderr     = "stderr"
	KeyExitCode   = "exit_code"
	KeySuccess    = "success"
	KeyFailure    = "failure"
	KeyDurationMS = "duration_ms"

	// KeyClaudeResponse holds the last prompt action's trimmed stdout.
	KeyClaudeResponse = "claude_response"
)

// ErrContextKeyNotFound is distinct from a generic error so callers can
// distinguish "missing" from "wrong type" without parsing strings.
type ErrContextKeyNotFound struct{ Key string }

func (e ErrContextKeyNotFound) Error() string { return fmt.Sprintf("context key %q not found", e.Key) }

// ErrContextTypeAssertion is returned when a context value exists but isn't
// the requested type.
type ErrContextTypeAssertion struct {
	Key  string
	Got  string
	Want string
}

func (e ErrContextTypeAssertion) Error() string {
	return fmt.Sprintf("context key %q is %s, not %s", e.Key, e.Got, e.Want)
}

// Context is the mutable, single-writer mapping of variables visible to
// actions and conditions within a single run. Values are the JSON sum type
// (null|bool|number|string|array|object); arbitrary Go values are accepted
// but non-JSON-marshalable values will fail serialization in the trace
// emitter.
//
// Safe for concurrent reads; NOT safe for concurrent writes. The owning
// executor is the only writer for the lifetime of a run.
type Context struct {
	vars map[string]any
}

// NewContext creates a Context from an initial variable set. A nil input is
// treated as empty.
func NewContext(initial map[string]any) *Context {
	vars := make(map[string]any, len(initial))
	for k, v := range initial {
		vars[k] = v
	}
	return &Context{vars: vars}
}

// Clone returns a deep-enough copy for fork-branch isolation: top-level keys
// are copied into a new map, but nested maps/slices are shared by reference.
// Branches never mutate a value in place, only ever overwrite a top-level
// key, so reference sharing below the top level is observably safe.
func (c *Context) Clone() *Context {
	cp := make(map[string]any, len(c.vars))
	for k, v := range c.vars {
		cp[k] = v
	}
	return &Context{vars: cp}
}

// Get returns the raw value for key and whether it was present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.vars[key]
	return v, ok
}

// Set stores value under key, overwriting any existing entry.
func (c *Context) Set(key string, value any) {
	c.vars[key] = value
}

// Delete removes key, if present.
func (c *Context) Delete(key string) {
	delete(c.vars, key)
}

// Keys returns all keys currently bound in the context, in no particular
// order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.vars))
	for k := range c.vars {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a shallow copy of the underlying map, suitable for
// passing to the condition evaluator or the substitution engine as a
// read-only view.
func (c *Context) Snapshot() map[string]any {
	cp := make(map[string]any, len(c.vars))
	for k, v := range c.vars {
		cp[k] = v
	}
	return cp
}

// Merge copies every key from other into c except the keys named in
// exclude; reserved keys such as last_action_result and the workflow stack
// are skipped only when the caller lists them there. Later callers win:
// Merge always overwrites.
func (c *Context) Merge(other *Context, exclude ...string) {
	excluded := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		excluded[k] = true
	}
	for k, v := range other.vars {
		if excluded[k] {
			continue
		}
		c.vars[k] = v
	}
}

// GetString retrieves a string value: ErrContextKeyNotFound if absent,
// ErrContextTypeAssertion if present with the wrong type.
func (c *Context) GetString(key string) (string, error) {
	v, ok := c.vars[key]
	if !ok {
		return "", ErrContextKeyNotFound{Key: key}
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrContextTypeAssertion{Key: key, Got: fmt.Sprintf("%T", v), Want: "string"}
	}
	return s, nil
}

// GetStringOr returns the string value or defaultVal if missing/wrong type.
func (c *Context) GetStringOr(key, defaultVal string) string {
	s, err := c.GetString(key)
	if err != nil {
		return defaultVal
	}
	return s
}

// GetBool retrieves a bool value, applying the same missing/wrong-type
// contract as GetString.
func (c *Context) GetBool(key string) (bool, error) {
	v, ok := c.vars[key]
	if !ok {
		return false, ErrContextKeyNotFound{Key: key}
	}
	b, ok := v.(bool)
	if !ok {
		return false, ErrContextTypeAssertion{Key: key, Got: fmt.Sprintf("%T", v), Want: "bool"}
	}
	return b, nil
}

// GetBoolOr returns the bool value or defaultVal if missing/wrong type.
func (c *Context) GetBoolOr(key string, defaultVal bool) bool {
	b, err := c.GetBool(key)
	if err != nil {
		return defaultVal
	}
	return b
}

// GetInt64 retrieves an integer value. Numbers that arrived via JSON
// decoding are float64; those convert when they carry no fractional part.
func (c *Context) GetInt64(key string) (int64, error) {
	v, ok := c.vars[key]
	if !ok {
		return 0, ErrContextKeyNotFound{Key: key}
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n == float64(int64(n)) {
			return int64(n), nil
		}
	}
	return 0, ErrContextTypeAssertion{Key: key, Got: fmt.Sprintf("%T", v), Want: "int64"}
}

// GetInt64Or returns the integer value or defaultVal if missing/wrong type.
func (c *Context) GetInt64Or(key string, defaultVal int64) int64 {
	n, err := c.GetInt64(key)
	if err != nil {
		return defaultVal
	}
	return n
}

// GetFloat64 retrieves a float value, accepting integer-typed entries too.
func (c *Context) GetFloat64(key string) (float64, error) {
	v, ok := c.vars[key]
	if !ok {
		return 0, ErrContextKeyNotFound{Key: key}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, ErrContextTypeAssertion{Key: key, Got: fmt.Sprintf("%T", v), Want: "float64"}
}

// GetFloat64Or returns the float value or defaultVal if missing/wrong type.
func (c *Context) GetFloat64Or(key string, defaultVal float64) float64 {
	f, err := c.GetFloat64(key)
	if err != nil {
		return defaultVal
	}
	return f
}

// GetSlice retrieves an array value.
func (c *Context) GetSlice(key string) ([]any, error) {
	v, ok := c.vars[key]
	if !ok {
		return nil, ErrContextKeyNotFound{Key: key}
	}
	s, ok := v.([]any)
	if !ok {
		return nil, ErrContextTypeAssertion{Key: key, Got: fmt.Sprintf("%T", v), Want: "[]any"}
	}
	return s, nil
}

// GetMap retrieves an object value.
func (c *Context) GetMap(key string) (map[string]any, error) {
	v, ok := c.vars[key]
	if !ok {
		return nil, ErrContextKeyNotFound{Key: key}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrContextTypeAssertion{Key: key, Got: fmt.Sprintf("%T", v), Want: "map[string]any"}
	}
	return m, nil
}

// AsJSON serializes the context to an indented JSON document, primarily for
// the Visualization Emitter and debugging.
func (c *Context) AsJSON() ([]byte, error) {
	return json.MarshalIndent(c.vars, "", "  ")
}
