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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NoMatch(t *testing.T) {
	a, err := Parse("s1", "just some narrative text")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestParse_Empty(t *testing.T) {
	a, err := Parse("s1", "   ")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestParse_Prompt_NoArgs(t *testing.T) {
	a, err := Parse("s1", `Execute prompt "review-code"`)
	require.NoError(t, err)
	p, ok := a.(Prompt)
	require.True(t, ok)
	assert.Equal(t, "review-code", p.Name)
	assert.Empty(t, p.Args)
}

func TestParse_Prompt_WithArgs(t *testing.T) {
	a, err := Parse("s1", `Execute prompt "review-code" with file="${path}" depth="2"`)
	require.NoError(t, err)
	p := a.(Prompt)
	assert.Equal(t, "review-code", p.Name)
	assert.Equal(t, "${path}", p.Args["file"])
	assert.Equal(t, "2", p.Args["depth"])
}

func TestParse_Prompt_InvalidArgKey(t *testing.T) {
	_, err := Parse("s1", `Execute prompt "x" with 1bad="value"`)
	require.Error(t, err)
}

func TestParse_Prompt_CaseInsensitiveVerb(t *testing.T) {
	a, err := Parse("s1", `EXECUTE PROMPT "x"`)
	require.NoError(t, err)
	assert.Equal(t, "x", a.(Prompt).Name)
}

func TestParse_WaitDuration(t *testing.T) {
	cases := []struct {
		desc string
		want time.Duration
	}{
		{"Wait 1 second", time.Second},
		{"Wait 30 seconds", 30 * time.Second},
		{"Wait 5 m", 5 * time.Minute},
		{"Wait 2 min", 2 * time.Minute},
		{"Wait 2 minutes", 2 * time.Minute},
		{"Wait 1 hour", time.Hour},
		{"Wait 3 hours", 3 * time.Hour},
		{"Wait 10 s", 10 * time.Second},
	}
	for _, tc := range cases {
		a, err := Parse("s1", tc.desc)
		require.NoError(t, err, tc.desc)
		w, ok := a.(Wait)
		require.True(t, ok, tc.desc)
		assert.True(t, w.HasWait)
		assert.Equal(t, tc.want, w.Duration, tc.desc)
	}
}

func TestParse_WaitForUser(t *testing.T) {
	a, err := Parse("s1", "Wait for user confirmation")
	require.NoError(t, err)
	w := a.(Wait)
	assert.False(t, w.HasWait)
	assert.Equal(t, "Wait for user confirmation", w.Message)
}

func TestParse_Log(t *testing.T) {
	a, err := Parse("s1", `Log "hello"`)
	require.NoError(t, err)
	l := a.(Log)
	assert.Equal(t, LogInfo, l.Level)
	assert.Equal(t, "hello", l.Message)

	a, err = Parse("s1", `Log error "boom"`)
	require.NoError(t, err)
	assert.Equal(t, LogError, a.(Log).Level)

	a, err = Parse("s1", `Log warning "careful"`)
	require.NoError(t, err)
	assert.Equal(t, LogWarning, a.(Log).Level)
}

func TestParse_SetVariable(t *testing.T) {
	a, err := Parse("s1", `Set x = "1"`)
	require.NoError(t, err)
	sv := a.(SetVariable)
	assert.Equal(t, "x", sv.Name)
	assert.Equal(t, "1", sv.Value)

	a, err = Parse("s1", `Set y="2"`)
	require.NoError(t, err)
	assert.Equal(t, "y", a.(SetVariable).Name)
}

func TestParse_SetVariable_InvalidName(t *testing.T) {
	_, err := Parse("s1", `Set 1x = "1"`)
	require.Error(t, err)
}

func TestParse_SubWorkflow_RunWorkflow(t *testing.T) {
	a, err := Parse("s1", `Run workflow "child-workflow"`)
	require.NoError(t, err)
	sw := a.(SubWorkflow)
	assert.Equal(t, "child-workflow", sw.Name)
}

func TestParse_SubWorkflow_DelegateWithInput(t *testing.T) {
	a, err := Parse("s1", `Delegate to "child" with input="${data}"`)
	require.NoError(t, err)
	sw := a.(SubWorkflow)
	assert.Equal(t, "child", sw.Name)
	assert.Equal(t, "${data}", sw.InputVariables["input"])
}

func TestParse_Shell(t *testing.T) {
	a, err := Parse("s1", `Shell "exit 1"`)
	require.NoError(t, err)
	sh := a.(Shell)
	assert.Equal(t, "exit 1", sh.Command)
}

func TestParse_RepeatedParseIsDeterministic(t *testing.T) {
	descriptions := []string{
		`Execute prompt "x" with key="value"`,
		`Wait 5 minutes`,
		`Log error "oops"`,
		`Set x = "1"`,
		`Run workflow "child"`,
		`Shell "echo hi"`,
	}
	for _, d := range descriptions {
		a1, err := Parse("s1", d)
		require.NoError(t, err)
		a2, err := Parse("s1", d)
		require.NoError(t, err)
		assert.Equal(t, a1, a2, d)
	}
}
