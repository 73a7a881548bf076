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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/baton/pkg/engine"
)

const greetDoc = `{
  "name": "greet",
  "initial_state": "Start",
  "states": [
    {"id": "Start", "description": "Log \"hello\"", "type": "normal"},
    {"id": "End", "type": "normal", "is_terminal": true}
  ],
  "transitions": [
    {"from": "Start", "to": "End", "condition": "always"}
  ]
}`

func TestParseDefinitionBuildsValidatedWorkflow(t *testing.T) {
	wf, err := ParseDefinition([]byte(greetDoc), engine.DefaultValidateOptions())
	require.NoError(t, err)

	assert.Equal(t, engine.WorkflowName("greet"), wf.Name)
	assert.Equal(t, engine.StateID("Start"), wf.InitialState)
	require.Len(t, wf.Transitions, 1)
	assert.Equal(t, engine.ConditionAlways, wf.Transitions[0].Condition.Kind)
}

func TestParseDefinitionMapsConditionShorthands(t *testing.T) {
	assert.Equal(t, engine.ConditionAlways, condition("").Kind)
	assert.Equal(t, engine.ConditionAlways, condition("always").Kind)
	assert.Equal(t, engine.ConditionOnSuccess, condition("on_success").Kind)
	assert.Equal(t, engine.ConditionOnFailure, condition("on_failure").Kind)

	custom := condition("x > 10")
	assert.Equal(t, engine.ConditionCustomExpr, custom.Kind)
	assert.Equal(t, "x > 10", custom.Expression)
}

func TestParseDefinitionMapsStateTypes(t *testing.T) {
	assert.Equal(t, engine.StateChoice, stateType("choice"))
	assert.Equal(t, engine.StateFork, stateType("fork"))
	assert.Equal(t, engine.StateJoin, stateType("join"))
	assert.Equal(t, engine.StateNormal, stateType("normal"))
	assert.Equal(t, engine.StateNormal, stateType(""))
}

func TestParseDefinitionRejectsInvalidJSON(t *testing.T) {
	_, err := ParseDefinition([]byte("{not json"), engine.DefaultValidateOptions())
	require.Error(t, err)
}

func TestParseDefinitionRejectsMissingInitialState(t *testing.T) {
	doc := `{"name": "bad", "initial_state": "ghost", "states": [{"id": "a", "is_terminal": true}], "transitions": []}`
	_, err := ParseDefinition([]byte(doc), engine.DefaultValidateOptions())
	require.Error(t, err)
}

func TestDirectorySourceLoadsSiblingWorkflow(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "greet.json"), []byte(greetDoc), 0o644))

	source, err := NewDirectorySource(root, engine.DefaultValidateOptions())
	require.NoError(t, err)

	wf, err := source.Load("greet")
	require.NoError(t, err)
	assert.Equal(t, engine.WorkflowName("greet"), wf.Name)
}

func TestDirectorySourceRejectsEscapingName(t *testing.T) {
	root := t.TempDir()
	source, err := NewDirectorySource(root, engine.DefaultValidateOptions())
	require.NoError(t, err)

	_, err = source.Load("../outside")
	require.Error(t, err)
}
