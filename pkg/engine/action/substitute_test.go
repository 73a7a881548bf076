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

	"github.com/stretchr/testify/assert"
)

func TestSubstitute_KnownVariable(t *testing.T) {
	out := Substitute("hello ${name}", map[string]any{"name": "world"})
	assert.Equal(t, "hello world", out)
}

func TestSubstitute_UnknownVariableLeftVerbatim(t *testing.T) {
	out := Substitute("hello ${missing}", map[string]any{})
	assert.Equal(t, "hello ${missing}", out)
}

func TestSubstitute_ArraySerializedAsJSON(t *testing.T) {
	out := Substitute("items: ${items}", map[string]any{"items": []any{"a", "b"}})
	assert.Equal(t, `items: ["a","b"]`, out)
}

func TestSubstitute_ObjectSerializedAsJSON(t *testing.T) {
	out := Substitute("obj: ${o}", map[string]any{"o": map[string]any{"k": "v"}})
	assert.Equal(t, `obj: {"k":"v"}`, out)
}

func TestSubstitute_SinglePass_NoReExpansion(t *testing.T) {
	vars := map[string]any{
		"a": "${b}",
		"b": "resolved",
	}
	out := Substitute("${a}", vars)
	assert.Equal(t, "${b}", out, "a resolves to the literal string ${b}, which must not be re-expanded")
}

func TestSubstitute_Idempotent(t *testing.T) {
	vars := map[string]any{"name": "world"}
	once := Substitute("hello ${name}", vars)
	twice := Substitute(once, vars)
	assert.Equal(t, once, twice)
}

func TestSubstitute_DottedAndDashedNames(t *testing.T) {
	vars := map[string]any{"step.output-1": "ok"}
	out := Substitute("${step.output-1}", vars)
	assert.Equal(t, "ok", out)
}
