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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextTypedAccessors(t *testing.T) {
	c := NewContext(map[string]any{
		"s":     "text",
		"b":     true,
		"n":     float64(42), // JSON-decoded numbers arrive as float64
		"f":     1.5,
		"items": []any{"a"},
		"obj":   map[string]any{"k": "v"},
	})

	s, err := c.GetString("s")
	require.NoError(t, err)
	assert.Equal(t, "text", s)

	b, err := c.GetBool("b")
	require.NoError(t, err)
	assert.True(t, b)

	n, err := c.GetInt64("n")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = c.GetInt64("f")
	assert.Error(t, err, "1.5 has a fractional part and must not silently truncate")

	f, err := c.GetFloat64("f")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	items, err := c.GetSlice("items")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	obj, err := c.GetMap("obj")
	require.NoError(t, err)
	assert.Equal(t, "v", obj["k"])
}

func TestContextAccessorErrors(t *testing.T) {
	c := NewContext(map[string]any{"n": float64(1)})

	_, err := c.GetString("missing")
	assert.ErrorAs(t, err, &ErrContextKeyNotFound{})

	_, err = c.GetString("n")
	assert.ErrorAs(t, err, &ErrContextTypeAssertion{})

	assert.Equal(t, "fallback", c.GetStringOr("missing", "fallback"))
	assert.Equal(t, int64(7), c.GetInt64Or("missing", 7))
	assert.Equal(t, 2.5, c.GetFloat64Or("missing", 2.5))
	assert.True(t, c.GetBoolOr("missing", true))
}

func TestContextCloneIsolatesTopLevelWrites(t *testing.T) {
	parent := NewContext(map[string]any{"x": 1})
	branch := parent.Clone()
	branch.Set("x", 2)
	branch.Set("y", 3)

	v, _ := parent.Get("x")
	assert.Equal(t, 1, v)
	_, ok := parent.Get("y")
	assert.False(t, ok)
}

func TestContextMergeExcludesReservedKeys(t *testing.T) {
	parent := NewContext(map[string]any{"x": 1, KeyLastActionResult: true})
	branch := NewContext(map[string]any{"x": 2, "y": 3, KeyLastActionResult: false})

	parent.Merge(branch, KeyLastActionResult)

	x, _ := parent.Get("x")
	assert.Equal(t, 2, x, "later writer wins for ordinary keys")
	y, _ := parent.Get("y")
	assert.Equal(t, 3, y)
	lar, _ := parent.GetBool(KeyLastActionResult)
	assert.True(t, lar, "excluded key keeps the parent's value")
}
