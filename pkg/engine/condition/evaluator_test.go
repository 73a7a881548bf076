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

package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/baton/pkg/engine"
	"github.com/tombee/baton/pkg/engine/cache"
)

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	pc, err := cache.NewProgramCache(16)
	require.NoError(t, err)
	return New(pc, nil)
}

func TestEvaluate_Always(t *testing.T) {
	e := newEvaluator(t)
	assert.True(t, e.Evaluate(engine.Always(), nil))
}

func TestEvaluate_OnSuccessOnFailure_DefaultWhenMissing(t *testing.T) {
	e := newEvaluator(t)
	ctx := map[string]interface{}{}

	assert.True(t, e.Evaluate(engine.OnSuccess(), ctx), "OnSuccess defaults true when last_action_result is absent")
	assert.False(t, e.Evaluate(engine.OnFailure(), ctx), "OnFailure defaults false when last_action_result is absent")
}

func TestEvaluate_OnSuccessOnFailure_Explicit(t *testing.T) {
	e := newEvaluator(t)

	succeeded := map[string]interface{}{"last_action_result": true}
	assert.True(t, e.Evaluate(engine.OnSuccess(), succeeded))
	assert.False(t, e.Evaluate(engine.OnFailure(), succeeded))

	failed := map[string]interface{}{"last_action_result": false}
	assert.False(t, e.Evaluate(engine.OnSuccess(), failed))
	assert.True(t, e.Evaluate(engine.OnFailure(), failed))
}

func TestEvaluate_CustomExpression_FirstMatchScenario(t *testing.T) {
	e := newEvaluator(t)

	cases := []struct {
		x        int
		expr     string
		expected bool
	}{
		{15, "x > 10", true},
		{5, "x > 10", false},
		{5, "x > 0", true},
		{-1, "x > 0", false},
	}

	for _, tc := range cases {
		ctx := map[string]interface{}{"x": tc.x}
		assert.Equal(t, tc.expected, e.Evaluate(engine.Custom(tc.expr), ctx))
	}
}

func TestEvaluate_CustomExpression_CompileErrorIsFalseNotFatal(t *testing.T) {
	e := newEvaluator(t)
	assert.False(t, e.Evaluate(engine.Custom("this is not ) valid"), map[string]interface{}{}))
}

func TestEvaluate_CustomExpression_MissingIdentifierIsFalse(t *testing.T) {
	e := newEvaluator(t)
	assert.False(t, e.Evaluate(engine.Custom("missingVar > 10"), map[string]interface{}{}))
}

func TestEvaluate_CustomExpression_DivideByZeroIsFalse(t *testing.T) {
	e := newEvaluator(t)
	assert.False(t, e.Evaluate(engine.Custom("1/0 > 0"), map[string]interface{}{}))
}

func TestEvaluate_CustomExpression_Truthy(t *testing.T) {
	e := newEvaluator(t)

	assert.True(t, e.Evaluate(engine.Custom(`has(items, "a")`), map[string]interface{}{
		"items": []interface{}{"a", "b"},
	}))
	assert.False(t, e.Evaluate(engine.Custom(`has(items, "z")`), map[string]interface{}{
		"items": []interface{}{"a", "b"},
	}))
	assert.True(t, e.Evaluate(engine.Custom(`length(items) > 1`), map[string]interface{}{
		"items": []interface{}{"a", "b"},
	}))
}

func TestEvaluate_CustomExpression_CachedProgramReused(t *testing.T) {
	pc, err := cache.NewProgramCache(16)
	require.NoError(t, err)
	e := New(pc, nil)

	e.Evaluate(engine.Custom("x > 1"), map[string]interface{}{"x": 2})
	e.Evaluate(engine.Custom("x > 1"), map[string]interface{}{"x": 0})

	stats := pc.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
}
