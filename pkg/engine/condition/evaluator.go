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

// Package condition evaluates transition guards: always / on-success /
// on-failure / CEL-style expression. Expression compilation is delegated to
// the shared cache.ProgramCache so every run and every workflow reuse the
// same compiled-program cache rather than each keeping its own.
package condition

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/baton/pkg/engine"
	"github.com/tombee/baton/pkg/engine/cache"
	engineerrors "github.com/tombee/baton/pkg/engine/errors"
)

// Evaluator evaluates TransitionConditions against a run's context.
type Evaluator struct {
	programs *cache.ProgramCache
	logger   *slog.Logger
}

// New creates an Evaluator backed by the given program cache. logger may be
// nil, in which case slog.Default() is used.
func New(programs *cache.ProgramCache, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{programs: programs, logger: logger}
}

// "contains" is a reserved operator in expr-lang, so the user-facing
// helpers are named "has" and "includes" (aliases of the same function)
// plus "length".
var builtinEnv = map[string]interface{}{
	"has":      containsFunc,
	"includes": containsFunc,
	"length":   lenFunc,
}

// Evaluate evaluates cond against ctx. Always is always true. OnSuccess and
// OnFailure read last_action_result from ctx; when it is missing, OnSuccess
// holds (an absent action means nothing failed) and OnFailure does not.
// Custom expressions are compiled (on a cache miss) and run; compile or
// evaluation failures are logged and evaluate to false, never fatal to the
// run.
func (e *Evaluator) Evaluate(cond engine.TransitionCondition, ctx map[string]interface{}) bool {
	switch cond.Kind {
	case engine.ConditionAlways:
		return true
	case engine.ConditionOnSuccess:
		return lastActionResultOr(ctx, true)
	case engine.ConditionOnFailure:
		return !lastActionResultOr(ctx, true)
	case engine.ConditionCustomExpr:
		result, err := e.evaluateCustom(cond.Expression, ctx)
		if err != nil {
			e.logger.Warn("condition evaluation failed, treating as false",
				"expression", cond.Expression, "error", err)
			return false
		}
		return result
	default:
		return false
	}
}

// lastActionResultOr mirrors WorkflowRun.LastActionResult's default-handling
// without importing the run type, since conditions only ever see the raw
// context map.
func lastActionResultOr(ctx map[string]interface{}, defaultVal bool) bool {
	v, ok := ctx[engine.KeyLastActionResult]
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

func (e *Evaluator) evaluateCustom(expression string, ctx map[string]interface{}) (bool, error) {
	if expression == "" {
		return true, nil
	}

	program, err := e.programs.GetOrCompile(expression, func() (*vm.Program, error) {
		return expr.Compile(expression,
			expr.Env(builtinEnv),
			expr.AllowUndefinedVariables(),
		)
	})
	if err != nil {
		return false, &engineerrors.ConditionEvaluationError{Expression: expression, Cause: err}
	}

	evalCtx := make(map[string]interface{}, len(ctx)+2)
	for k, v := range ctx {
		evalCtx[k] = v
	}
	evalCtx["has"] = containsFunc
	evalCtx["includes"] = containsFunc
	evalCtx["length"] = lenFunc

	result, err := expr.Run(program, evalCtx)
	if err != nil {
		return false, &engineerrors.ConditionEvaluationError{Expression: expression, Cause: err}
	}

	return truthy(result), nil
}

// truthy coerces an arbitrary expression result to bool:
// booleans pass through; numbers are truthy when non-zero; strings,
// arrays, and objects are truthy when non-empty; nil is false.
func truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// containsFunc checks whether a slice/map/string contains an element,
// substring, or key.
func containsFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("contains requires exactly 2 arguments, got %d", len(args))
	}
	collection, target := args[0], args[1]
	if collection == nil {
		return false, nil
	}

	v := reflect.ValueOf(collection)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if reflect.DeepEqual(v.Index(i).Interface(), target) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		return v.MapIndex(reflect.ValueOf(target)).IsValid(), nil
	case reflect.String:
		str, ok := collection.(string)
		substr, ok2 := target.(string)
		if !ok || !ok2 {
			return false, nil
		}
		return len(substr) > 0 && strings.Contains(str, substr), nil
	default:
		return false, nil
	}
}

// lenFunc returns the length of a collection or string.
func lenFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("length requires exactly 1 argument, got %d", len(args))
	}
	if args[0] == nil {
		return 0, nil
	}
	v := reflect.ValueOf(args[0])
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return v.Len(), nil
	default:
		return nil, fmt.Errorf("length: unsupported type %T", args[0])
	}
}
