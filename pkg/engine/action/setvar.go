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
	"encoding/json"

	"github.com/tombee/baton/pkg/engine"
)

// executeSetVariable substitutes sv.Value and attempts to parse the result
// as JSON; on success the parsed value (number, bool, array, object, null)
// is stored, otherwise the raw substituted string is stored as-is. The
// stored value is also the action's result.
func (rt *Runtime) executeSetVariable(sv SetVariable, run *engine.Context) (Result, error) {
	substituted := Substitute(sv.Value, contextVars(run))

	var parsed any
	var stored any = substituted
	if err := json.Unmarshal([]byte(substituted), &parsed); err == nil {
		stored = parsed
	}

	run.Set(sv.Name, stored)
	return Result{Success: true, Value: stored}, nil
}
