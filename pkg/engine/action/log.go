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
	"log/slog"

	"github.com/tombee/baton/pkg/engine"
)

// executeLog substitutes l.Message and emits it through rt.Logger at the
// mapped level. The emitted message is the action's result.
func (rt *Runtime) executeLog(stateID string, l Log, run *engine.Context) (Result, error) {
	msg := Substitute(l.Message, contextVars(run))

	attrs := []any{slog.String("state", stateID)}
	switch l.Level {
	case LogError:
		rt.Logger.Error(msg, attrs...)
	case LogWarning:
		rt.Logger.Warn(msg, attrs...)
	default:
		rt.Logger.Info(msg, attrs...)
	}

	return Result{Success: true, Value: msg}, nil
}
