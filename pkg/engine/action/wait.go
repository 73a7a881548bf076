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
	"context"
	"time"

	"github.com/tombee/baton/pkg/engine"
)

// UserConfirmer blocks until a human confirms a "wait for user" action.
// When the Runtime has no UserConfirmer (nil Confirm), "wait for user"
// returns immediately (non-interactive mode); an interactive frontend
// injects a real one.
type UserConfirmer interface {
	Confirm(ctx context.Context, message string) error
}

// executeWait implements the two Wait shapes: a fixed duration sleeps
// cooperatively for exactly that long (no earlier return on other signals,
// so a duration wait is not cancellable by ctx, only by the process
// exiting), while "wait for user" defers to rt's UserConfirmer if one is
// configured, or returns immediately otherwise.
func (rt *Runtime) executeWait(ctx context.Context, w Wait, run *engine.Context) (Result, error) {
	if w.HasWait {
		timer := time.NewTimer(w.Duration)
		defer timer.Stop()
		<-timer.C
		return Result{Success: true, Value: map[string]any{"waited_ms": w.Duration.Milliseconds()}}, nil
	}

	if rt.Confirm != nil {
		if err := rt.Confirm.Confirm(ctx, w.Message); err != nil {
			return Result{Success: false, Value: w.Message}, nil
		}
	}
	return Result{Success: true, Value: w.Message}, nil
}
