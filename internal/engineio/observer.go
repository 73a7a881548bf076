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
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/baton/pkg/engine"
	"github.com/tombee/baton/pkg/engine/action"
	"github.com/tombee/baton/pkg/engine/metrics"
)

// MetricsObserver implements executor.Observer by feeding every state
// entry and run completion into a metrics.Pipeline, bridging the executor
// (which only knows about executor.Observer) to the metrics pipeline.
type MetricsObserver struct {
	pipeline *metrics.Pipeline
	logger   *slog.Logger

	mu       sync.Mutex
	lastSeen map[engine.WorkflowRunID]time.Time
	started  map[engine.WorkflowRunID]bool
}

// NewMetricsObserver builds an observer feeding pipeline. logger may be nil.
func NewMetricsObserver(pipeline *metrics.Pipeline, logger *slog.Logger) *MetricsObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsObserver{
		pipeline: pipeline,
		logger:   logger,
		lastSeen: make(map[engine.WorkflowRunID]time.Time),
		started:  make(map[engine.WorkflowRunID]bool),
	}
}

// OnStateEnter implements executor.Observer.
func (o *MetricsObserver) OnStateEnter(run *engine.WorkflowRun, state engine.StateID, at time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started[run.ID] {
		o.pipeline.StartRun(run)
		o.started[run.ID] = true
	} else if prev, ok := o.lastSeen[run.ID]; ok {
		// Attribute the dwell time to the state being left, not the one
		// just entered: RecordStateDuration keys by the state that owned
		// the interval [prev, at).
		if len(run.History) >= 2 {
			o.pipeline.RecordStateDuration(run.ID, run.History[len(run.History)-2].State, at.Sub(prev))
		}
	}
	o.lastSeen[run.ID] = at
}

// OnActionResult implements executor.Observer. Failures are logged at
// warn level; successes are not logged to avoid flooding output on large
// workflows.
func (o *MetricsObserver) OnActionResult(run *engine.WorkflowRun, state engine.StateID, result action.Result, err error) {
	if err != nil {
		o.logger.Warn("action failed", "run", run.ID, "state", state, "error", err)
		return
	}
	if !result.Success {
		o.logger.Warn("action completed unsuccessfully", "run", run.ID, "state", state)
	}
}

// OnRunComplete implements executor.Observer.
func (o *MetricsObserver) OnRunComplete(run *engine.WorkflowRun) {
	o.mu.Lock()
	delete(o.lastSeen, run.ID)
	delete(o.started, run.ID)
	o.mu.Unlock()
	o.pipeline.CompleteRun(run)
}
