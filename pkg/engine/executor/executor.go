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

// Package executor implements the executor core: the cycle-by-cycle
// interpreter that drives a WorkflowRun from its initial state to
// Completed, Failed, or Cancelled.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/baton/pkg/engine"
	"github.com/tombee/baton/pkg/engine/action"
	"github.com/tombee/baton/pkg/engine/cache"
	"github.com/tombee/baton/pkg/engine/condition"
	"github.com/tombee/baton/pkg/engine/security"
)

// WorkflowSource resolves a workflow definition by name. The cache
// manager's WorkflowCache sits in front of whatever backing store an
// implementation wraps (database, filesystem, in-memory registry); Engine
// checks the cache itself before calling through.
type WorkflowSource interface {
	Load(name engine.WorkflowName) (*engine.Workflow, error)
}

// Observer receives lifecycle notifications from the Engine. A nil Observer
// on the Engine disables all notifications; partial observers can embed
// NoopObserver and override only what they need.
type Observer interface {
	OnStateEnter(run *engine.WorkflowRun, state engine.StateID, at time.Time)
	OnActionResult(run *engine.WorkflowRun, state engine.StateID, result action.Result, err error)
	OnRunComplete(run *engine.WorkflowRun)
}

// NoopObserver implements Observer with no-ops.
type NoopObserver struct{}

func (NoopObserver) OnStateEnter(*engine.WorkflowRun, engine.StateID, time.Time)              {}
func (NoopObserver) OnActionResult(*engine.WorkflowRun, engine.StateID, action.Result, error) {}
func (NoopObserver) OnRunComplete(*engine.WorkflowRun)                                        {}

// Engine drives WorkflowRuns to completion: a config-holding struct with
// injected collaborators, invoked per-run rather than owning run state
// itself.
type Engine struct {
	Config    engine.Config
	Workflows WorkflowSource
	Cache     *cache.Manager
	Condition *condition.Evaluator
	Actions   *action.Runtime
	Observer  Observer
	Logger    *slog.Logger

	// Guard enforces template-safety caps on a state's raw description
	// before it reaches the action parser. Nil disables the check:
	// embedders with a trusted, validated workflow source can opt out
	// rather than pay the regex scan on every cycle.
	Guard *security.TemplateGuard

	// TrustedSource marks every workflow description Guard inspects as
	// "trusted" (10x size cap, no variable-count/directive checks).
	TrustedSource bool
}

// New builds an Engine. workflows, cacheMgr, cond, and actions must be
// non-nil; observer and logger may be nil.
func New(cfg engine.Config, workflows WorkflowSource, cacheMgr *cache.Manager, cond *condition.Evaluator, actions *action.Runtime, observer Observer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Config:    cfg,
		Workflows: workflows,
		Cache:     cacheMgr,
		Condition: cond,
		Actions:   actions,
		Observer:  observer,
		Logger:    logger,
	}
}

// resolveWorkflow checks the Workflow Cache before falling through to the
// injected WorkflowSource, populating the cache on a miss.
func (e *Engine) resolveWorkflow(name engine.WorkflowName) (*engine.Workflow, error) {
	if wf, ok := e.Cache.Workflows.Get(name); ok {
		return wf, nil
	}
	wf, err := e.Workflows.Load(name)
	if err != nil {
		return nil, err
	}
	e.Cache.Workflows.Put(name, wf)
	return wf, nil
}

// Start constructs a fresh run positioned at workflow's initial state,
// status Running.
func (e *Engine) Start(workflow *engine.Workflow, initialContext map[string]any) *engine.WorkflowRun {
	id := engine.WorkflowRunID(uuid.NewString())
	run := engine.NewRun(id, workflow, initialContext)
	if e.Observer != nil {
		e.Observer.OnStateEnter(run, run.CurrentState, run.StartedAt)
	}
	return run
}

// TransitionPath returns the conditions guarding the edge from->to, in
// declaration order, resolved through the transition cache (populated on a
// miss). The executor warms this as it takes transitions; tools use it to
// label traces without re-scanning the workflow's transition list.
func (e *Engine) TransitionPath(wf *engine.Workflow, from, to engine.StateID) cache.TransitionPath {
	key := engine.TransitionKey{From: from, To: to}
	if p, ok := e.Cache.Transitions.Get(key); ok {
		return p
	}

	var conds []string
	for _, t := range wf.OutgoingTransitions(from) {
		if t.To == to {
			conds = append(conds, describeCondition(t.Condition))
		}
	}
	p := cache.TransitionPath{From: from, To: to, Conditions: conds, CachedAt: time.Now()}
	e.Cache.Transitions.Put(key, p)
	return p
}

func describeCondition(c engine.TransitionCondition) string {
	if c.Kind == engine.ConditionCustomExpr {
		return string(c.Kind) + ": " + c.Expression
	}
	return string(c.Kind)
}

// ExecuteState drives run to completion by repeatedly calling
// ExecuteSingleCycle until the run leaves StatusRunning or ctx is
// cancelled.
func (e *Engine) ExecuteState(ctx context.Context, run *engine.WorkflowRun) {
	for run.Status == engine.StatusRunning {
		if ctx.Err() != nil {
			run.Cancel()
			break
		}
		if _, err := e.ExecuteSingleCycle(ctx, run); err != nil {
			break
		}
	}
	if e.Observer != nil {
		e.Observer.OnRunComplete(run)
	}
}
