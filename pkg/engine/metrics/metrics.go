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

// Package metrics implements the metrics pipeline: per-run, per-workflow,
// and global rollups with bounded in-memory footprints and trend series,
// plus a Prometheus export surface.
package metrics

import (
	"sync"
	"time"

	"github.com/tombee/baton/pkg/engine"
)

// RunMetrics is the per-run rollup. StateDurations is capped at
// MaxStateDurationsPerRun; once full, further states are dropped. A run
// with more distinct states than the cap keeps the first
// MaxStateDurationsPerRun distinct states recorded (later durations for
// those states still overwrite theirs) and loses the rest.
type RunMetrics struct {
	RunID           engine.WorkflowRunID
	WorkflowName    engine.WorkflowName
	StartedAt       time.Time
	CompletedAt     time.Time
	Status          engine.RunStatus
	TransitionCount int
	ErrorDetails    string
	StateDurations  map[engine.StateID]time.Duration
	CostMetrics     *engine.CostMetrics
}

// Duration returns CompletedAt - StartedAt, or zero if still running.
func (m *RunMetrics) Duration() time.Duration {
	if m.CompletedAt.IsZero() {
		return 0
	}
	return m.CompletedAt.Sub(m.StartedAt)
}

// WorkflowSummaryMetrics aggregates RunMetrics by workflow name.
type WorkflowSummaryMetrics struct {
	WorkflowName       engine.WorkflowName
	TotalsByStatus     map[engine.RunStatus]int
	AverageDuration    time.Duration
	MinDuration        time.Duration
	MaxDuration        time.Duration
	AverageTransitions float64
	HottestStates      []StateHeat
	LastUpdated        time.Time

	runCount      int
	durationSum   time.Duration
	transitionSum int
	stateHits     map[engine.StateID]int
}

// StateHeat is one entry in a WorkflowSummaryMetrics' top-10 hottest-states
// list: a state and how many times it appears in the histories of the
// finished runs folded so far (a run that visits it twice counts twice).
type StateHeat struct {
	State engine.StateID
	Hits  int
}

// GlobalMetrics aggregates across every workflow.
type GlobalMetrics struct {
	TotalsByStatus  map[engine.RunStatus]int
	AverageDuration time.Duration

	CostTrend            TrendSeries
	TokenEfficiencyTrend TrendSeries
	AvgCostPerCallTrend  TrendSeries

	runCount    int
	durationSum time.Duration
}

// TrendSample is one (timestamp, value) point in a TrendSeries.
type TrendSample struct {
	At    time.Time
	Value float64
}

// TrendSeries is a bounded list of TrendSamples; appending past the limit
// drops the oldest sample.
type TrendSeries struct {
	Samples []TrendSample
	limit   int
}

func newTrendSeries(limit int) TrendSeries {
	if limit <= 0 {
		limit = 200
	}
	return TrendSeries{limit: limit}
}

func (s *TrendSeries) append(at time.Time, value float64) {
	s.Samples = append(s.Samples, TrendSample{At: at, Value: value})
	if over := len(s.Samples) - s.limit; over > 0 {
		s.Samples = s.Samples[over:]
	}
}

// Pipeline owns the bounded metrics state. It is shared across runs and
// safe for concurrent use; every update holds the mutex for one short
// critical section.
type Pipeline struct {
	mu sync.Mutex

	cfg engine.MetricsConfig

	runs          map[engine.WorkflowRunID]*RunMetrics
	runOrder      []engine.WorkflowRunID // oldest-first, for MaxRunMetrics eviction
	workflows     map[engine.WorkflowName]*WorkflowSummaryMetrics
	workflowOrder []engine.WorkflowName // oldest-last_updated-first
	global        *GlobalMetrics

	costSessions map[engine.WorkflowRunID]*engine.CostMetrics
	exporter     *prometheusExporter
}

// NewPipeline builds a Pipeline sized from cfg. Zero fields in cfg fall
// back to the documented defaults.
func NewPipeline(cfg engine.MetricsConfig) *Pipeline {
	if cfg.MaxRunMetrics <= 0 {
		cfg.MaxRunMetrics = 100
	}
	if cfg.MaxStateDurationsPerRun <= 0 {
		cfg.MaxStateDurationsPerRun = 50
	}
	if cfg.MaxWorkflowMetrics <= 0 {
		cfg.MaxWorkflowMetrics = 100
	}
	if cfg.TrendSeriesLength <= 0 {
		cfg.TrendSeriesLength = 200
	}

	return &Pipeline{
		cfg:       cfg,
		runs:      make(map[engine.WorkflowRunID]*RunMetrics),
		workflows: make(map[engine.WorkflowName]*WorkflowSummaryMetrics),
		global: &GlobalMetrics{
			TotalsByStatus:       make(map[engine.RunStatus]int),
			CostTrend:            newTrendSeries(cfg.TrendSeriesLength),
			TokenEfficiencyTrend: newTrendSeries(cfg.TrendSeriesLength),
			AvgCostPerCallTrend:  newTrendSeries(cfg.TrendSeriesLength),
		},
		costSessions: make(map[engine.WorkflowRunID]*engine.CostMetrics),
		exporter:     newPrometheusExporter(),
	}
}

// StartRun registers a newly-started run, creating its RunMetrics entry.
func (p *Pipeline) StartRun(run *engine.WorkflowRun) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rm := &RunMetrics{
		RunID:          run.ID,
		WorkflowName:   run.Workflow.Name,
		StartedAt:      run.StartedAt,
		Status:         run.Status,
		StateDurations: make(map[engine.StateID]time.Duration),
	}
	p.runs[run.ID] = rm
	p.runOrder = append(p.runOrder, run.ID)
	p.evictRunsLocked()
}

// RecordStateDuration attaches a state's dwell time to its run's
// StateDurations map, capped at MaxStateDurationsPerRun.
func (p *Pipeline) RecordStateDuration(runID engine.WorkflowRunID, state engine.StateID, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rm, ok := p.runs[runID]
	if !ok {
		return
	}
	if _, exists := rm.StateDurations[state]; !exists && len(rm.StateDurations) >= p.cfg.MaxStateDurationsPerRun {
		return
	}
	rm.StateDurations[state] = d
}

// CompleteRun finalizes a run's RunMetrics and folds it into its workflow's
// summary and the global rollup.
func (p *Pipeline) CompleteRun(run *engine.WorkflowRun) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rm, ok := p.runs[run.ID]
	if !ok {
		return
	}
	rm.CompletedAt = time.Now()
	rm.Status = run.Status
	rm.TransitionCount = run.TransitionCount
	rm.ErrorDetails = run.ErrorMessage
	rm.CostMetrics = p.costSessions[run.ID]

	p.foldWorkflowLocked(rm, run)
	p.foldGlobalLocked(rm)
	p.exporter.observeRun(rm)
}

func (p *Pipeline) foldWorkflowLocked(rm *RunMetrics, run *engine.WorkflowRun) {
	ws, ok := p.workflows[rm.WorkflowName]
	if !ok {
		ws = &WorkflowSummaryMetrics{
			WorkflowName:   rm.WorkflowName,
			TotalsByStatus: make(map[engine.RunStatus]int),
			stateHits:      make(map[engine.StateID]int),
		}
		p.workflows[rm.WorkflowName] = ws
	} else {
		p.touchWorkflowOrderLocked(rm.WorkflowName)
	}

	ws.TotalsByStatus[rm.Status]++
	ws.runCount++
	d := rm.Duration()
	ws.durationSum += d
	if ws.MinDuration == 0 || d < ws.MinDuration {
		ws.MinDuration = d
	}
	if d > ws.MaxDuration {
		ws.MaxDuration = d
	}
	ws.transitionSum += rm.TransitionCount
	ws.AverageDuration = ws.durationSum / time.Duration(ws.runCount)
	ws.AverageTransitions = float64(ws.transitionSum) / float64(ws.runCount)

	for _, h := range run.History {
		ws.stateHits[h.State]++
	}
	ws.HottestStates = topStates(ws.stateHits, 10)
	ws.LastUpdated = time.Now()

	p.workflowOrder = append(p.workflowOrder, rm.WorkflowName)
	p.evictWorkflowsLocked()
}

func (p *Pipeline) touchWorkflowOrderLocked(name engine.WorkflowName) {
	for i, n := range p.workflowOrder {
		if n == name {
			p.workflowOrder = append(p.workflowOrder[:i], p.workflowOrder[i+1:]...)
			break
		}
	}
}

func topStates(hits map[engine.StateID]int, n int) []StateHeat {
	out := make([]StateHeat, 0, len(hits))
	for s, c := range hits {
		out = append(out, StateHeat{State: s, Hits: c})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Hits > out[j-1].Hits; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (p *Pipeline) foldGlobalLocked(rm *RunMetrics) {
	g := p.global
	g.TotalsByStatus[rm.Status]++
	g.runCount++
	g.durationSum += rm.Duration()
	g.AverageDuration = g.durationSum / time.Duration(g.runCount)

	if rm.CostMetrics != nil {
		now := time.Now()
		g.CostTrend.append(now, rm.CostMetrics.TotalCost)
		if rm.CostMetrics.InputTokens > 0 {
			g.TokenEfficiencyTrend.append(now, float64(rm.CostMetrics.OutputTokens)/float64(rm.CostMetrics.InputTokens))
		}
		if calls := totalAPICalls(rm.CostMetrics); calls > 0 {
			g.AvgCostPerCallTrend.append(now, rm.CostMetrics.TotalCost/float64(calls))
		}
	}
}

func totalAPICalls(c *engine.CostMetrics) int {
	n := 0
	for _, b := range c.ActionBreakdown {
		n += b.APICallCount
	}
	return n
}

func (p *Pipeline) evictRunsLocked() {
	for len(p.runOrder) > p.cfg.MaxRunMetrics {
		oldest := p.runOrder[0]
		p.runOrder = p.runOrder[1:]
		delete(p.runs, oldest)
		delete(p.costSessions, oldest)
	}
}

func (p *Pipeline) evictWorkflowsLocked() {
	for len(p.workflowOrder) > p.cfg.MaxWorkflowMetrics {
		oldest := p.workflowOrder[0]
		p.workflowOrder = p.workflowOrder[1:]
		delete(p.workflows, oldest)
	}
}

// StartCostTracking binds a new CostMetrics session to runID.
func (p *Pipeline) StartCostTracking(runID engine.WorkflowRunID, sessionID engine.CostSessionID) *engine.CostMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	cm := engine.NewCostMetrics(sessionID)
	p.costSessions[runID] = cm
	return cm
}

// RecordActionCost folds one action's cost/usage observation into runID's
// cost-tracking session, if one was started.
func (p *Pipeline) RecordActionCost(runID engine.WorkflowRunID, actionName string, usage engine.TokenUsage, cost float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cm, ok := p.costSessions[runID]; ok {
		cm.Record(actionName, usage, cost)
	}
}

// CompleteCostTracking finalizes runID's cost session and returns it, or
// nil when cost tracking was never started for the run.
func (p *Pipeline) CompleteCostTracking(runID engine.WorkflowRunID) *engine.CostMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.costSessions[runID]
}

// Snapshot is a read-only view over one run's metrics and the rollups
// above it.
type Snapshot struct {
	Run      *RunMetrics
	Workflow *WorkflowSummaryMetrics
	Global   GlobalMetrics
}

// Snapshot returns a point-in-time copy of runID's metrics plus its
// workflow's and the global rollup.
func (p *Pipeline) Snapshot(runID engine.WorkflowRunID) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{Global: *p.global}
	if rm, ok := p.runs[runID]; ok {
		cp := *rm
		snap.Run = &cp
		if ws, ok := p.workflows[rm.WorkflowName]; ok {
			cp2 := *ws
			snap.Workflow = &cp2
		}
	}
	return snap
}
