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

import "time"

// Config aggregates every tunable the engine exposes. DefaultConfig
// returns the documented defaults; it does not fill in zero values of a
// Config built elsewhere, so callers that need a subset of overrides
// should start from DefaultConfig() and mutate fields rather than
// constructing Config from scratch.
type Config struct {
	Limits    LimitsConfig
	Timeouts  TimeoutsConfig
	Cache     CacheConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

// LimitsConfig bounds the executor's transition loop.
type LimitsConfig struct {
	MaxTransitionsPerRun  int
	MaxSubworkflowDepth   int
	MaxBranchTransitions  int
	MaxWorkflowComplexity int
}

// TimeoutsConfig bounds how long a single action may run.
type TimeoutsConfig struct {
	Prompt      time.Duration
	Shell       time.Duration
	Wait        time.Duration // not read by the runtime: duration waits are never capped
	SubWorkflow time.Duration // not read by the runtime: a sub-workflow runs under the parent's context and its deadline
}

// CacheConfig sizes the three Cache Manager LRUs.
type CacheConfig struct {
	WorkflowCapacity   int
	TransitionCapacity int
	TransitionTTL      time.Duration
	CELCapacity        int
}

// MetricsConfig bounds the Metrics Pipeline's in-memory footprint.
type MetricsConfig struct {
	MaxRunMetrics           int
	MaxStateDurationsPerRun int
	MaxWorkflowMetrics      int
	TrendSeriesLength       int
}

// SecurityConfig bounds template rendering and path confinement.
type SecurityConfig struct {
	MaxTemplateSize           int
	MaxTemplateVariables      int
	MaxTemplateRecursionDepth int
	TemplateTrustedMultiplier int
	TemplateDenyPatterns      []string
}

// RateLimitConfig governs the prompt-action retry policy.
type RateLimitConfig struct {
	MaxRetriesPerAction int
	MinWait             time.Duration
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() Config {
	return Config{
		Limits: LimitsConfig{
			MaxTransitionsPerRun:  1000,
			MaxSubworkflowDepth:   10,
			MaxBranchTransitions:  100,
			MaxWorkflowComplexity: 1000,
		},
		Timeouts: TimeoutsConfig{
			Prompt: 180 * time.Second,
			Shell:  60 * time.Second,
		},
		Cache: CacheConfig{
			WorkflowCapacity:   100,
			TransitionCapacity: 1000,
			TransitionTTL:      5 * time.Minute,
			CELCapacity:        500,
		},
		Metrics: MetricsConfig{
			MaxRunMetrics:           100,
			MaxStateDurationsPerRun: 50,
			MaxWorkflowMetrics:      100,
			TrendSeriesLength:       200,
		},
		Security: SecurityConfig{
			MaxTemplateSize:           100_000,
			MaxTemplateVariables:      1000,
			MaxTemplateRecursionDepth: 10,
			TemplateTrustedMultiplier: 10,
			TemplateDenyPatterns:      []string{"include", "capture", "tablerow", "cycle"},
		},
		RateLimit: RateLimitConfig{
			MaxRetriesPerAction: 3,
			MinWait:             1 * time.Second,
		},
	}
}
