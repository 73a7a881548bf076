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

// TokenUsage captures LLM token consumption for a single call.
type TokenUsage struct {
	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	CacheReadTokens  int
	CacheWriteTokens int
}

// ActionCostBreakdown is one recorded cost/usage observation for an action,
// keyed by action name in CostMetrics.ActionBreakdown.
type ActionCostBreakdown struct {
	Cost         float64
	InputTokens  int
	OutputTokens int
	APICallCount int
}

// CostMetrics accumulates cost/token usage for a single run's cost-tracking
// session.
type CostMetrics struct {
	SessionID       CostSessionID
	TotalCost       float64
	InputTokens     int
	OutputTokens    int
	ActionBreakdown map[string]*ActionCostBreakdown
}

// NewCostMetrics creates an empty CostMetrics bound to sessionID.
func NewCostMetrics(sessionID CostSessionID) *CostMetrics {
	return &CostMetrics{
		SessionID:       sessionID,
		ActionBreakdown: make(map[string]*ActionCostBreakdown),
	}
}

// Record folds one action's cost/usage observation into the session.
func (c *CostMetrics) Record(actionName string, usage TokenUsage, cost float64) {
	c.TotalCost += cost
	c.InputTokens += usage.InputTokens
	c.OutputTokens += usage.OutputTokens

	b, ok := c.ActionBreakdown[actionName]
	if !ok {
		b = &ActionCostBreakdown{}
		c.ActionBreakdown[actionName] = b
	}
	b.Cost += cost
	b.InputTokens += usage.InputTokens
	b.OutputTokens += usage.OutputTokens
	b.APICallCount++
}
