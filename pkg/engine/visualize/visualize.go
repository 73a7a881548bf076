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

// Package visualize is a pure formatter that turns a WorkflowRun into
// Mermaid, HTML, or JSON execution traces, and a workflow's summary
// metrics into a plain-text report. It
// reads the data the engine already holds and never mutates a run or
// reaches back into the executor, cache, or action packages.
package visualize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tombee/baton/pkg/engine"
	"github.com/tombee/baton/pkg/engine/metrics"
)

// Step is one rendered history entry: the state visited and how long the
// run dwelled there before the next transition (or zero, for the final
// entry).
type Step struct {
	State     engine.StateID `json:"state"`
	EnteredAt time.Time      `json:"entered_at"`
	Dwell     time.Duration  `json:"dwell_ns"`
}

// Trace is the data the three emitters share: a run's ordered steps plus
// enough summary to label a header line without re-deriving it from the
// run on every render.
type Trace struct {
	RunID        engine.WorkflowRunID `json:"run_id"`
	WorkflowName engine.WorkflowName  `json:"workflow_name"`
	Status       engine.RunStatus     `json:"status"`
	StartedAt    time.Time            `json:"started_at"`
	CompletedAt  time.Time            `json:"completed_at,omitempty"`
	Duration     time.Duration        `json:"duration_ns"`
	ErrorKind    string               `json:"error_kind,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	Steps        []Step               `json:"steps"`
	Context      map[string]any       `json:"final_context"`
}

// BuildTrace derives a Trace from a run. Safe to call at any point in the
// run's lifecycle, not just after completion; for a still-running run
// Duration reflects "now" and CompletedAt is the zero time.
func BuildTrace(run *engine.WorkflowRun) Trace {
	steps := make([]Step, 0, len(run.History))
	for i, h := range run.History {
		var dwell time.Duration
		if i+1 < len(run.History) {
			dwell = run.History[i+1].Timestamp.Sub(h.Timestamp)
		}
		steps = append(steps, Step{State: h.State, EnteredAt: h.Timestamp, Dwell: dwell})
	}
	return Trace{
		RunID:        run.ID,
		WorkflowName: run.Workflow.Name,
		Status:       run.Status,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
		Duration:     run.Duration(),
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		Steps:        steps,
		Context:      run.Context.Snapshot(),
	}
}

// JSON renders t as indented JSON.
func (t Trace) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// Mermaid renders t as a Mermaid state diagram: one transition arrow per
// consecutive pair of steps, annotated with the dwell time, plus a
// "[*] --> first" entry arrow and (for a completed run) a "last --> [*]"
// exit arrow. Output is deterministic given t.
func (t Trace) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	if len(t.Steps) == 0 {
		return sb.String()
	}

	fmt.Fprintf(&sb, "    [*] --> %s\n", mermaidID(t.Steps[0].State))
	for i := 0; i < len(t.Steps)-1; i++ {
		from := mermaidID(t.Steps[i].State)
		to := mermaidID(t.Steps[i+1].State)
		label := formatDuration(t.Steps[i].Dwell)
		fmt.Fprintf(&sb, "    %s --> %s: %s\n", from, to, label)
	}
	if t.Status == engine.StatusCompleted {
		fmt.Fprintf(&sb, "    %s --> [*]\n", mermaidID(t.Steps[len(t.Steps)-1].State))
	}
	if t.Status == engine.StatusFailed {
		fmt.Fprintf(&sb, "    note right of %s: %s\n", mermaidID(t.Steps[len(t.Steps)-1].State), t.ErrorKind)
	}
	return sb.String()
}

// mermaidID sanitizes a StateID into a Mermaid-safe node identifier: spaces
// and punctuation that would break the grammar are replaced with
// underscores. Workflow authors are expected to use identifier-like state
// names already; this only guards against the rare description-derived ID.
func mermaidID(id engine.StateID) string {
	replacer := strings.NewReplacer(" ", "_", "\"", "", "\n", "_", ":", "_")
	return replacer.Replace(string(id))
}

// HTML renders a minimal, dependency-free timeline page: a header with run
// status/duration and a table of steps with a proportional dwell bar.
func (t Trace) HTML() string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&sb, "<title>%s run %s</title>\n", htmlEscape(string(t.WorkflowName)), htmlEscape(string(t.RunID)))
	sb.WriteString("<style>body{font-family:monospace}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px;text-align:left}.bar{background:#4a90d9;height:10px}</style>\n")
	sb.WriteString("</head><body>\n")
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", htmlEscape(string(t.WorkflowName)))
	fmt.Fprintf(&sb, "<p>run %s status <b>%s</b>, duration %s</p>\n",
		htmlEscape(string(t.RunID)), htmlEscape(string(t.Status)), formatDuration(t.Duration))
	if t.ErrorMessage != "" {
		fmt.Fprintf(&sb, "<p style=\"color:darkred\">%s: %s</p>\n", htmlEscape(t.ErrorKind), htmlEscape(t.ErrorMessage))
	}

	sb.WriteString("<table><tr><th>#</th><th>state</th><th>entered</th><th>dwell</th><th></th></tr>\n")
	maxDwell := maxStepDwell(t.Steps)
	for i, s := range t.Steps {
		width := 0
		if maxDwell > 0 {
			width = int(100 * s.Dwell / maxDwell)
		}
		fmt.Fprintf(&sb, "<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td><div class=\"bar\" style=\"width:%dpx\"></div></td></tr>\n",
			i, htmlEscape(string(s.State)), s.EnteredAt.Format(time.RFC3339), formatDuration(s.Dwell), width)
	}
	sb.WriteString("</table>\n</body></html>\n")
	return sb.String()
}

func maxStepDwell(steps []Step) time.Duration {
	var max time.Duration
	for _, s := range steps {
		if s.Dwell > max {
			max = s.Dwell
		}
	}
	return max
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;")
	return replacer.Replace(s)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0ms"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

// SummaryReport renders a WorkflowSummaryMetrics as plain text, used by CLI
// surfaces to print a quick health check without needing their own
// formatter.
func SummaryReport(ws *metrics.WorkflowSummaryMetrics) string {
	if ws == nil {
		return "no metrics recorded"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "workflow: %s\n", ws.WorkflowName)
	for status, count := range ws.TotalsByStatus {
		fmt.Fprintf(&sb, "  %-10s %d\n", status, count)
	}
	fmt.Fprintf(&sb, "  avg duration: %s (min %s, max %s)\n",
		formatDuration(ws.AverageDuration), formatDuration(ws.MinDuration), formatDuration(ws.MaxDuration))
	fmt.Fprintf(&sb, "  avg transitions: %.1f\n", ws.AverageTransitions)
	if len(ws.HottestStates) > 0 {
		sb.WriteString("  hottest states:\n")
		for _, h := range ws.HottestStates {
			fmt.Fprintf(&sb, "    %-20s %d\n", h.State, h.Hits)
		}
	}
	return sb.String()
}
