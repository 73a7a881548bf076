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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// prometheusExporter holds per-Pipeline-instance collectors registered
// against their own prometheus.Registry instead of the default global one.
// A Pipeline is a value callers construct freely (including in tests), and
// a global registry would panic on the second NewPipeline call with
// "duplicate metrics collector registration".
type prometheusExporter struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	transitionCount prometheus.Histogram
	costTotal       prometheus.Counter
}

func newPrometheusExporter() *prometheusExporter {
	reg := prometheus.NewRegistry()

	e := &prometheusExporter{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baton_engine_runs_total",
				Help: "Total workflow runs completed, by workflow name and final status.",
			},
			[]string{"workflow", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baton_engine_run_duration_seconds",
				Help:    "Completed run duration in seconds, by workflow name.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"workflow"},
		),
		transitionCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "baton_engine_run_transitions",
				Help:    "Transitions taken per completed run.",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		costTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "baton_engine_cost_total",
				Help: "Total accumulated cost across runs with cost tracking.",
			},
		),
	}

	reg.MustRegister(e.runsTotal, e.runDuration, e.transitionCount, e.costTotal)
	return e
}

// observeRun folds a just-completed run's metrics into the exported
// collectors. Called with Pipeline.mu held.
func (e *prometheusExporter) observeRun(rm *RunMetrics) {
	e.runsTotal.WithLabelValues(string(rm.WorkflowName), string(rm.Status)).Inc()
	e.runDuration.WithLabelValues(string(rm.WorkflowName)).Observe(rm.Duration().Seconds())
	e.transitionCount.Observe(float64(rm.TransitionCount))
	if rm.CostMetrics != nil {
		e.costTotal.Add(rm.CostMetrics.TotalCost)
	}
}

// Registry returns the Pipeline's private prometheus.Registry, for callers
// that expose a /metrics endpoint. The engine itself never serves HTTP.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.exporter.registry
}
