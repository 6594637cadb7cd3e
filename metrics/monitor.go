// Copyright 2025 Poiesic Systems
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


// Package metrics exports match engine activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/match"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Monitor implements match.Monitor with Prometheus collectors.
//
// Metrics:
//   - rentmatch_requests_total{outcome} - finished match requests, including
//     "error" and "cancelled"
//   - rentmatch_request_duration_seconds - request latency
//   - rentmatch_inflight_requests - requests currently scoring
//   - rentmatch_candidates_scored_total - rentals scored
//   - rentmatch_candidates_skipped_total{component} - rentals that failed to score
//   - rentmatch_candidates_abandoned_total - rentals cut off by a deadline
//   - rentmatch_final_score - distribution of final scores
type Monitor struct {
	requests  *prometheus.CounterVec
	duration  prometheus.Histogram
	inflight  prometheus.Gauge
	scored    prometheus.Counter
	skipped   *prometheus.CounterVec
	abandoned prometheus.Counter
	scores    prometheus.Histogram
}

var _ match.Monitor = (*Monitor)(nil)

// NewMonitor registers the collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMonitor(reg prometheus.Registerer) *Monitor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Monitor{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentmatch_requests_total",
				Help: "Total number of finished match requests",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rentmatch_request_duration_seconds",
				Help:    "Duration of match requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
		),
		inflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rentmatch_inflight_requests",
				Help: "Number of match requests currently running",
			},
		),
		scored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rentmatch_candidates_scored_total",
				Help: "Total number of rentals scored",
			},
		),
		skipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentmatch_candidates_skipped_total",
				Help: "Total number of rentals skipped after a scoring error",
			},
			[]string{"component"},
		),
		abandoned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rentmatch_candidates_abandoned_total",
				Help: "Total number of rentals left unscored when a request ended",
			},
		),
		scores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rentmatch_final_score",
				Help:    "Distribution of final match scores",
				Buckets: prometheus.LinearBuckets(10, 10, 9), // 10 to 90
			},
		),
	}
}

var (
	defaultMonitor *Monitor
	defaultOnce    sync.Once
)

// Default returns a Monitor registered once with the default registerer.
func Default() *Monitor {
	defaultOnce.Do(func() {
		defaultMonitor = NewMonitor(nil)
	})
	return defaultMonitor
}

func (m *Monitor) Start(_ string, _ *core.Listing, _ int) {
	m.inflight.Inc()
}

func (m *Monitor) Scored(_ string, result *core.MatchResult) {
	m.scored.Inc()
	m.scores.Observe(float64(result.FinalScore))
}

func (m *Monitor) Skipped(_ string, err *core.ScoringError) {
	component := err.Component
	if component == "" {
		component = "unknown"
	}
	m.skipped.WithLabelValues(component).Inc()
}

func (m *Monitor) Finish(result *match.Result) {
	m.inflight.Dec()
	m.requests.WithLabelValues(result.Outcome().String()).Inc()
	m.duration.Observe(result.Elapsed.Seconds())
	m.abandoned.Add(float64(result.Abandoned))
}

func (m *Monitor) Fail(_ string, err error) {
	m.inflight.Dec()
	outcome := "error"
	if errors.Is(err, context.Canceled) {
		outcome = "cancelled"
	}
	m.requests.WithLabelValues(outcome).Inc()
}
