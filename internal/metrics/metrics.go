// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics counts pipeline outcomes on a private Prometheus registry.
// Runs are short-lived batch jobs, so counters are exported once at the end
// of a run through the node-exporter textfile format rather than scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

const namespace = "medai"

var (
	registry = prometheus.NewRegistry()

	recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Records processed by pipeline stage and outcome.",
	}, []string{"stage", "outcome"})

	llmRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "Language-model completion requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	llmRequestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_seconds",
		Help:      "Latency of language-model completion requests.",
		Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"kind"})
)

func init() {
	registry.MustRegister(recordsTotal, llmRequestsTotal, llmRequestSeconds)
}

// RecordProcessed counts one record leaving stage with outcome
// (e.g. "enrich"/"enriched", "classify"/"keep").
func RecordProcessed(stage, outcome string) {
	recordsTotal.WithLabelValues(stage, outcome).Inc()
}

// LLMRequest counts one completion request of kind ("classify", "metadata")
// and records its latency.
func LLMRequest(kind, outcome string, elapsed time.Duration) {
	llmRequestsTotal.WithLabelValues(kind, outcome).Inc()
	llmRequestSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the pipeline collectors.
func Registry() *prometheus.Registry {
	return registry
}

// WriteTextfile writes every collected metric to path in the Prometheus text
// format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return eris.Wrapf(err, "metrics: write textfile %s", path)
	}
	return nil
}
