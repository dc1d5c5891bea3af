// Package metrics exposes Prometheus instruments for indexing and querying.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's instruments. A nil *Metrics records nothing.
type Metrics struct {
	queries        *prometheus.CounterVec
	queryDuration  prometheus.Histogram
	confidence     prometheus.Histogram
	chunksIndexed  *prometheus.CounterVec
	indexFailures  *prometheus.CounterVec
	sourcesSkipped prometheus.Counter
}

// New creates the instruments and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalrag",
			Name:      "queries_total",
			Help:      "Legal questions answered, by outcome.",
		}, []string{"outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "legalrag",
			Name:      "query_duration_seconds",
			Help:      "End-to-end latency of a legal question.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "legalrag",
			Name:      "answer_confidence",
			Help:      "Confidence of returned answers.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		chunksIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalrag",
			Name:      "chunks_indexed_total",
			Help:      "Chunks embedded and stored, by source authority.",
		}, []string{"authority"}),
		indexFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalrag",
			Name:      "index_failures_total",
			Help:      "Indexing failures, by pipeline stage.",
		}, []string{"stage"}),
		sourcesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "legalrag",
			Name:      "sources_skipped_total",
			Help:      "Sources skipped because scraping produced no text.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.queryDuration, m.confidence, m.chunksIndexed, m.indexFailures, m.sourcesSkipped)
	}
	return m
}

// ObserveQuery records one answered question
func (m *Metrics) ObserveQuery(outcome string, elapsed time.Duration, confidence float64) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.queryDuration.Observe(elapsed.Seconds())
	m.confidence.Observe(confidence)
}

// ChunkIndexed records a stored chunk
func (m *Metrics) ChunkIndexed(authority string) {
	if m == nil {
		return
	}
	m.chunksIndexed.WithLabelValues(authority).Inc()
}

// IndexFailure records a failure at stage ("scrape", "embed", "upsert", "delete")
func (m *Metrics) IndexFailure(stage string) {
	if m == nil {
		return
	}
	m.indexFailures.WithLabelValues(stage).Inc()
}

// SourceSkipped records a source with no scraped text
func (m *Metrics) SourceSkipped() {
	if m == nil {
		return
	}
	m.sourcesSkipped.Inc()
}
