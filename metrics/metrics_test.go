package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveQuery("answered", 2*time.Second, 0.8)
	m.ObserveQuery("degraded", time.Second, 0)
	m.ChunkIndexed("primary")
	m.ChunkIndexed("primary")
	m.IndexFailure("embed")
	m.SourceSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("answered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunksIndexed.WithLabelValues("primary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexFailures.WithLabelValues("embed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sourcesSkipped))

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveQuery("answered", time.Second, 1)
	m.ChunkIndexed("primary")
	m.IndexFailure("scrape")
	m.SourceSkipped()
}
