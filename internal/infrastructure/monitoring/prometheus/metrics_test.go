package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/turtacn/molgraph/internal/intelligence/common"
)

var _ common.BatchObserver = (*FeaturizerMetrics)(nil)

func TestFeaturizerMetrics_ObserveBatch(t *testing.T) {
	c := newTestCollector(t)
	m := NewFeaturizerMetrics(c)

	m.ObserveBatch("molgraph", 10, 8, 2, 250*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_graphs_built_total{source="molgraph"} 8`)
	assert.Contains(t, out, `test_unit_batch_size_rows_sum{operation="molgraph"} 10`)
	assert.Contains(t, out, `test_unit_graph_build_duration_seconds_count{operation="molgraph"} 1`)
	assert.NotContains(t, out, "test_unit_rows_skipped_total{")
}

func TestFeaturizerMetrics_RecordSkip(t *testing.T) {
	c := newTestCollector(t)
	m := NewFeaturizerMetrics(c)

	m.RecordSkip("MOL_001")
	m.RecordSkip("MOL_001")
	m.RecordSkip("")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_rows_skipped_total{reason="MOL_001"} 2`)
	assert.Contains(t, out, `test_unit_rows_skipped_total{reason="unknown"} 1`)
}

func TestFeaturizerMetrics_RecordCacheAccess(t *testing.T) {
	c := newTestCollector(t)
	m := NewFeaturizerMetrics(c)

	m.RecordCacheAccess("redis", true)
	m.RecordCacheAccess("redis", false)
	m.RecordCacheAccess("redis", false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="redis"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="redis"} 2`)
}

func TestFeaturizerMetrics_RecordGraphAndHTTP(t *testing.T) {
	c := newTestCollector(t)
	m := NewFeaturizerMetrics(c)

	m.RecordGraph("http", 3*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/graphs", 200, 10*time.Millisecond)
	m.RecordMessage("published")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_graphs_built_total{source="http"} 1`)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/api/v1/graphs",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_http_request_duration_seconds_count{method="POST",path="/api/v1/graphs"} 1`)
	assert.Contains(t, out, `test_unit_stream_messages_total{outcome="published"} 1`)
}
