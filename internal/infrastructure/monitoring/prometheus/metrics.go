package prometheus

import (
	"strconv"
	"time"
)

// FeaturizerMetrics is the metric set of the featurization service.
type FeaturizerMetrics struct {
	GraphsBuilt   CounterVec
	RowsSkipped   CounterVec
	BuildDuration HistogramVec
	BatchSize     HistogramVec
	CacheHits     CounterVec
	CacheMisses   CounterVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	MessagesConsumed CounterVec
}

var (
	DefaultBuildDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .5, 1, 5, 30}
	DefaultBatchSizeBuckets     = []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000}
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// NewFeaturizerMetrics registers every featurizer metric on collector.
func NewFeaturizerMetrics(collector MetricsCollector) *FeaturizerMetrics {
	return &FeaturizerMetrics{
		GraphsBuilt:   collector.RegisterCounter("graphs_built_total", "Molecule graphs built", "source"),
		RowsSkipped:   collector.RegisterCounter("rows_skipped_total", "Input rows skipped", "reason"),
		BuildDuration: collector.RegisterHistogram("graph_build_duration_seconds", "Featurization wall time", DefaultBuildDurationBuckets, "operation"),
		BatchSize:     collector.RegisterHistogram("batch_size_rows", "Rows per featurization batch", DefaultBatchSizeBuckets, "operation"),
		CacheHits:     collector.RegisterCounter("cache_hits_total", "Graph cache hits", "cache"),
		CacheMisses:   collector.RegisterCounter("cache_misses_total", "Graph cache misses", "cache"),

		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path"),

		MessagesConsumed: collector.RegisterCounter("stream_messages_total", "Streaming worker messages", "outcome"),
	}
}

// ObserveBatch records one finished batch run. Skips are counted by
// RecordSkip, which knows the reason.
func (m *FeaturizerMetrics) ObserveBatch(name string, total, succeeded, failed int, elapsed time.Duration) {
	m.BatchSize.WithLabelValues(name).Observe(float64(total))
	m.BuildDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	m.GraphsBuilt.WithLabelValues(name).Add(float64(succeeded))
}

// RecordGraph records a single-graph build.
func (m *FeaturizerMetrics) RecordGraph(source string, elapsed time.Duration) {
	m.GraphsBuilt.WithLabelValues(source).Inc()
	m.BuildDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordSkip counts a skipped row under its error code.
func (m *FeaturizerMetrics) RecordSkip(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.RowsSkipped.WithLabelValues(reason).Inc()
}

func (m *FeaturizerMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

func (m *FeaturizerMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordMessage counts a streaming worker message by outcome
// (published, skipped, failed).
func (m *FeaturizerMetrics) RecordMessage(outcome string) {
	m.MessagesConsumed.WithLabelValues(outcome).Inc()
}
