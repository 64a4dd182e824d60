// Package observe provides application-wide observability primitives for
// transcriptsync: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/transcriptsync"

// Status attribute values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// AlignDuration tracks the wall time of one full alignment run
	// (parse, align, reshape).
	AlignDuration metric.Float64Histogram

	// ParseDuration tracks input parsing latency. Use with attribute:
	//   attribute.String("input", "reference"|"captions")
	ParseDuration metric.Float64Histogram

	// AnchorConfidence records the raw confidence of every placed anchor.
	AnchorConfidence metric.Float64Histogram

	// --- Counters ---

	// AlignRuns counts alignment runs. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	AlignRuns metric.Int64Counter

	// AlignedTurns counts reference turns by how they were timed. Use with
	// attribute:
	//   attribute.String("source", "anchored"|"interpolated")
	AlignedTurns metric.Int64Counter

	// FrontMatterTurns counts reference turns skipped as front matter.
	FrontMatterTurns metric.Int64Counter

	// SegmentSplits counts segments split by the duration cap.
	SegmentSplits metric.Int64Counter

	// ConfigReloads counts configuration reloads. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	ConfigReloads metric.Int64Counter

	// --- Gauges ---

	// ActiveRuns tracks the number of alignment runs in progress.
	ActiveRuns metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...),
	//   attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Small
// pairs align in milliseconds; multi-hour interviews take seconds.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// confidenceBuckets covers the useful range of match confidences.
var confidenceBuckets = []float64{
	0.4, 0.45, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9, 0.95, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AlignDuration, err = m.Float64Histogram("transcriptsync.align.duration",
		metric.WithDescription("Latency of a full alignment run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ParseDuration, err = m.Float64Histogram("transcriptsync.parse.duration",
		metric.WithDescription("Latency of parsing reference and caption inputs."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnchorConfidence, err = m.Float64Histogram("transcriptsync.anchor.confidence",
		metric.WithDescription("Raw confidence of placed anchors."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AlignRuns, err = m.Int64Counter("transcriptsync.align.runs",
		metric.WithDescription("Total alignment runs by status."),
	); err != nil {
		return nil, err
	}
	if met.AlignedTurns, err = m.Int64Counter("transcriptsync.align.turns",
		metric.WithDescription("Aligned reference turns by timing source."),
	); err != nil {
		return nil, err
	}
	if met.FrontMatterTurns, err = m.Int64Counter("transcriptsync.align.front_matter_turns",
		metric.WithDescription("Reference turns skipped as front matter."),
	); err != nil {
		return nil, err
	}
	if met.SegmentSplits, err = m.Int64Counter("transcriptsync.reshape.splits",
		metric.WithDescription("Segments split to honour the duration cap."),
	); err != nil {
		return nil, err
	}
	if met.ConfigReloads, err = m.Int64Counter("transcriptsync.config.reloads",
		metric.WithDescription("Configuration reloads by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveRuns, err = m.Int64UpDownCounter("transcriptsync.active_runs",
		metric.WithDescription("Number of alignment runs in progress."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("transcriptsync.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordRun records the outcome and latency of one alignment run.
func (m *Metrics) RecordRun(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.AlignRuns.Add(ctx, 1, attrs)
	m.AlignDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordParse records how long parsing one input took.
func (m *Metrics) RecordParse(ctx context.Context, input string, d time.Duration) {
	m.ParseDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("input", input)),
	)
}

// RecordTurns records the per-run turn tallies.
func (m *Metrics) RecordTurns(ctx context.Context, anchored, interpolated, frontMatter int) {
	m.AlignedTurns.Add(ctx, int64(anchored), metric.WithAttributes(attribute.String("source", "anchored")))
	m.AlignedTurns.Add(ctx, int64(interpolated), metric.WithAttributes(attribute.String("source", "interpolated")))
	if frontMatter > 0 {
		m.FrontMatterTurns.Add(ctx, int64(frontMatter))
	}
}

// RecordAnchors records the confidence of each anchor placed in a run.
func (m *Metrics) RecordAnchors(ctx context.Context, confidences ...float64) {
	for _, c := range confidences {
		m.AnchorConfidence.Record(ctx, c)
	}
}

// RecordSplits records how many segments a run had to split.
func (m *Metrics) RecordSplits(ctx context.Context, n int) {
	if n > 0 {
		m.SegmentSplits.Add(ctx, int64(n))
	}
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(ctx context.Context, status string) {
	m.ConfigReloads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
