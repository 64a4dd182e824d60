package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumByAttr returns the int64 sum data point carrying key=value, or -1.
func sumByAttr(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	for _, dp := range sum.DataPoints {
		if key == "" {
			return dp.Value
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	return -1
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, StatusOK, 120*time.Millisecond)
	m.RecordRun(ctx, StatusOK, 80*time.Millisecond)
	m.RecordRun(ctx, StatusError, time.Millisecond)

	rm := collect(t, reader)
	if got := sumByAttr(t, rm, "transcriptsync.align.runs", "status", StatusOK); got != 2 {
		t.Errorf("ok runs = %d, want 2", got)
	}
	if got := sumByAttr(t, rm, "transcriptsync.align.runs", "status", StatusError); got != 1 {
		t.Errorf("error runs = %d, want 1", got)
	}

	met := findMetric(rm, "transcriptsync.align.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("duration metric is not a histogram")
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("duration samples = %d, want 3", count)
	}
}

func TestRecordTurns(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurns(ctx, 7, 3, 2)
	m.RecordTurns(ctx, 1, 0, 0)

	rm := collect(t, reader)
	if got := sumByAttr(t, rm, "transcriptsync.align.turns", "source", "anchored"); got != 8 {
		t.Errorf("anchored = %d, want 8", got)
	}
	if got := sumByAttr(t, rm, "transcriptsync.align.turns", "source", "interpolated"); got != 3 {
		t.Errorf("interpolated = %d, want 3", got)
	}
	if got := sumByAttr(t, rm, "transcriptsync.align.front_matter_turns", "", ""); got != 2 {
		t.Errorf("front matter = %d, want 2", got)
	}
}

func TestRecordAnchorsAndSplits(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAnchors(ctx, 0.5, 0.9, 1)
	m.RecordSplits(ctx, 0)
	m.RecordSplits(ctx, 2)

	rm := collect(t, reader)
	met := findMetric(rm, "transcriptsync.anchor.confidence")
	if met == nil {
		t.Fatal("anchor confidence not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 3 {
		t.Errorf("anchor confidence data points = %+v", hist.DataPoints)
	}
	if got := sumByAttr(t, rm, "transcriptsync.reshape.splits", "", ""); got != 2 {
		t.Errorf("splits = %d, want 2", got)
	}
}

func TestActiveRuns(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveRuns.Add(ctx, 1)
	m.ActiveRuns.Add(ctx, 1)
	m.ActiveRuns.Add(ctx, -1)

	if got := sumByAttr(t, collect(t, reader), "transcriptsync.active_runs", "", ""); got != 1 {
		t.Errorf("active runs = %d, want 1", got)
	}
}

func TestRecordConfigReload(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordConfigReload(context.Background(), StatusError)

	if got := sumByAttr(t, collect(t, reader), "transcriptsync.config.reloads", "status", StatusError); got != 1 {
		t.Errorf("reload errors = %d, want 1", got)
	}
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}

func TestAttr(t *testing.T) {
	kv := Attr("route", "/v1/alignments")
	if string(kv.Key) != "route" || kv.Value.AsString() != "/v1/alignments" {
		t.Errorf("Attr = %v", kv)
	}
}
