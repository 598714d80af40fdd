package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerCountsOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if err := m.Track("audit:record").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("audit:record").End(boom); !errors.Is(err, boom) {
		t.Fatalf("expected error to pass through, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("audit:record", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("audit:record")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	if err := m.Track("noop").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
