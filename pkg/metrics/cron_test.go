package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsRecord(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("reservation-sweep", 120*time.Millisecond)
	m.IncSuccess("reservation-sweep")
	m.IncFailure("")

	if got := testutil.ToFloat64(m.success.WithLabelValues("reservation-sweep")); got != 1 {
		t.Fatalf("success counter = %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("failure counter = %v", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	t.Parallel()

	m := NewCronJobMetrics(nil)
	m.ObserveDuration("x", time.Second)
	m.IncSuccess("x")
	m.IncFailure("x")
}
