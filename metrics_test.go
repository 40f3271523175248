package sessionkit

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricSessionCreated)
	m.Inc(MetricSessionCreated)
	m.Inc(MetricSignInSuccess)

	if got := m.Value(MetricSessionCreated); got != 2 {
		t.Fatalf("Value(MetricSessionCreated) = %d, want 2", got)
	}
	if got := m.Value(MetricSignInSuccess); got != 1 {
		t.Fatalf("Value(MetricSignInSuccess) = %d, want 1", got)
	}
	if got := m.Value(MetricSignOut); got != 0 {
		t.Fatalf("Value(MetricSignOut) = %d, want 0", got)
	}
}

func TestMetricsDisabledNoOps(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricSessionCreated)
	m.Observe(MetricValidateLatency, time.Millisecond)

	if got := m.Value(MetricSessionCreated); got != 0 {
		t.Fatalf("disabled metrics recorded a count: %d", got)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricSessionCreated)
	nilMetrics.Observe(MetricValidateLatency, time.Millisecond)
	if nilMetrics.Enabled() {
		t.Fatal("nil metrics reported enabled")
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricTokenInvalid)
	m.Observe(MetricValidateLatency, 3*time.Millisecond)
	m.Observe(MetricValidateLatency, 80*time.Millisecond)
	m.Observe(MetricValidateLatency, time.Second)

	s := m.Snapshot()
	if s.Counters[MetricTokenInvalid] != 1 {
		t.Fatalf("snapshot counter = %d, want 1", s.Counters[MetricTokenInvalid])
	}

	buckets := s.Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("histogram bucket count = %d, want 8", len(buckets))
	}
	if buckets[0] != 1 || buckets[4] != 1 || buckets[7] != 1 {
		t.Fatalf("histogram buckets = %v", buckets)
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{501 * time.Millisecond, 7},
		{time.Minute, 7},
	}
	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestMetricsConcurrentWrites(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	const workers = 8
	const perWorker = 1000
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricSessionCreated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionCreated); got != workers*perWorker {
		t.Fatalf("Value = %d, want %d", got, workers*perWorker)
	}
}
