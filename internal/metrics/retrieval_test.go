package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRetrieval_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewRetrieval(reg)
	if err != nil {
		t.Fatalf("NewRetrieval: %v", err)
	}

	m.ObserveRequest("sync", 10*time.Millisecond, nil)
	m.ObserveRequest("sync", 10*time.Millisecond, errors.New("boom"))
	m.ObserveAttempt("retryable")
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.SetBreakerState(1)

	if v := testutil.ToFloat64(m.requests.WithLabelValues("sync", "ok")); v != 1 {
		t.Errorf("requests ok = %v", v)
	}
	if v := testutil.ToFloat64(m.requests.WithLabelValues("sync", "error")); v != 1 {
		t.Errorf("requests error = %v", v)
	}
	if v := testutil.ToFloat64(m.attempts.WithLabelValues("retryable")); v != 1 {
		t.Errorf("attempts = %v", v)
	}
	if v := testutil.ToFloat64(m.cache.WithLabelValues("miss")); v != 2 {
		t.Errorf("cache miss = %v", v)
	}
	if v := testutil.ToFloat64(m.breakerState); v != 1 {
		t.Errorf("breaker state = %v", v)
	}
}

func TestRetrieval_ReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewRetrieval(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewRetrieval(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	a.ObserveCache(true)
	b.ObserveCache(true)
	if v := testutil.ToFloat64(a.cache.WithLabelValues("hit")); v != 2 {
		t.Errorf("shared counter = %v, want 2", v)
	}
}

func TestRetrieval_IncompatibleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_total",
		Help:      "Result cache hits and misses.",
	}))
	if _, err := NewRetrieval(reg); err == nil {
		t.Error("expected error for incompatible existing collector")
	}
}

func TestRetrieval_NilSafe(t *testing.T) {
	var m *Retrieval
	m.ObserveRequest("sync", time.Second, nil)
	m.ObserveAttempt("success")
	m.ObserveCache(true)
	m.SetBreakerState(0)
}
