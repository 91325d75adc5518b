package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "okp"

// Retrieval holds the retrieval collectors. A nil *Retrieval records nothing.
type Retrieval struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	attempts     *prometheus.CounterVec
	cache        *prometheus.CounterVec
	breakerState prometheus.Gauge
}

// NewRetrieval registers the retrieval collectors on reg, reusing collectors
// already registered by another client on the same registry.
func NewRetrieval(reg prometheus.Registerer) (*Retrieval, error) {
	m := &Retrieval{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieve_requests_total",
			Help:      "Total retrievals by mode (sync/async) and status.",
		}, []string{"mode", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieve_duration_seconds",
			Help:      "Retrieval duration in seconds, retries and backoff included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_attempts_total",
			Help:      "Backend calls by outcome.",
		}, []string{"outcome"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Result cache hits and misses.",
		}, []string{"result"}), // "hit" / "miss"
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}),
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.attempts); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.cache); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.breakerState); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveRequest records one finished retrieval.
func (m *Retrieval) ObserveRequest(mode string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, statusLabel(err)).Inc()
	m.duration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveAttempt records one backend call outcome:
// success, retryable, fatal or circuit_open.
func (m *Retrieval) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// ObserveCache records a cache probe.
func (m *Retrieval) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

// SetBreakerState exports the breaker state as a number.
func (m *Retrieval) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("okp: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("okp: register metric: %w", err)
	}
	return nil
}
