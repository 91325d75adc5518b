// Package breaker implements a consecutive-failure circuit breaker.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/domain"
)

// State is the breaker state.
type State int

const (
	// Closed passes every call.
	Closed State = iota
	// Open rejects calls until the reset timeout elapses.
	Open
	// HalfOpen admits a single probe.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker opens after threshold consecutive failures. After resetTimeout
// since the last failure the next Check moves it to half-open and admits one
// probe; the probe's outcome closes or re-opens it. A threshold of 0
// disables the breaker entirely.
type Breaker struct {
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
	onChange     func(State)

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithLogger sets the logger for state transitions.
func WithLogger(l *zap.Logger) Option {
	return func(b *Breaker) { b.logger = l }
}

// WithStateHook is called with the new state after every transition.
func WithStateHook(fn func(State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// New creates a breaker.
func New(threshold int, resetTimeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Enabled reports whether the breaker is active.
func (b *Breaker) Enabled() bool { return b.threshold > 0 }

// Check returns a *domain.ConnectionError wrapping domain.ErrCircuitOpen when
// the call must not proceed.
func (b *Breaker) Check() error {
	if !b.Enabled() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.lastFailure) < b.resetTimeout {
			return b.openErrorLocked()
		}
		b.transitionLocked(HalfOpen, "reset timeout elapsed")
		b.probing = true
		return nil
	case HalfOpen:
		if b.probing {
			return b.openErrorLocked()
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (b *Breaker) RecordSuccess() {
	if !b.Enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	if b.state != Closed {
		b.transitionLocked(Closed, "successful request")
	}
}

// RecordFailure counts a failure; reaching the threshold, or failing a probe, opens the circuit.
func (b *Breaker) RecordFailure() {
	if !b.Enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	b.probing = false
	if b.state == HalfOpen || b.failures >= b.threshold {
		if b.state != Open {
			b.transitionLocked(Open, fmt.Sprintf("%d consecutive failures", b.failures))
		}
	}
}

// Release frees a half-open probe slot without counting an outcome. Used
// when the caller gave up before the backend answered.
func (b *Breaker) Release() {
	if !b.Enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// State returns the current state without applying the lazy open to half-open move.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) openErrorLocked() error {
	return domain.NewConnectionError(
		fmt.Sprintf("Circuit breaker is open: OKP has failed %d consecutive times", b.failures),
		domain.ErrCircuitOpen,
	)
}

func (b *Breaker) transitionLocked(to State, reason string) {
	from := b.state
	b.state = to
	if to == Open {
		b.logger.Warn("Circuit breaker state change",
			zap.Stringer("from", from), zap.Stringer("to", to), zap.String("reason", reason))
	} else {
		b.logger.Info("Circuit breaker state change",
			zap.Stringer("from", from), zap.Stringer("to", to), zap.String("reason", reason))
	}
	if b.onChange != nil {
		b.onChange(to)
	}
}
