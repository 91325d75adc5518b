package retrieve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/breaker"
	"github.com/kailas-cloud/okp/internal/cache"
	"github.com/kailas-cloud/okp/internal/config"
	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/result"
	"github.com/kailas-cloud/okp/internal/logger"
	"github.com/kailas-cloud/okp/internal/normalize"
	"github.com/kailas-cloud/okp/internal/prompt"
)

const (
	modeSync  = "sync"
	modeAsync = "async"

	healthProbe = "test"

	// HealthHealthy and HealthUnhealthy are the CheckHealth statuses.
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// Request carries the per-call parameters of a retrieval.
type Request struct {
	// Rows is the number of documents to return; 0 means the configured default.
	Rows    int
	Filters domain.Filters
	// NoSanitize sends the query without escaping query-syntax characters.
	NoSanitize bool
}

// Outcome is the single value delivered by RetrieveAsync.
type Outcome struct {
	Result result.Result
	Err    error
}

// Health is the CheckHealth report.
type Health struct {
	Status            string `json:"status"`
	NumIndexed        int    `json:"num_indexed"`
	SolrHandler       string `json:"solr_handler,omitempty"`
	BaseURL           string `json:"base_url"`
	ProductsAvailable int    `json:"products_available,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Healthy reports whether the probe succeeded.
func (h Health) Healthy() bool { return h.Status == HealthHealthy }

type searchFunc func(ctx context.Context, query string, rows int, f domain.Filters) (result.Page, error)

// Service runs retrievals with validation, caching, query normalization,
// retries with exponential backoff, and a circuit breaker.
type Service struct {
	cfg      config.Config
	backend  Backend
	log      *zap.Logger
	recorder Recorder
	tracer   trace.Tracer
	expander *normalize.Expander
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time

	cache   *cache.Cache
	breaker *breaker.Breaker
	closed  atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTracer sets the tracer for retrieval spans. Default: the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithExpander replaces the abbreviation expander used when
// ExpandSynonyms is enabled.
func WithExpander(e *normalize.Expander) Option {
	return func(s *Service) { s.expander = e }
}

// WithSleep replaces the backoff sleep.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = fn }
}

// WithClock injects the time source shared by the cache and the breaker.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a retrieval service. cfg must already be validated.
func New(cfg config.Config, backend Backend, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		backend:  backend,
		log:      zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer("github.com/kailas-cloud/okp"),
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.expander == nil {
		s.expander = normalize.NewExpander(nil)
	}

	s.cache = cache.New(cfg.CacheTTL(), cfg.CacheMaxEntries, s.now)
	s.breaker = breaker.New(cfg.CircuitFailureThreshold, cfg.CircuitResetTimeout(),
		breaker.WithClock(s.now),
		breaker.WithLogger(s.log),
		breaker.WithStateHook(func(st breaker.State) { s.recorder.SetBreakerState(int(st)) }),
	)
	return s
}

// Retrieve runs a blocking retrieval.
func (s *Service) Retrieve(ctx context.Context, query string, req Request) (result.Result, error) {
	start := s.now()
	res, err := s.retrieve(ctx, modeSync, query, req, s.backend.Search)
	s.recorder.ObserveRequest(modeSync, s.now().Sub(start), err)
	return res, err
}

// RetrieveAsync runs the same retrieval on its own goroutine through the
// backend's concurrent pool and delivers exactly one Outcome.
func (s *Service) RetrieveAsync(ctx context.Context, query string, req Request) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		start := s.now()
		res, err := s.retrieve(ctx, modeAsync, query, req, s.searchAsync)
		s.recorder.ObserveRequest(modeAsync, s.now().Sub(start), err)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// CheckHealth probes the backend with a one-row unsanitized retrieval.
func (s *Service) CheckHealth(ctx context.Context) Health {
	res, err := s.Retrieve(ctx, healthProbe, Request{Rows: 1, NoSanitize: true})
	if err != nil {
		return Health{Status: HealthUnhealthy, Error: err.Error(), BaseURL: s.cfg.BaseURL}
	}
	h := Health{
		Status:      HealthHealthy,
		NumIndexed:  res.NumFound(),
		SolrHandler: s.cfg.SolrHandler,
		BaseURL:     s.cfg.BaseURL,
	}
	facets := res.Facets()
	if products := facets.Products(); len(products) > 0 {
		h.ProductsAvailable = len(products)
	}
	return h
}

// ClearCache drops every cached result.
func (s *Service) ClearCache() { s.cache.Clear() }

// BreakerState returns the current circuit breaker state.
func (s *Service) BreakerState() breaker.State { return s.breaker.State() }

// Close rejects every later retrieval with domain.ErrClientClosed.
func (s *Service) Close() { s.closed.Store(true) }

func (s *Service) retrieve(
	ctx context.Context, mode, query string, req Request, search searchFunc,
) (result.Result, error) {
	if s.closed.Load() {
		return result.Result{}, domain.ErrClientClosed
	}

	query, rows, err := s.validate(query, req.Rows)
	if err != nil {
		return result.Result{}, err
	}

	log := s.log.With(
		zap.String("request_id", logger.NewRequestID()),
		zap.String("mode", mode),
	)
	ctx = logger.ContextWithLogger(ctx, log)

	ctx, span := s.tracer.Start(ctx, "okp.retrieve", trace.WithAttributes(
		attribute.String("okp.query", query),
		attribute.Int("okp.rows", rows),
		attribute.String("okp.base_url", s.cfg.BaseURL),
	))
	defer span.End()

	key := cache.Key(query, rows, req.Filters)
	if s.cache.Enabled() {
		if cached, ok := s.cache.Get(key); ok {
			s.recorder.ObserveCache(true)
			log.Debug("cache hit", zap.String("query", query))
			span.SetAttributes(attribute.Bool("okp.cache_hit", true))
			return cached, nil
		}
		s.recorder.ObserveCache(false)
	}

	backendQuery := query
	if s.cfg.ExpandSynonyms {
		backendQuery = s.expander.Expand(backendQuery)
	}
	if !req.NoSanitize {
		backendQuery = normalize.SanitizeQuery(backendQuery)
	}

	log.Debug("retrieve start",
		zap.String("query", query),
		zap.Int("rows", rows),
		zap.String("product", req.Filters.Product),
		zap.String("version", req.Filters.Version),
		zap.String("kind", req.Filters.DocumentKind),
	)

	page, err := s.attempt(ctx, log, query, backendQuery, rows, req.Filters, search)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result.Result{}, err
	}

	res := result.New(query, page.NumFound, page.Docs,
		prompt.BuildContext(page.Docs, s.cfg.MaxContextChars), page.Facets)
	s.cache.Put(key, res)

	span.SetAttributes(
		attribute.Int("okp.num_found", page.NumFound),
		attribute.Int("okp.docs_returned", len(page.Docs)),
	)
	log.Info("retrieve done",
		zap.String("query", query),
		zap.Int("num_found", page.NumFound),
		zap.Int("returned", len(page.Docs)),
	)
	return res, nil
}

// attempt runs the retry loop and returns the first successful page.
func (s *Service) attempt(
	ctx context.Context, log *zap.Logger,
	query, backendQuery string, rows int, f domain.Filters, search searchFunc,
) (result.Page, error) {
	maxAttempts := 1 + s.cfg.RetryMaxAttempts
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := Backoff(attempt, s.cfg.RetryBackoffBase(), s.cfg.RetryBackoffMax())
			log.Info("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", s.cfg.RetryMaxAttempts),
				zap.Duration("delay", delay),
				zap.String("query", query),
			)
			if err := s.sleep(ctx, delay); err != nil {
				return result.Page{}, fmt.Errorf("retry interrupted: %w", multierr.Combine(lastErr, err))
			}
		}

		if err := s.breaker.Check(); err != nil {
			s.recorder.ObserveAttempt("circuit_open")
			return result.Page{}, err
		}

		page, err := search(ctx, backendQuery, rows, f)
		if err == nil {
			s.breaker.RecordSuccess()
			s.recorder.ObserveAttempt("success")
			return page, nil
		}

		if ctx.Err() != nil {
			// the caller gave up; says nothing about backend health
			s.breaker.Release()
			s.recorder.ObserveAttempt("cancelled")
			return result.Page{}, err
		}
		s.breaker.RecordFailure()

		var se *domain.SearchError
		if errors.As(err, &se) && !se.Retryable() {
			s.recorder.ObserveAttempt("fatal")
			log.Warn("non-retryable backend status",
				zap.Int("status", se.StatusCode),
				zap.String("query", query),
			)
			return result.Page{}, err
		}

		s.recorder.ObserveAttempt("retryable")
		log.Warn("backend attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)
		lastErr = err
	}
	return result.Page{}, lastErr
}

func (s *Service) searchAsync(
	ctx context.Context, query string, rows int, f domain.Filters,
) (result.Page, error) {
	select {
	case out := <-s.backend.SearchAsync(ctx, query, rows, f):
		return out.Page, out.Err
	case <-ctx.Done():
		return result.Page{}, ctx.Err()
	}
}

func (s *Service) validate(query string, rows int) (string, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", 0, fmt.Errorf("%w: query must be a non-empty string", domain.ErrInvalidArgument)
	}
	if n := utf8.RuneCountInString(query); n > s.cfg.MaxQueryLength {
		return "", 0, fmt.Errorf("%w: query length %d exceeds maximum %d",
			domain.ErrInvalidArgument, n, s.cfg.MaxQueryLength)
	}
	if rows == 0 {
		rows = s.cfg.Rows
	}
	if rows < 1 || rows > config.MaxRows {
		return "", 0, fmt.Errorf("%w: rows must be 1-%d, got %d", domain.ErrInvalidArgument, config.MaxRows, rows)
	}
	return query, rows, nil
}
