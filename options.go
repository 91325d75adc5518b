package okp

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/usecase/retrieve"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	backend        Backend
	logger         *zap.Logger
	metricsReg     prometheus.Registerer
	tracerProvider trace.TracerProvider
	synonyms       map[string]string
}

// WithBackend replaces the Solr backend, e.g. with an in-memory one for tests.
// The client never closes an injected backend.
func WithBackend(b Backend) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = b
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers retrieval metrics (requests, durations, backend
// attempts, cache hits, breaker state) on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// WithTracerProvider sets the provider for okp.retrieve spans.
// Defaults to the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(c *clientConfig) {
		c.tracerProvider = tp
	})
}

// WithSynonyms replaces the built-in abbreviation dictionary used when
// Config.ExpandSynonyms is set.
func WithSynonyms(dict map[string]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.synonyms = dict
	})
}

// RetrieveOption configures a single retrieval.
type RetrieveOption func(*retrieve.Request)

// WithRows overrides the configured row count (1-100).
func WithRows(n int) RetrieveOption {
	return func(r *retrieve.Request) { r.Rows = n }
}

// WithProduct restricts results to one product, e.g. "Red Hat Enterprise Linux".
func WithProduct(product string) RetrieveOption {
	return func(r *retrieve.Request) { r.Filters.Product = product }
}

// WithVersion restricts results to one documentation version.
func WithVersion(version string) RetrieveOption {
	return func(r *retrieve.Request) { r.Filters.Version = version }
}

// WithDocumentKind restricts results to one document kind, e.g. "solution".
func WithDocumentKind(kind string) RetrieveOption {
	return func(r *retrieve.Request) { r.Filters.DocumentKind = kind }
}

// WithoutSanitize sends the query as-is, without escaping query syntax.
func WithoutSanitize() RetrieveOption {
	return func(r *retrieve.Request) { r.NoSanitize = true }
}
