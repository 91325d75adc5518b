package okp

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/metrics"
	"github.com/kailas-cloud/okp/internal/normalize"
	"github.com/kailas-cloud/okp/internal/solr"
	"github.com/kailas-cloud/okp/internal/usecase/retrieve"
	"github.com/kailas-cloud/okp/internal/version"
)

const instrumentationName = "github.com/kailas-cloud/okp"

// Client is the OKP retrieval entry point. It is safe for concurrent use.
// Each Client owns its own result cache and circuit breaker.
type Client struct {
	cfg   Config
	svc   *retrieve.Service
	owned *solr.Backend // nil when the backend was injected

	closeOnce sync.Once
	closeErr  error
}

// New creates a Client. cfg is normalized and validated; the returned error
// wraps ErrInvalidConfig when it is not usable.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := &clientConfig{}
	for _, opt := range opts {
		opt.apply(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svcOpts := []retrieve.Option{retrieve.WithLogger(o.logger)}
	if o.metricsReg != nil {
		m, err := metrics.NewRetrieval(o.metricsReg)
		if err != nil {
			return nil, fmt.Errorf("okp: %w", err)
		}
		svcOpts = append(svcOpts, retrieve.WithRecorder(m))
	}
	if o.tracerProvider != nil {
		svcOpts = append(svcOpts, retrieve.WithTracer(o.tracerProvider.Tracer(
			instrumentationName, trace.WithInstrumentationVersion(version.Version),
		)))
	}
	if o.synonyms != nil {
		svcOpts = append(svcOpts, retrieve.WithExpander(normalize.NewExpander(o.synonyms)))
	}

	c := &Client{cfg: cfg}
	backend := o.backend
	if backend == nil {
		sb, err := solr.New(cfg, o.logger)
		if err != nil {
			return nil, fmt.Errorf("okp: create solr backend: %w", err)
		}
		c.owned = sb
		backend = sb
	}
	c.svc = retrieve.New(cfg, backend, svcOpts...)
	return c, nil
}

// Retrieve searches the knowledge portal and returns matching documents with
// an assembled prompt context. Retryable failures are retried with
// exponential backoff; results are cached per (query, rows, filters).
func (c *Client) Retrieve(ctx context.Context, query string, opts ...RetrieveOption) (Result, error) {
	return c.svc.Retrieve(ctx, query, buildRequest(opts))
}

// RetrieveAsync is the non-blocking form of Retrieve. The channel receives
// exactly one Outcome and is then closed.
func (c *Client) RetrieveAsync(ctx context.Context, query string, opts ...RetrieveOption) <-chan Outcome {
	return c.svc.RetrieveAsync(ctx, query, buildRequest(opts))
}

// CheckHealth runs a one-row probe query and reports reachability.
func (c *Client) CheckHealth(ctx context.Context) Health {
	return c.svc.CheckHealth(ctx)
}

// ClearCache drops every cached result.
func (c *Client) ClearCache() { c.svc.ClearCache() }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Close releases the connection pools. Later calls fail with ErrClientClosed.
// Close is idempotent and must not race with in-flight retrievals.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.svc.Close()
		if c.owned != nil {
			c.closeErr = c.owned.Close()
		}
	})
	return c.closeErr
}

// Retrieve is a one-shot helper: it builds a client from the environment,
// runs one retrieval and closes the client.
func Retrieve(ctx context.Context, query string, opts ...RetrieveOption) (Result, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return Result{}, err
	}
	c, err := New(cfg)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = c.Close() }()
	return c.Retrieve(ctx, query, opts...)
}

func buildRequest(opts []RetrieveOption) retrieve.Request {
	var req retrieve.Request
	for _, o := range opts {
		o(&req)
	}
	return req
}
