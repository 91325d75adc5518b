// Package solr is the production search backend: HTTP GET against the
// portal select handler and parsing of the Solr JSON response.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/config"
	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/result"
	"github.com/kailas-cloud/okp/internal/version"
)

const maxBodyBytes = 32 << 20

// Backend queries the embedded Solr instance. Blocking and asynchronous
// calls use separate connection pools.
type Backend struct {
	baseURL  string
	endpoint string
	sync     *http.Client
	async    *http.Client
	logger   *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a Backend from a validated config.
func New(cfg config.Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tlsCfg, err := tlsConfig(cfg.VerifySSL)
	if err != nil {
		return nil, err
	}
	return &Backend{
		baseURL:  cfg.BaseURL,
		endpoint: cfg.BaseURL + cfg.SolrHandler,
		sync:     newClient(&cfg, tlsCfg),
		async:    newClient(&cfg, tlsCfg.Clone()),
		logger:   logger,
	}, nil
}

// Search runs one blocking query.
func (b *Backend) Search(ctx context.Context, query string, rows int, f domain.Filters) (result.Page, error) {
	return b.do(ctx, b.sync, "sync", query, rows, f)
}

// SearchAsync runs one query on the concurrent pool and delivers exactly one outcome.
func (b *Backend) SearchAsync(ctx context.Context, query string, rows int, f domain.Filters) <-chan result.Outcome {
	ch := make(chan result.Outcome, 1)
	go func() {
		defer close(ch)
		page, err := b.do(ctx, b.async, "async", query, rows, f)
		ch <- result.Outcome{Page: page, Err: err}
	}()
	return ch
}

// Close releases both connection pools. Safe to call more than once.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.sync.CloseIdleConnections()
		b.async.CloseIdleConnections()
		b.logger.Debug("Solr backend closed", zap.String("endpoint", b.endpoint))
	})
	return nil
}

func (b *Backend) do(
	ctx context.Context, client *http.Client, mode, query string, rows int, f domain.Filters,
) (result.Page, error) {
	if b.closed.Load() {
		return result.Page{}, domain.ErrClientClosed
	}

	start := time.Now()
	log := b.logger.With(zap.String("mode", mode), zap.String("query", query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint, http.NoBody)
	if err != nil {
		return result.Page{}, domain.NewConnectionError(fmt.Sprintf("OKP request failed: %v", err), err)
	}
	req.URL.RawQuery = buildParams(query, rows, f).Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("Solr request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return result.Page{}, b.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn("Solr response read failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return result.Page{}, b.transportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		log.Warn("Solr HTTP error",
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
		return result.Page{}, domain.NewSearchError(resp.StatusCode, string(body))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		log.Warn("Solr response decode failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return result.Page{}, domain.NewResponseError(
			fmt.Sprintf("Failed to decode OKP response: %v", err), string(body), err,
		)
	}

	page, err := ParseResponse(tree, b.logger)
	if err != nil {
		return result.Page{}, err
	}

	log.Info("Solr query completed",
		zap.Int("num_found", page.NumFound),
		zap.Int("returned", len(page.Docs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return page, nil
}

func (b *Backend) transportError(err error) error {
	var netErr net.Error
	switch {
	case isDialError(err):
		return domain.NewConnectionError(fmt.Sprintf("Cannot connect to OKP at %s: %v", b.baseURL, err), err)
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		return domain.NewConnectionError(fmt.Sprintf("Timeout connecting to OKP at %s: %v", b.baseURL, err), err)
	default:
		return domain.NewConnectionError(fmt.Sprintf("OKP request failed: %v", err), err)
	}
}
