package solr

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kailas-cloud/okp/internal/config"
	"github.com/kailas-cloud/okp/internal/domain"
)

const maxIdleConns = 20

// newClient builds one pooled HTTP client. Go has no pool-acquisition
// timeout, so the pool budget is folded into the overall client timeout.
func newClient(cfg *config.Config, tlsCfg *tls.Config) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.TimeoutConnect(), KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   cfg.TimeoutConnect(),
		ResponseHeaderTimeout: cfg.TimeoutRead(),
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConns,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: &retryTransport{base: base, retries: cfg.Retries},
		Timeout:   cfg.TimeoutConnect() + cfg.TimeoutPool() + cfg.TimeoutRead(),
	}
}

func tlsConfig(v config.TLSVerify) (*tls.Config, error) {
	c := &tls.Config{MinVersion: tls.VersionTLS12}
	if !v.Enabled {
		c.InsecureSkipVerify = true //nolint:gosec // explicitly requested via verify_ssl=false
		return c, nil
	}
	if v.CABundle == "" {
		return c, nil
	}
	pem, err := os.ReadFile(filepath.Clean(v.CABundle))
	if err != nil {
		return nil, fmt.Errorf("%w: read CA bundle %s: %w", domain.ErrInvalidConfig, v.CABundle, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: no certificates found in CA bundle %s", domain.ErrInvalidConfig, v.CABundle)
	}
	c.RootCAs = pool
	return c, nil
}

// retryTransport repeats requests that failed to establish a connection.
// Requests that reached the server are never repeated here.
type retryTransport struct {
	base    http.RoundTripper
	retries int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt <= t.retries; attempt++ {
		resp, err = t.base.RoundTrip(req)
		if err == nil || !isDialError(err) || req.Context().Err() != nil {
			return resp, err //nolint:wrapcheck // transparent transport
		}
	}
	return resp, err //nolint:wrapcheck // transparent transport
}

func (t *retryTransport) CloseIdleConnections() {
	if c, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
