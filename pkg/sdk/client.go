package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/okp/internal/version"
)

const (
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4096
)

// Client talks to an okp bridge. It is safe for concurrent use.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	obs       *observer
}

// New creates a Client for the bridge at baseURL, e.g. "http://localhost:8090".
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("sdk: invalid base URL %q", baseURL)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	ua := cfg.userAgent
	if ua == "" {
		ua = "okp-sdk/" + version.Version
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    cfg.apiKey,
		userAgent: ua,
		http:      hc,
		obs:       obs,
	}, nil
}

// Retrieve calls GET /v1/retrieve.
func (c *Client) Retrieve(ctx context.Context, query string, p RetrieveParams) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	q := url.Values{}
	q.Set("q", query)
	if p.Rows > 0 {
		q.Set("rows", strconv.Itoa(p.Rows))
	}
	if p.Product != "" {
		q.Set("product", p.Product)
	}
	if p.Version != "" {
		q.Set("version", p.Version)
	}
	if p.DocumentKind != "" {
		q.Set("kind", p.DocumentKind)
	}
	if p.NoSanitize {
		q.Set("sanitize", "false")
	}

	if err = c.get(ctx, "/v1/retrieve?"+q.Encode(), &res, http.StatusOK); err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}
	return res, nil
}

// Health calls GET /health. An unhealthy bridge answers 503 with a report;
// the report is returned together with an *APIError in that case.
func (c *Client) Health(ctx context.Context) (h HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	err = c.get(ctx, "/health", &h, http.StatusOK, http.StatusServiceUnavailable)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	if h.Status == "error" {
		return h, &APIError{StatusCode: http.StatusServiceUnavailable, Code: "backend_unavailable", Message: h.OKP.Error}
	}
	return h, nil
}

func (c *Client) get(ctx context.Context, path string, out any, okStatus ...int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	for _, s := range okStatus {
		if resp.StatusCode == s {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
	}
	return decodeAPIError(resp)
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Code != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsAPIError reports whether err carries a bridge error response and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
