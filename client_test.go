package okp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kailas-cloud/okp/internal/backend/mock"
)

func testDocs() []Document {
	return []Document{
		NewDocument(DocumentFields{Title: "Configuring firewalld", Product: "RHEL", Version: "9", URLSlug: "fw"}),
		NewDocument(DocumentFields{Title: "Firewall zones", Product: "RHEL", Version: "9"}),
	}
}

func newMockClient(t *testing.T, b Backend, opts ...Option) *Client {
	t.Helper()
	cfg := DefaultConfig()
	c, err := New(cfg, append([]Option{WithBackend(b)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows = 0
	cfg.BaseURL = ""
	_, err := New(cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "rows") || !strings.Contains(err.Error(), "base_url") {
		t.Errorf("expected every violation in %q", err)
	}
}

func TestNew_StripsTrailingSlash(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://okp.local:8080/"
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()
	if got := c.Config().BaseURL; got != "http://okp.local:8080" {
		t.Errorf("BaseURL = %q", got)
	}
}

func TestClient_Retrieve(t *testing.T) {
	b := mock.New(testDocs(), 42, NewFacetCounts(map[string]int{"RHEL": 2}, nil, nil, nil))
	c := newMockClient(t, b)

	res, err := c.Retrieve(context.Background(), "firewall",
		WithRows(1), WithProduct("RHEL"), WithVersion("9"), WithDocumentKind("guide"))
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.NumFound() != 42 || len(res.Docs()) != 1 {
		t.Errorf("num_found=%d docs=%d", res.NumFound(), len(res.Docs()))
	}
	if !strings.Contains(res.Context(), "[1] Configuring firewalld (RHEL, v9)") {
		t.Errorf("context = %q", res.Context())
	}

	calls := b.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	want := Filters{Product: "RHEL", Version: "9", DocumentKind: "guide"}
	if calls[0].Filters != want || calls[0].Rows != 1 {
		t.Errorf("call = %+v", calls[0])
	}
}

func TestClient_WithoutSanitize(t *testing.T) {
	b := mock.New(nil, -1, FacetCounts{})
	c := newMockClient(t, b)

	_, _ = c.Retrieve(context.Background(), "kernel*")
	_, _ = c.Retrieve(context.Background(), "kernel?", WithoutSanitize())
	q := b.Queries()
	if q[0] != `kernel\*` || q[1] != "kernel?" {
		t.Errorf("queries = %q", q)
	}
}

func TestClient_WithSynonyms(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExpandSynonyms = true
	b := mock.New(nil, -1, FacetCounts{})
	c, err := New(cfg, WithBackend(b), WithSynonyms(map[string]string{"FW": "firewall"}))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	_, _ = c.Retrieve(context.Background(), "FW", WithoutSanitize())
	if q := b.Queries(); q[0] != "FW (firewall)" {
		t.Errorf("query = %q", q[0])
	}
}

func TestClient_RetrieveAsync(t *testing.T) {
	b := mock.New(testDocs(), -1, FacetCounts{})
	c := newMockClient(t, b)

	out := <-c.RetrieveAsync(context.Background(), "firewall")
	if out.Err != nil || len(out.Result.Docs()) != 2 {
		t.Fatalf("outcome = %+v", out)
	}
	if !b.Calls()[0].Async {
		t.Error("expected async backend call")
	}
}

func TestClient_ErrorsSurfaceTyped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 0
	b := mock.New(nil, -1, FacetCounts{})
	b.FailWith(&SearchError{StatusCode: 404, Detail: "not found"})
	c, err := New(cfg, WithBackend(b))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	_, err = c.Retrieve(context.Background(), "x")
	var se *SearchError
	if !errors.As(err, &se) || se.StatusCode != 404 {
		t.Fatalf("expected SearchError 404, got %v", err)
	}
	if !errors.Is(err, ErrRetrieval) {
		t.Error("expected ErrRetrieval match")
	}
}

func TestClient_CloseIsIdempotentAndLeavesInjectedBackend(t *testing.T) {
	b := mock.New(nil, -1, FacetCounts{})
	c, err := New(DefaultConfig(), WithBackend(b))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if b.Closed() {
		t.Error("injected backend must not be closed by the client")
	}
	if _, err := c.Retrieve(context.Background(), "x"); !errors.Is(err, ErrClientClosed) {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}
}

func TestClient_CheckHealth(t *testing.T) {
	b := mock.New(testDocs(), 1200, NewFacetCounts(map[string]int{"RHEL": 2, "OCP": 1}, nil, nil, nil))
	c := newMockClient(t, b)

	h := c.CheckHealth(context.Background())
	if !h.Healthy() || h.NumIndexed != 1200 || h.ProductsAvailable != 2 {
		t.Errorf("health = %+v", h)
	}
}

func TestClient_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := mock.New(testDocs(), -1, FacetCounts{})
	c := newMockClient(t, b, WithPrometheus(reg))
	// a second client on the same registry shares the collectors
	_ = newMockClient(t, b, WithPrometheus(reg))

	if _, err := c.Retrieve(context.Background(), "firewall"); err != nil {
		t.Fatal(err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, n := range []string{"okp_retrieve_requests_total", "okp_backend_attempts_total"} {
		if !names[n] {
			t.Errorf("missing metric %s in %v", n, names)
		}
	}
}

func TestClient_WithTracerProvider(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	c := newMockClient(t, mock.New(testDocs(), -1, FacetCounts{}), WithTracerProvider(tp))

	_, _ = c.Retrieve(context.Background(), "firewall")
	spans := sr.Ended()
	if len(spans) != 1 || spans[0].InstrumentationScope().Name != instrumentationName {
		t.Errorf("spans = %v", spans)
	}
}

func TestRetrieve_OneShot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": {"numFound": 1, "docs": [{"title": "Only"}]}}`))
	}))
	defer server.Close()
	t.Setenv("RHOKP_BASE_URL", server.URL)

	res, err := Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.NumFound() != 1 || res.Docs()[0].Title() != "Only" {
		t.Errorf("result = %+v", res)
	}
}

func TestRetrieveOptions(t *testing.T) {
	req := buildRequest([]RetrieveOption{
		WithRows(7), WithProduct("p"), WithVersion("v"), WithDocumentKind("k"), WithoutSanitize(),
	})
	if req.Rows != 7 || req.Filters.Product != "p" || req.Filters.Version != "v" ||
		req.Filters.DocumentKind != "k" || !req.NoSanitize {
		t.Errorf("request = %+v", req)
	}
}
