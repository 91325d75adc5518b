package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/okp/internal/config"
	logpkg "github.com/kailas-cloud/okp/internal/logger"
)

const solrBody = `{
  "response": {"numFound": 1, "docs": [
    {"id": "doc-1", "title": "Configuring networking", "url_slug": "configuring-networking",
     "documentKind": "documentation", "product": "Red Hat Enterprise Linux"}
  ]},
  "facet_counts": {"facet_fields": {"product": ["Red Hat Enterprise Linux", 12]}}
}`

// fakeSolr serves a fixed select response and records the last query.
func fakeSolr(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var lastQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(solrBody))
	}))
	t.Cleanup(srv.Close)
	return srv, &lastQuery
}

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("OKP_CONFIG", "")
	t.Setenv("RHOKP_BASE_URL", baseURL)
	t.Setenv("RHOKP_RETRY_MAX_ATTEMPTS", "0")
}

func TestRun_Version(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"version"}, &out, &errOut); code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(out.String(), "okp ") {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"search without query", []string{"search"}},
		{"search blank query", []string{"search", "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if code := run(tt.args, &out, &errOut); code != 2 {
				t.Errorf("exit = %d, want 2", code)
			}
			if errOut.Len() == 0 {
				t.Error("expected usage on stderr")
			}
		})
	}
}

func TestRun_SearchJSON(t *testing.T) {
	srv, lastQuery := fakeSolr(t)
	setEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	code := run([]string{"search", "--rows", "3", "configure", "networking"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, errOut.String())
	}

	var got struct {
		Query    string `json:"query"`
		NumFound int    `json:"num_found"`
		Docs     []struct {
			Title string `json:"title"`
		} `json:"docs"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode stdout: %v\n%s", err, out.String())
	}
	if got.Query != "configure networking" {
		t.Errorf("query = %q", got.Query)
	}
	if got.NumFound != 1 || len(got.Docs) != 1 {
		t.Errorf("num_found = %d, docs = %d", got.NumFound, len(got.Docs))
	}
	if *lastQuery != "configure networking" {
		t.Errorf("solr q = %q", *lastQuery)
	}
}

func TestRun_SearchContextOnly(t *testing.T) {
	srv, _ := fakeSolr(t)
	setEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	if code := run([]string{"search", "--context-only", "networking"}, &out, &errOut); code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "Configuring networking") {
		t.Errorf("context = %q", out.String())
	}
	if strings.HasPrefix(strings.TrimSpace(out.String()), "{") {
		t.Error("context-only should not print JSON")
	}
}

func TestRun_SearchBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	if code := run([]string{"search", "networking"}, &out, &errOut); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "Error: HTTP 400") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestRun_Health(t *testing.T) {
	srv, lastQuery := fakeSolr(t)
	setEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	if code := run([]string{"health"}, &out, &errOut); code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), `"status": "healthy"`) {
		t.Errorf("stdout = %s", out.String())
	}
	if *lastQuery != "test" {
		t.Errorf("probe q = %q", *lastQuery)
	}
}

func TestRun_HealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	setEnv(t, url)

	var out, errOut bytes.Buffer
	if code := run([]string{"health"}, &out, &errOut); code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(out.String(), `"status": "unhealthy"`) {
		t.Errorf("stdout = %s", out.String())
	}
}

func TestBuildHandler(t *testing.T) {
	srv, _ := fakeSolr(t)
	setEnv(t, srv.URL)

	app, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h, cleanup, err := buildHandler(context.Background(), app, zap.NewNop(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("buildHandler: %v", err)
	}
	defer cleanup()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/retrieve?q=networking&rows=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"okp_retrieve_requests_total", "okp_http_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics missing %s", name)
		}
	}
}

func TestJSONRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := jsonRecoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"internal_error"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("panic not logged")
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var ctxLogger *zap.Logger
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger = logpkg.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	h := chiMiddleware.RequestID(wideEventMiddleware(zap.New(core))(inner))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/retrieve?q=selinux", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if ctxLogger == nil {
		t.Fatal("logger not placed in context")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["query"] != "selinux" {
		t.Errorf("query = %v", fields["query"])
	}
	if fields["request_id"] == "" {
		t.Error("request_id missing")
	}
}
