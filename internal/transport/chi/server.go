package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/okp/internal/domain"
	"github.com/kailas-cloud/okp/internal/domain/result"
	logpkg "github.com/kailas-cloud/okp/internal/logger"
	healthuc "github.com/kailas-cloud/okp/internal/usecase/health"
	"github.com/kailas-cloud/okp/internal/usecase/retrieve"
)

// Retriever runs one retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, query string, req retrieve.Request) (result.Result, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes retrieval over plain HTTP for agents and tools.
type Server struct {
	retriever     Retriever
	health        *healthuc.Service
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP bridge server. gatherer may be nil
// (prometheus.DefaultGatherer).
func NewServer(
	retriever Retriever,
	health *healthuc.Service,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		retriever: retriever,
		health:    health,
		gatherer:  gatherer,
		logger:    logger,
	}
	// order matters: a breaker rejection is also a connection error
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrCircuitOpen, http.StatusServiceUnavailable, ErrorResponseCodeCircuitOpen),
		sentinelHandler(domain.ErrConnection, http.StatusServiceUnavailable, ErrorResponseCodeBackendUnavailable),
		sentinelHandler(domain.ErrSearch, http.StatusBadGateway, ErrorResponseCodeBackendError),
		sentinelHandler(domain.ErrResponse, http.StatusBadGateway, ErrorResponseCodeBadGateway),
		sentinelHandler(domain.ErrClientClosed, http.StatusServiceUnavailable, ErrorResponseCodeBackendUnavailable),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorResponseCodeTimeout),
	}
	return s
}

// Routes mounts the bridge endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/v1/retrieve", s.Retrieve)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Retrieve handles GET /v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	params, err := bindRetrieveParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid query parameters: "+err.Error())
		return
	}

	req := retrieve.Request{}
	if params.Rows != nil {
		req.Rows = *params.Rows
		if req.Rows == 0 {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "rows must be 1-100")
			return
		}
	}
	if params.Product != nil {
		req.Filters.Product = *params.Product
	}
	if params.Version != nil {
		req.Filters.Version = *params.Version
	}
	if params.Kind != nil {
		req.Filters.DocumentKind = *params.Kind
	}
	if params.Sanitize != nil {
		req.NoSanitize = !*params.Sanitize
	}

	res, err := s.retriever.Retrieve(r.Context(), params.Q, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		OKP:    report.OKP,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func bindRetrieveParams(r *http.Request) (RetrieveParams, error) {
	var params RetrieveParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, true, "q", query, &params.Q); err != nil {
		return params, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "rows", query, &params.Rows); err != nil {
		return params, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "product", query, &params.Product); err != nil {
		return params, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "version", query, &params.Version); err != nil {
		return params, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "kind", query, &params.Kind); err != nil {
		return params, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "sanitize", query, &params.Sanitize); err != nil {
		return params, err
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// handleDomainError maps retrieval errors to HTTP statuses. Retrieval error
// messages are meant for callers; anything else is reported as internal.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("retrieve failed", zap.Error(err))

	for _, h := range s.errorHandlers {
		if h(w, err, err.Error()) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
