package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kailas-cloud/okp"
	"github.com/kailas-cloud/okp/internal/config"
	"github.com/kailas-cloud/okp/internal/domain/result"
	logpkg "github.com/kailas-cloud/okp/internal/logger"
	"github.com/kailas-cloud/okp/internal/metrics"
	"github.com/kailas-cloud/okp/internal/tracing"
	chiTransport "github.com/kailas-cloud/okp/internal/transport/chi"
	openaiAns "github.com/kailas-cloud/okp/internal/transport/openai"
	healthuc "github.com/kailas-cloud/okp/internal/usecase/health"
	"github.com/kailas-cloud/okp/internal/usecase/retrieve"
	"github.com/kailas-cloud/okp/internal/version"
)

func runServe(args []string, stderr io.Writer) error {
	var f commonFlags
	var port int
	fs := newFlagSet("serve", stderr)
	f.register(fs)
	fs.IntVar(&port, "port", 0, "listen port (default from config, 8090)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	app, logger, err := f.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if port > 0 {
		app.HTTP.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting okp bridge",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", app.HTTP.Port),
		zap.String("okp_base_url", app.OKP.BaseURL),
		zap.Bool("tracing", app.Tracing.Enabled),
	)

	handler, cleanup, err := buildHandler(ctx, app, logger, stderr)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := fmt.Sprintf(":%d", app.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(app.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(app.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(app.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// buildHandler is the composition root of the bridge. cleanup closes the
// client and flushes pending spans.
func buildHandler(
	ctx context.Context, app config.App, logger *zap.Logger, traceOut io.Writer,
) (http.Handler, func(), error) {
	tp, shutdownTracing, err := tracing.Init(app.Tracing, traceOut)
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.RegisterHTTP(reg); err != nil {
		_ = shutdownTracing(ctx)
		return nil, nil, err
	}

	client, err := okp.New(app.OKP,
		okp.WithLogger(logger),
		okp.WithPrometheus(reg),
		okp.WithTracerProvider(tp),
	)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, nil, err
	}

	// A nil *Answerer wrapped in the interface would not compare equal to nil.
	var answerChecker healthuc.AnswerChecker
	if app.LLM.APIKey != "" || app.LLM.BaseURL != "" {
		answerChecker = openaiAns.NewAnswerer(&openaiAns.Config{
			APIKey:  app.LLM.APIKey,
			BaseURL: app.LLM.BaseURL,
			Model:   app.LLM.Model,
			Logger:  logger,
		})
	}
	healthSvc := healthuc.New(client, answerChecker)

	h := client.CheckHealth(ctx)
	if h.Healthy() {
		logger.Info("OKP reachable",
			zap.Int("num_indexed", h.NumIndexed),
			zap.Int("products_available", h.ProductsAvailable),
		)
	} else {
		logger.Warn("OKP not reachable at startup", zap.String("error", h.Error))
	}

	server := chiTransport.NewServer(clientRetriever{client}, healthSvc, reg, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.TracingMiddleware(tp))
	r.Use(chiTransport.BearerAuthMiddleware(app.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("close okp client", zap.Error(err))
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("shutdown tracing", zap.Error(err))
		}
	}
	return r, cleanup, nil
}

// clientRetriever adapts okp.Client to the bridge's Retriever.
type clientRetriever struct {
	client *okp.Client
}

func (c clientRetriever) Retrieve(ctx context.Context, query string, req retrieve.Request) (result.Result, error) {
	opts := []okp.RetrieveOption{
		okp.WithRows(req.Rows),
		okp.WithProduct(req.Filters.Product),
		okp.WithVersion(req.Filters.Version),
		okp.WithDocumentKind(req.Filters.DocumentKind),
	}
	if req.NoSanitize {
		opts = append(opts, okp.WithoutSanitize())
	}
	return c.client.Retrieve(ctx, query, opts...)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.Query().Get("q")),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
