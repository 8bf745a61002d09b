// Package server implements the HTTP server that exposes document upload,
// retrieval-augmented chat, and collection management as a REST API.
// The server is started by the `docq serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/embedder"
	"github.com/docqhq/docq-go/internal/extract"
	"github.com/docqhq/docq-go/internal/generator"
	"github.com/docqhq/docq-go/internal/ingestion"
	"github.com/docqhq/docq-go/internal/query"
)

// Deps bundles the domain components the server exposes.
type Deps struct {
	// Engine answers retrieval-augmented questions.
	Engine *query.Engine
	// Pipeline ingests uploaded documents.
	Pipeline *ingestion.Pipeline
	// Models lists available chat models.
	Models modelLister
	// Collections manages the collection namespace.
	Collections *collection.Router
}

// New constructs a Server from the provided dependencies and config.
func New(deps *Deps, cfg *Config) (*Server, error) {
	if deps == nil || deps.Engine == nil || deps.Pipeline == nil || deps.Collections == nil {
		return nil, fmt.Errorf("server: engine, pipeline, and collections must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full generate round-trip.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "uploads"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.NewRegistry()
	}
	reg := cfg.MetricsRegistry

	s := &Server{
		engine:      deps.Engine,
		pipeline:    deps.Pipeline,
		models:      deps.Models,
		collections: deps.Collections,
		cfg:         cfg,
		log:         log,
		pingers:     cfg.Pingers,
		metrics:     newServerMetrics(reg),
	}
	if cfg.APIKey == "" {
		log.Warn("server: API key not set, authentication disabled")
	}

	return s, nil
}

// Handler builds the fully wired HTTP handler: routes, per-IP rate
// limiting on mutating endpoints, bearer auth, and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/models", s.handleModels)

	mux.HandleFunc("GET /api/collections", s.handleCollectionsList)
	mux.HandleFunc("POST /api/collections", s.handleCollectionCreate)
	mux.HandleFunc("GET /api/collections/{name}", s.handleCollectionStats)
	mux.HandleFunc("DELETE /api/collections/{name}", s.handleCollectionDelete)
	mux.HandleFunc("POST /api/collections/{name}/clear", s.handleCollectionClear)
	mux.HandleFunc("POST /api/collections/clear-all", s.handleCollectionsClearAll)

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)

	reg := s.cfg.MetricsRegistry
	if reg != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	rps := s.cfg.RateLimit
	if rps == 0 {
		rps = defaultRateLimit
	}
	burst := s.cfg.RateBurst
	if burst == 0 {
		burst = defaultRateBurst
	}
	rl, stop := newRateLimiter(rps, burst, s.log)
	s.stopRL = stop

	var h http.Handler = mux
	h = rl.middleware(h)
	h = authMiddleware(s.cfg.APIKey, h)
	h = s.instrument(h)
	h = requestLogger(s.log, h)
	return h
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	defer func() {
		if s.stopRL != nil {
			s.stopRL()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses and emits the JSON
// error body. Unrecognized errors become 500 with a generic message so
// internals never leak to clients.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, collection.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, collection.ErrDuplicate),
		errors.Is(err, collection.ErrProtected),
		errors.Is(err, ingestion.ErrEmptyContent),
		errors.Is(err, extract.ErrExtraction),
		errors.Is(err, query.ErrEmptyQuery):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, embedder.ErrBackendUnavailable),
		errors.Is(err, generator.ErrBackendUnavailable):
		status = http.StatusBadGateway
		msg = err.Error()
	}

	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
