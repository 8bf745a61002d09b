package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/generator"
	"github.com/docqhq/docq-go/internal/ingestion"
	"github.com/docqhq/docq-go/internal/query"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// MaxUploadBytes caps the size of one uploaded file. Defaults to 50 MiB.
	MaxUploadBytes int64
	// UploadsDir is where raw uploaded files are retained. Defaults to
	// "uploads" under the working directory.
	UploadsDir string
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's Prometheus metrics. If nil, a
	// private registry is created. Tests inject a fresh one to stay hermetic.
	MetricsRegistry *prometheus.Registry
}

// queryRunner is the interface handleChat calls to answer a question.
// *query.Engine satisfies it; tests inject a fake.
type queryRunner interface {
	Query(ctx context.Context, req *query.Request) (*query.Response, error)
}

// ingester is the interface handleUpload calls after text extraction.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	Ingest(ctx context.Context, filename, text, targetCollection, embeddingModel string) (*ingestion.Result, error)
}

// modelLister is the interface handleModels calls to enumerate chat models.
// *generator.Ollama satisfies it; tests inject a fake.
type modelLister interface {
	ListModels(ctx context.Context) ([]generator.ModelInfo, error)
}

// Server is the HTTP server exposing the document Q&A API.
type Server struct {
	// engine answers retrieval-augmented questions.
	engine queryRunner
	// pipeline ingests uploaded documents.
	pipeline ingester
	// models lists the chat models the generation backend serves.
	models modelLister
	// collections manages the collection namespace.
	collections *collection.Router
	// cfg holds the resolved server configuration.
	cfg *Config
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// Model is the chat model to answer with ("" = backend default).
	Model string `json:"model,omitempty"`
	// EmbeddingModel selects which indexed embeddings to search.
	EmbeddingModel string `json:"embedding_model,omitempty"`
	// CollectionFilter limits the search to the named collections.
	CollectionFilter []string `json:"collection_filter,omitempty"`
}

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	// Filename is the original name of the uploaded file.
	Filename string `json:"filename"`
	// Collection is the collection the document landed in.
	Collection string `json:"collection"`
	// ChunksProcessed is the number of chunks embedded and stored.
	ChunksProcessed int `json:"chunks_processed"`
}

// createCollectionRequest is the JSON body for POST /api/collections.
type createCollectionRequest struct {
	// Name is the requested collection name; it is normalized server-side.
	Name string `json:"name"`
}

// clearResponse reports how many chunks a clear operation removed.
type clearResponse struct {
	// ChunksRemoved is the number of chunks deleted.
	ChunksRemoved int64 `json:"chunks_removed"`
}

// errorResponse is the JSON error body returned by all handlers.
type errorResponse struct {
	// Error is the human-readable failure description.
	Error string `json:"error"`
}
