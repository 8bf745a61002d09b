package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/docqhq/docq-go/internal/chunker"
	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/embedder"
	"github.com/docqhq/docq-go/internal/generator"
	"github.com/docqhq/docq-go/internal/ingestion"
	"github.com/docqhq/docq-go/internal/query"
	"github.com/docqhq/docq-go/internal/rag"
	"github.com/docqhq/docq-go/internal/store"
)

// openStore opens the chunk store selected by STORE_BACKEND.
// sqlite (the default) keeps everything in a single local file; qdrant
// connects to a running Qdrant server via gRPC.
func openStore(log *slog.Logger) (store.Store, error) {
	backend := getEnvOrDefault("STORE_BACKEND", "sqlite")

	switch backend {
	case "sqlite":
		path := os.Getenv("DOCQ_DB")
		if path == "" {
			var err error
			path, err = store.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("store: could not resolve default DB path: %w", err)
			}
		}
		s, err := store.OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("store: failed to open sqlite store at %s: %w", path, err)
		}
		log.Info("sqlite store ready", slog.String("path", path))
		return s, nil

	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")
		dims := getEnvInt("EMBEDDING_DIMENSIONS", embedder.DefaultDimensions(embBackend))

		s, err := store.NewQdrantStore(&store.QdrantConfig{
			Host:       host,
			Port:       port,
			VectorSize: uint64(dims), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("store: failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("qdrant store ready", slog.String("host", host), slog.Int("port", port))
		return s, nil

	default:
		return nil, fmt.Errorf("store: unknown STORE_BACKEND %q (want sqlite or qdrant)", backend)
	}
}

// buildPipeline wires the ingestion pipeline on top of an open store.
func buildPipeline(emb rag.Embedder, st store.Store, router *collection.Router, log *slog.Logger) (*ingestion.Pipeline, error) {
	splitter := chunker.New(
		getEnvInt("CHUNK_SIZE", 0),
		getEnvInt("CHUNK_OVERLAP", -1),
	)

	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")
	return ingestion.NewPipeline(splitter, emb, st, router, embedder.DefaultModel(embBackend), log)
}

// buildEngine wires the query engine on top of an open store.
func buildEngine(emb rag.Embedder, gen generator.Generator, st store.Store, router *collection.Router, log *slog.Logger) (*query.Engine, error) {
	embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")

	return query.NewEngine(&query.Config{
		Embedder:          emb,
		Ranker:            rag.NewLinearRanker(log),
		Generator:         gen,
		Store:             st,
		Router:            router,
		DefaultEmbedModel: embedder.DefaultModel(embBackend),
		Logger:            log,
	})
}

// getEnvOrDefault returns the env var value or fallback when unset/empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or fallback on absence or parse error.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
