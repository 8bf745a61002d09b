// Package ingestion implements the document ingestion pipeline. It routes
// an upload to its collection, splits the extracted text into chunks,
// embeds each chunk, and stores the results in a single write so a failed
// ingestion never leaves a partial document behind.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/docqhq/docq-go/internal/chunker"
	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/rag"
	"github.com/docqhq/docq-go/internal/store"
)

// ErrEmptyContent is returned when a document yields no text to index.
// It is detected before any write, so the store is untouched.
var ErrEmptyContent = errors.New("ingestion: document produced no text")

// Result reports what an ingestion run produced.
type Result struct {
	// Collection is the collection the document landed in.
	Collection string `json:"collection"`

	// ChunksProcessed is the number of chunks embedded and stored.
	ChunksProcessed int `json:"chunks_processed"`
}

// Pipeline orchestrates the route → chunk → embed → store flow.
type Pipeline struct {
	splitter *chunker.Splitter
	embedder rag.Embedder
	store    store.Store
	router   *collection.Router

	// defaultModel is recorded on chunks when the request does not name
	// an embedding model, so later queries can filter on it.
	defaultModel string

	log *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies.
// defaultModel is the embedding model the gateway uses when a request
// passes an empty model name.
func NewPipeline(splitter *chunker.Splitter, embedder rag.Embedder, st store.Store, router *collection.Router, defaultModel string, log *slog.Logger) (*Pipeline, error) {
	if splitter == nil {
		return nil, fmt.Errorf("ingestion: splitter must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if router == nil {
		return nil, fmt.Errorf("ingestion: router must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		splitter:     splitter,
		embedder:     embedder,
		store:        st,
		router:       router,
		defaultModel: defaultModel,
		log:          log,
	}, nil
}

// Ingest indexes one document's extracted text. The target collection is
// advisory: if it names no live collection the file routes by type. The
// chunks are embedded with embeddingModel ("" means the gateway default)
// and written in one transaction.
func (p *Pipeline) Ingest(ctx context.Context, filename, text, targetCollection, embeddingModel string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, filename)
	}

	name, err := p.router.Route(ctx, filename, targetCollection)
	if err != nil {
		return nil, fmt.Errorf("ingestion: route %s: %w", filename, err)
	}

	segments := p.splitter.Split(text)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, filename)
	}

	embeddings, err := p.embedder.Embed(ctx, embeddingModel, segments)
	if err != nil {
		return nil, fmt.Errorf("ingestion: embed %s: %w", filename, err)
	}
	if len(embeddings) != len(segments) {
		return nil, fmt.Errorf("ingestion: embed %s: got %d embeddings for %d chunks", filename, len(embeddings), len(segments))
	}

	model := embeddingModel
	if model == "" {
		model = p.defaultModel
	}

	chunks := make([]rag.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = rag.Chunk{
			ID:             uuid.NewString(),
			Filename:       filename,
			Content:        seg,
			Embedding:      embeddings[i],
			EmbeddingModel: model,
		}
	}

	partition := collection.Partition(name)
	if err := p.store.CreatePartition(ctx, partition); err != nil {
		return nil, fmt.Errorf("ingestion: ensure partition %s: %w", partition, err)
	}
	if err := p.store.Insert(ctx, partition, chunks); err != nil {
		return nil, fmt.Errorf("ingestion: store %s: %w", filename, err)
	}

	p.log.InfoContext(ctx, "document ingested",
		"filename", filename,
		"collection", name,
		"chunks", len(chunks),
		"embedding_model", model,
	)
	return &Result{Collection: name, ChunksProcessed: len(chunks)}, nil
}
