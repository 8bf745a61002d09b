// Package query implements the retrieval-augmented query flow: embed the
// question, gather candidate chunks from the selected collections, rank
// them by cosine similarity, assemble the prompt, and generate the answer.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/generator"
	"github.com/docqhq/docq-go/internal/rag"
	"github.com/docqhq/docq-go/internal/store"
)

// ErrEmptyQuery is returned when the question is blank.
var ErrEmptyQuery = errors.New("query: empty question")

// Request is one retrieval-augmented question.
type Request struct {
	// Query is the user's question.
	Query string `json:"query"`

	// Model is the chat model used for generation ("" = backend default).
	Model string `json:"model,omitempty"`

	// EmbeddingModel selects which indexed embeddings to search
	// ("" = the gateway default).
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// CollectionFilter limits the search to the named collections.
	// Empty means search everything.
	CollectionFilter []string `json:"collection_filter,omitempty"`
}

// Response carries the generated answer and the context that produced it.
type Response struct {
	// Answer is the generated answer text, serialized as "response" on
	// the chat API.
	Answer string `json:"response"`

	// Context lists the chunk texts that were fed to the model, in rank order.
	Context []string `json:"context"`
}

// Engine wires the retrieval stages together.
type Engine struct {
	embedder rag.Embedder
	ranker   rag.Ranker
	gen      generator.Generator
	store    store.Store
	router   *collection.Router

	// defaultEmbedModel is used to filter stored chunks when a request
	// does not name an embedding model. It must match the model the
	// ingestion pipeline records by default.
	defaultEmbedModel string

	// topK is the number of chunks fed to the prompt.
	topK int

	log *slog.Logger
}

// Config holds the Engine's dependencies.
type Config struct {
	Embedder          rag.Embedder
	Ranker            rag.Ranker
	Generator         generator.Generator
	Store             store.Store
	Router            *collection.Router
	DefaultEmbedModel string

	// TopK is the number of context chunks; 0 means rag.DefaultTopK.
	TopK int

	Logger *slog.Logger
}

// NewEngine constructs an Engine from the given config.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("query: embedder must not be nil")
	}
	if cfg.Ranker == nil {
		return nil, fmt.Errorf("query: ranker must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("query: generator must not be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("query: store must not be nil")
	}
	if cfg.Router == nil {
		return nil, fmt.Errorf("query: router must not be nil")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		embedder:          cfg.Embedder,
		ranker:            cfg.Ranker,
		gen:               cfg.Generator,
		store:             cfg.Store,
		router:            cfg.Router,
		defaultEmbedModel: cfg.DefaultEmbedModel,
		topK:              topK,
		log:               log,
	}, nil
}

// Query answers one question against the indexed corpus. When no chunk
// matches the filter and embedding model, the prompt is still assembled
// (with empty context) and sent to the model, so the caller always gets
// an answer shaped the same way.
func (e *Engine) Query(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	embeddings, err := e.embedder.Embed(ctx, req.EmbeddingModel, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("query: embed question: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("query: embed question: got %d embeddings, want 1", len(embeddings))
	}
	queryVec := embeddings[0]

	embedModel := req.EmbeddingModel
	if embedModel == "" {
		embedModel = e.defaultEmbedModel
	}

	partitions, err := e.router.ResolveFilter(ctx, req.CollectionFilter)
	if err != nil {
		return nil, fmt.Errorf("query: resolve collections: %w", err)
	}

	var candidates []rag.Chunk
	for _, partition := range partitions {
		chunks, err := e.store.Scan(ctx, partition, embedModel)
		if err != nil {
			return nil, fmt.Errorf("query: scan %s: %w", partition, err)
		}
		candidates = append(candidates, chunks...)
	}

	top := e.ranker.Rank(queryVec, candidates, e.topK)
	prompt := rag.BuildPrompt(top, req.Query)

	e.log.DebugContext(ctx, "retrieval complete",
		"candidates", len(candidates),
		"selected", len(top),
		"collections_searched", len(partitions),
	)

	answer, err := e.gen.Generate(ctx, req.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("query: generate: %w", err)
	}

	return &Response{
		Answer:  answer,
		Context: rag.ContextTexts(top),
	}, nil
}
