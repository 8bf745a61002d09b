// Package rag defines the core types and interfaces for the retrieval
// engine: chunk records, embedding, similarity ranking, and prompt
// assembly. Concrete backends (SQLite, Qdrant, Ollama, OpenAI) satisfy
// these interfaces so the HTTP and CLI layers never depend on a
// specific implementation.
package rag

import (
	"context"
)

// Chunk is a unit of retrievable text produced at ingestion time.
// A chunk is never mutated after it is stored; it is removed only when
// its collection is cleared or deleted.
type Chunk struct {
	// ID is the unique identifier of this chunk record.
	ID string

	// Filename is the source document identifier. Not unique — a
	// document produces many chunks.
	Filename string

	// Content is the chunk's text, bounded by the chunking policy.
	Content string

	// Embedding is the dense vector produced for Content. Its length is
	// determined entirely by EmbeddingModel.
	Embedding []float32

	// EmbeddingModel identifies the model that produced Embedding.
	// Embeddings are only comparable to query vectors from the same
	// model; the store scan enforces that filter.
	EmbeddingModel string
}

// Scored pairs a chunk with the similarity score assigned during ranking.
type Scored struct {
	Chunk

	// Score is the cosine similarity to the query vector, in [-1, 1].
	Score float64
}

// Embedder converts text into dense vector embeddings. The model is
// chosen per call because each request may target a different embedding
// model. Implementations must be safe to call from multiple goroutines
// and must not retry or cache — backend failures surface to the caller
// unchanged.
type Embedder interface {
	// Embed converts a batch of texts into their embeddings using the
	// given model. The returned slice is parallel to the input slice.
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Ranker orders candidate chunks by similarity to a query vector.
// The linear-scan implementation in this package is the baseline; the
// interface exists so an index-backed nearest-neighbour search can be
// swapped in without changing callers.
type Ranker interface {
	// Rank scores every candidate against query and returns at most k
	// results in descending score order. Candidates must already be
	// restricted to the query's embedding model by the store scan.
	Rank(query []float32, candidates []Chunk, k int) []Scored
}
