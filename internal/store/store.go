// Package store persists chunk records in named partitions and scans
// them back for ranking. Two backends implement the same contract: a
// local SQLite database (the default — no extra services needed) and a
// Qdrant instance for setups that already run one. The store defines
// what is kept, not how it is scored; similarity lives in the ranker.
package store

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/docqhq/docq-go/internal/rag"
)

// Store is the document-store contract consumed by the retrieval
// engine. Partition names are opaque to the store; the collection
// router owns the naming scheme. Implementations must be safe for
// concurrent use, and partition creation/drop must be atomic — a
// partition is either fully visible or absent, never half-created.
type Store interface {
	// Insert appends chunk records to a partition. Chunks without an ID
	// are assigned one. Insertion is append-only and order-preserving
	// within the batch.
	Insert(ctx context.Context, partition string, chunks []rag.Chunk) error

	// Scan returns every chunk in the partition whose EmbeddingModel
	// equals embeddingModel, in an order that is stable across calls
	// for an unchanged partition (SQLite scans in insertion order,
	// Qdrant in point-ID order). The model filter is mandatory —
	// cross-model similarity is undefined.
	Scan(ctx context.Context, partition, embeddingModel string) ([]rag.Chunk, error)

	// Count returns the number of chunks in the partition.
	Count(ctx context.Context, partition string) (int64, error)

	// DeleteAll removes every chunk from the partition, keeping the
	// partition itself. Returns the number of chunks removed.
	DeleteAll(ctx context.Context, partition string) (int64, error)

	// CreatePartition creates a partition. Creating an existing
	// partition is a no-op; duplicate detection belongs to the router.
	CreatePartition(ctx context.Context, name string) error

	// DropPartition removes a partition and all chunks it contains.
	DropPartition(ctx context.Context, name string) error

	// ListPartitions returns the names of all live partitions.
	ListPartitions(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// encodeVector packs a float32 vector into a little-endian byte blob
// for storage. Round-trips exactly through decodeVector.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a blob written by encodeVector.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
