package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/docqhq/docq-go/internal/rag"
)

// scrollPageSize bounds how many points a single Scroll request returns.
// Personal-corpus partitions fit comfortably in a few pages.
const scrollPageSize = 1024

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// VectorSize is the dimensionality of stored embeddings.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore is a Store backed by a Qdrant instance. Each partition
// maps to one Qdrant collection. Scan streams raw points back so the
// local ranker scores both backends identically.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore connects to a Qdrant instance and returns a
// ready-to-use Store.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// Insert upserts chunk records into the partition's collection,
// creating the collection first if it does not exist yet.
func (s *QdrantStore) Insert(ctx context.Context, partition string, chunks []rag.Chunk) error {
	if err := s.CreatePartition(ctx, partition); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"filename":        c.Filename,
				"content":         c.Content,
				"embedding_model": c.EmbeddingModel,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: partition,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("store: qdrant upsert failed: %w", err)
	}
	return nil
}

// Scan pages through the partition with a server-side embedding_model
// filter and returns every matching chunk with its vector. Scroll pages
// in point-ID order, so the result is stable for an unchanged partition
// but does not reflect insertion order.
func (s *QdrantStore) Scan(ctx context.Context, partition, embeddingModel string) ([]rag.Chunk, error) {
	exists, err := s.client.CollectionExists(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("store: qdrant collection check failed: %w", err)
	}
	if !exists {
		return nil, nil
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("embedding_model", embeddingModel),
		},
	}

	var chunks []rag.Chunk
	var offset *qdrant.PointId
	limit := uint32(scrollPageSize)
	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: partition,
			Filter:         filter,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("store: qdrant scroll failed: %w", err)
		}

		for _, p := range points {
			c := rag.Chunk{ID: p.Id.GetUuid()}
			if pl := p.Payload; pl != nil {
				if v, ok := pl["filename"]; ok {
					c.Filename = v.GetStringValue()
				}
				if v, ok := pl["content"]; ok {
					c.Content = v.GetStringValue()
				}
				if v, ok := pl["embedding_model"]; ok {
					c.EmbeddingModel = v.GetStringValue()
				}
			}
			if vecs := p.Vectors; vecs != nil {
				c.Embedding = vecs.GetVector().GetData()
			}
			chunks = append(chunks, c)
		}

		if len(points) < scrollPageSize {
			return chunks, nil
		}
		offset = points[len(points)-1].Id
	}
}

// Count returns the number of points in the partition's collection.
func (s *QdrantStore) Count(ctx context.Context, partition string) (int64, error) {
	exists, err := s.client.CollectionExists(ctx, partition)
	if err != nil {
		return 0, fmt.Errorf("store: qdrant collection check failed: %w", err)
	}
	if !exists {
		return 0, nil
	}

	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: partition,
	})
	if err != nil {
		return 0, fmt.Errorf("store: qdrant count failed: %w", err)
	}
	return int64(n), nil
}

// DeleteAll removes every point from the partition's collection and
// reports how many were removed. The collection itself is kept.
func (s *QdrantStore) DeleteAll(ctx context.Context, partition string) (int64, error) {
	n, err := s.Count(ctx, partition)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: partition,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
	})
	if err != nil {
		return 0, fmt.Errorf("store: qdrant delete failed: %w", err)
	}
	return n, nil
}

// CreatePartition creates the partition's collection if it does not
// already exist. Idempotent.
func (s *QdrantStore) CreatePartition(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("store: qdrant collection check failed: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("store: qdrant create collection %q: %w", name, err)
	}
	return nil
}

// DropPartition deletes the partition's collection and all its points.
func (s *QdrantStore) DropPartition(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("store: qdrant drop collection %q: %w", name, err)
	}
	return nil
}

// ListPartitions returns the names of all collections on the instance.
func (s *QdrantStore) ListPartitions(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: qdrant list collections: %w", err)
	}
	return names, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
