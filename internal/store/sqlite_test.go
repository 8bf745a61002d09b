package store

import (
	"context"
	"testing"

	"github.com/docqhq/docq-go/internal/rag"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func testChunk(filename, content string, vec []float32) rag.Chunk {
	return rag.Chunk{
		Filename:       filename,
		Content:        content,
		Embedding:      vec,
		EmbeddingModel: "test-model",
	}
}

func TestInsertAndScan(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	chunks := []rag.Chunk{
		testChunk("a.txt", "first", []float32{1, 0, 0}),
		testChunk("a.txt", "second", []float32{0, 1, 0}),
		testChunk("b.txt", "third", []float32{0, 0, 1}),
	}
	if err := s.Insert(ctx, "documents_text", chunks); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.Scan(ctx, "documents_text", "test-model")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Scan returned %d chunks, want 3", len(got))
	}
	// Insertion order must be preserved.
	want := []string{"first", "second", "third"}
	for i, c := range got {
		if c.Content != want[i] {
			t.Errorf("chunk %d content = %q, want %q", i, c.Content, want[i])
		}
		if c.ID == "" {
			t.Errorf("chunk %d has empty ID, want generated ID", i)
		}
	}
	if got[0].Embedding[0] != 1 || got[1].Embedding[1] != 1 {
		t.Errorf("embeddings did not round-trip: %v, %v", got[0].Embedding, got[1].Embedding)
	}
}

func TestScanFiltersByModel(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	a := testChunk("a.txt", "old", []float32{1})
	b := testChunk("a.txt", "new", []float32{1})
	b.EmbeddingModel = "other-model"
	if err := s.Insert(ctx, "documents_text", []rag.Chunk{a, b}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.Scan(ctx, "documents_text", "other-model")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 || got[0].Content != "new" {
		t.Fatalf("Scan with model filter returned %+v, want single %q chunk", got, "new")
	}
}

func TestScanIsolatesPartitions(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, "documents_pdf", []rag.Chunk{testChunk("x.pdf", "pdf text", []float32{1})}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.Scan(ctx, "documents_text", "test-model")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Scan of empty partition returned %d chunks, want 0", len(got))
	}
}

func TestCountAndDeleteAll(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	chunks := []rag.Chunk{
		testChunk("a.txt", "one", []float32{1}),
		testChunk("a.txt", "two", []float32{2}),
	}
	if err := s.Insert(ctx, "documents_text", chunks); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	n, err := s.Count(ctx, "documents_text")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}

	removed, err := s.DeleteAll(ctx, "documents_text")
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if removed != 2 {
		t.Errorf("DeleteAll removed %d, want 2", removed)
	}

	n, err = s.Count(ctx, "documents_text")
	if err != nil {
		t.Fatalf("Count after delete: %v", err)
	}
	if n != 0 {
		t.Errorf("Count after DeleteAll = %d, want 0", n)
	}
}

func TestCreatePartitionIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.CreatePartition(ctx, "documents_notes"); err != nil {
			t.Fatalf("CreatePartition call %d: %v", i+1, err)
		}
	}

	names, err := s.ListPartitions(ctx)
	if err != nil {
		t.Fatalf("ListPartitions: %v", err)
	}
	if len(names) != 1 || names[0] != "documents_notes" {
		t.Fatalf("ListPartitions = %v, want [documents_notes]", names)
	}
}

func TestDropPartitionRemovesChunks(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreatePartition(ctx, "documents_notes"); err != nil {
		t.Fatalf("CreatePartition: %v", err)
	}
	if err := s.Insert(ctx, "documents_notes", []rag.Chunk{testChunk("n.txt", "note", []float32{1})}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := s.DropPartition(ctx, "documents_notes"); err != nil {
		t.Fatalf("DropPartition: %v", err)
	}

	names, err := s.ListPartitions(ctx)
	if err != nil {
		t.Fatalf("ListPartitions: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("ListPartitions after drop = %v, want empty", names)
	}
	n, err := s.Count(ctx, "documents_notes")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("Count after drop = %d, want 0", n)
	}
}

func TestListPartitionsOrder(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"documents_pdf", "documents_text", "documents_code"} {
		if err := s.CreatePartition(ctx, name); err != nil {
			t.Fatalf("CreatePartition(%q): %v", name, err)
		}
	}

	names, err := s.ListPartitions(ctx)
	if err != nil {
		t.Fatalf("ListPartitions: %v", err)
	}
	want := []string{"documents_pdf", "documents_text", "documents_code"}
	if len(names) != len(want) {
		t.Fatalf("ListPartitions = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListPartitions[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestVectorCodecRoundTrip(t *testing.T) {
	t.Parallel()
	vecs := [][]float32{
		nil,
		{},
		{0},
		{1.5, -2.25, 3.125},
		{-0.000123, 98765.4},
	}
	for _, v := range vecs {
		got := decodeVector(encodeVector(v))
		if len(got) != len(v) {
			t.Fatalf("round trip of %v changed length: %v", v, got)
		}
		for i := range v {
			if got[i] != v[i] {
				t.Errorf("round trip of %v: index %d = %v", v, i, got[i])
			}
		}
	}
}
