package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/generator"
	"github.com/docqhq/docq-go/internal/rag"
	"github.com/docqhq/docq-go/internal/store"
)

// fakeEmbedder maps known texts to fixed vectors; unknown texts get a
// neutral vector.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

// fakeGenerator records the prompt it was given and echoes a canned answer.
type fakeGenerator struct {
	lastModel  string
	lastPrompt string
	answer     string
	err        error
}

func (f *fakeGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	f.lastModel = model
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) ListModels(context.Context) ([]generator.ModelInfo, error) {
	return []generator.ModelInfo{{Name: "fake"}}, nil
}

func newTestEngine(t *testing.T, emb *fakeEmbedder, gen *fakeGenerator) (*Engine, store.Store) {
	t.Helper()
	s, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	router := collection.NewRouter(s, nil)
	if err := router.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}

	eng, err := NewEngine(&Config{
		Embedder:          emb,
		Ranker:            rag.NewLinearRanker(nil),
		Generator:         gen,
		Store:             s,
		Router:            router,
		DefaultEmbedModel: "fake-embed",
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, s
}

func seed(t *testing.T, s store.Store, partition string, chunks ...rag.Chunk) {
	t.Helper()
	if err := s.Insert(context.Background(), partition, chunks); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func chunk(content string, vec []float32) rag.Chunk {
	return rag.Chunk{
		Filename:       "seed.txt",
		Content:        content,
		Embedding:      vec,
		EmbeddingModel: "fake-embed",
	}
}

func TestQueryRanksAcrossCollections(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"what is the project about": {1, 0, 0},
	}}
	gen := &fakeGenerator{answer: "the answer"}
	eng, s := newTestEngine(t, emb, gen)
	ctx := context.Background()

	seed(t, s, "documents_text",
		chunk("very relevant", []float32{1, 0, 0}),
		chunk("irrelevant", []float32{0, 1, 0}),
	)
	seed(t, s, "documents_pdf",
		chunk("somewhat relevant", []float32{0.7, 0.7, 0}),
	)

	resp, err := eng.Query(ctx, &Request{Query: "what is the project about"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Answer != "the answer" {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Context) != 3 {
		t.Fatalf("Context has %d entries, want 3", len(resp.Context))
	}
	if resp.Context[0] != "very relevant" {
		t.Errorf("Context[0] = %q, want the closest chunk first", resp.Context[0])
	}
	if resp.Context[1] != "somewhat relevant" {
		t.Errorf("Context[1] = %q", resp.Context[1])
	}
}

func TestQueryPromptShape(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{answer: "ok"}
	eng, s := newTestEngine(t, emb, gen)

	seed(t, s, "documents_text", chunk("the context", []float32{1, 0, 0}))

	if _, err := eng.Query(context.Background(), &Request{Query: "q", Model: "llama3.1:8b"}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if gen.lastModel != "llama3.1:8b" {
		t.Errorf("generator model = %q", gen.lastModel)
	}
	if !strings.Contains(gen.lastPrompt, "Context:\nthe context") {
		t.Errorf("prompt missing context section: %q", gen.lastPrompt)
	}
	if !strings.Contains(gen.lastPrompt, "Question: q") {
		t.Errorf("prompt missing question: %q", gen.lastPrompt)
	}
	if !strings.HasSuffix(gen.lastPrompt, "Answer:") {
		t.Errorf("prompt does not end with Answer: %q", gen.lastPrompt)
	}
}

func TestQueryCollectionFilter(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{answer: "ok"}
	eng, s := newTestEngine(t, emb, gen)
	ctx := context.Background()

	seed(t, s, "documents_text", chunk("from text", []float32{1, 0, 0}))
	seed(t, s, "documents_pdf", chunk("from pdf", []float32{1, 0, 0}))

	resp, err := eng.Query(ctx, &Request{Query: "q", CollectionFilter: []string{"pdf"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Context) != 1 || resp.Context[0] != "from pdf" {
		t.Errorf("Context = %v, want only the pdf chunk", resp.Context)
	}

	// Unknown filter entries narrow to nothing rather than erroring.
	resp, err = eng.Query(ctx, &Request{Query: "q", CollectionFilter: []string{"ghost"}})
	if err != nil {
		t.Fatalf("Query with unknown filter: %v", err)
	}
	if len(resp.Context) != 0 {
		t.Errorf("Context = %v, want empty", resp.Context)
	}
}

func TestQueryNoMatchesStillAnswers(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{}
	gen := &fakeGenerator{answer: "no context answer"}
	eng, _ := newTestEngine(t, emb, gen)

	resp, err := eng.Query(context.Background(), &Request{Query: "anything"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Answer != "no context answer" {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Context) != 0 {
		t.Errorf("Context = %v, want empty", resp.Context)
	}
	if !strings.Contains(gen.lastPrompt, "Question: anything") {
		t.Errorf("prompt not assembled for empty context: %q", gen.lastPrompt)
	}
}

func TestQueryEmbeddingModelFilter(t *testing.T) {
	t.Parallel()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	gen := &fakeGenerator{answer: "ok"}
	eng, s := newTestEngine(t, emb, gen)
	ctx := context.Background()

	other := chunk("indexed with another model", []float32{1, 0, 0})
	other.EmbeddingModel = "other-model"
	seed(t, s, "documents_text", chunk("default model chunk", []float32{1, 0, 0}), other)

	resp, err := eng.Query(ctx, &Request{Query: "q"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Context) != 1 || resp.Context[0] != "default model chunk" {
		t.Errorf("Context = %v, want only the default-model chunk", resp.Context)
	}

	resp, err = eng.Query(ctx, &Request{Query: "q", EmbeddingModel: "other-model"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Context) != 1 || resp.Context[0] != "indexed with another model" {
		t.Errorf("Context = %v, want only the other-model chunk", resp.Context)
	}
}

func TestQueryEmptyQuestion(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t, &fakeEmbedder{}, &fakeGenerator{})

	for _, q := range []string{"", "   "} {
		if _, err := eng.Query(context.Background(), &Request{Query: q}); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Query(%q): err = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestQueryGeneratorFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("backend down")
	eng, _ := newTestEngine(t, &fakeEmbedder{}, &fakeGenerator{err: boom})

	if _, err := eng.Query(context.Background(), &Request{Query: "q"}); !errors.Is(err, boom) {
		t.Errorf("Query: err = %v, want wrapped generator error", err)
	}
}
