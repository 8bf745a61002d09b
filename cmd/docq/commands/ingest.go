package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/embedder"
	"github.com/docqhq/docq-go/internal/extract"
	"github.com/docqhq/docq-go/internal/logging"
)

// NewIngestCmd constructs the `docq ingest` command, which chunks and embeds
// local files into the chunk store without going through the HTTP API.
func NewIngestCmd() *cobra.Command {
	var targetCollection string
	var embeddingModel string

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest local documents into the chunk store",
		Long: `Extract, chunk, and embed local files into the chunk store.

Each file is routed to a collection by its extension (pdf, text, code,
office, other) unless --collection names an explicit target. Unknown
explicit targets fall back to extension routing.

Required environment variables:
  OLLAMA_HOST          Ollama server URL (default: http://localhost:11434)
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure (default: ollama)
  STORE_BACKEND        Chunk store: sqlite (default) or qdrant
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  docq ingest notes.md report.pdf
  docq ingest --collection contracts lease.pdf
  docq ingest --embedding-model nomic-embed-text main.go`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = st.Close() }()

			router := collection.NewRouter(st, log)
			if err := router.EnsureDefaults(ctx); err != nil {
				return fmt.Errorf("ingest: failed to create default collections: %w", err)
			}

			pipeline, err := buildPipeline(emb, st, router, log)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("ingest: failed to read %s: %w", path, err)
				}

				filename := filepath.Base(path)
				text, err := extract.Text(filename, data)
				if err != nil {
					return fmt.Errorf("ingest: failed to extract %s: %w", path, err)
				}

				result, err := pipeline.Ingest(ctx, filename, text, targetCollection, embeddingModel)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}

				log.Info("file ingested",
					slog.String("file", path),
					slog.String("collection", result.Collection),
					slog.Int("chunks", result.ChunksProcessed),
				)
				fmt.Printf("%s -> %s (%d chunks)\n", path, result.Collection, result.ChunksProcessed)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&targetCollection, "collection", "c", "", "Target collection (default: routed by file extension)")
	cmd.Flags().StringVarP(&embeddingModel, "embedding-model", "m", "", "Embedding model to record on chunks (default: provider default)")

	return cmd
}
