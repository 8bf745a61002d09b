package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/embedder"
	"github.com/docqhq/docq-go/internal/generator"
	"github.com/docqhq/docq-go/internal/logging"
	"github.com/docqhq/docq-go/internal/query"
)

// NewAskCmd constructs the `docq ask` command, which answers a single
// natural language question against the indexed documents.
func NewAskCmd() *cobra.Command {
	var model string
	var embeddingModel string
	var collections []string
	var showContext bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about your indexed documents",
		Long: `Ask a natural language question grounded in your indexed documents.

The question is embedded, the most similar chunks are retrieved from the
selected collections, and a local Ollama model answers using them as context.

Examples:
  docq ask "what does the lease say about early termination?"
  docq ask --collections pdf,text "summarise the quarterly report"
  docq ask --model llama3.2 --show-context "how is auth implemented?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = st.Close() }()

			router := collection.NewRouter(st, log)

			gen := generator.NewOllama(&generator.OllamaConfig{
				Host:         getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
				DefaultModel: getEnvOrDefault("OLLAMA_MODEL", "llama3.2"),
			})

			engine, err := buildEngine(emb, gen, st, router, log)
			if err != nil {
				return fmt.Errorf("ask: failed to create query engine: %w", err)
			}

			resp, err := engine.Query(ctx, &query.Request{
				Query:            args[0],
				Model:            model,
				EmbeddingModel:   embeddingModel,
				CollectionFilter: collections,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			if showContext {
				for i, c := range resp.Context {
					fmt.Printf("--- context %d ---\n%s\n\n", i+1, c)
				}
			}
			fmt.Println(resp.Answer)

			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Chat model to answer with (default: OLLAMA_MODEL)")
	cmd.Flags().StringVar(&embeddingModel, "embedding-model", "", "Embedding model to retrieve with (default: provider default)")
	cmd.Flags().StringSliceVarP(&collections, "collections", "c", nil, "Collections to search (default: all)")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "Print the retrieved context chunks before the answer")

	return cmd
}
