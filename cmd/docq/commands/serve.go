package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/embedder"
	"github.com/docqhq/docq-go/internal/generator"
	"github.com/docqhq/docq-go/internal/logging"
	"github.com/docqhq/docq-go/internal/server"
)

// NewServeCmd constructs the `docq serve` command, which starts the HTTP
// server exposing the upload, chat, and collection management API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docq HTTP server",
		Long: `Start the docq HTTP server on localhost.

The server exposes a REST API for uploading documents, asking questions
against the indexed corpus, and managing collections. Generation and
embeddings run against a local Ollama server by default.

Examples:
  docq serve
  docq serve --port 9090
  STORE_BACKEND=qdrant docq serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Flags win over env; env (including YAML-applied values) wins
			// over the built-in defaults.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("SERVER_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("SERVER_PORT", port)
			}

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("embedding_provider", getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")),
				slog.String("store_backend", getEnvOrDefault("STORE_BACKEND", "sqlite")),
			)

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			st, err := openStore(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = st.Close() }()

			router := collection.NewRouter(st, log)
			if err := router.EnsureDefaults(ctx); err != nil {
				return fmt.Errorf("serve: failed to create default collections: %w", err)
			}

			pipeline, err := buildPipeline(emb, st, router, log)
			if err != nil {
				return fmt.Errorf("serve: failed to create pipeline: %w", err)
			}

			ollamaHost := getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
			gen := generator.NewOllama(&generator.OllamaConfig{
				Host:         ollamaHost,
				DefaultModel: getEnvOrDefault("OLLAMA_MODEL", "llama3.2"),
			})

			engine, err := buildEngine(emb, gen, st, router, log)
			if err != nil {
				return fmt.Errorf("serve: failed to create query engine: %w", err)
			}

			srv, err := server.New(&server.Deps{
				Engine:      engine,
				Pipeline:    pipeline,
				Models:      gen,
				Collections: router,
			}, &server.Config{
				Host:       host,
				Port:       port,
				Logger:     log,
				UploadsDir: os.Getenv("DOCQ_UPLOADS_DIR"),
				APIKey:     os.Getenv("DOCQ_API_KEY"),
				Pingers: []server.Pinger{
					server.NewOllamaPinger(ollamaHost),
					server.NewStorePinger(st),
				},
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
