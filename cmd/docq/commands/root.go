// Package commands defines all Cobra CLI commands for the docq binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/docqhq/docq-go/internal/audit"
	"github.com/docqhq/docq-go/internal/config"
	"github.com/docqhq/docq-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docq",
		Short: "docq — ask questions about your own documents, locally",
		Long: `docq is a local-first retrieval service for your personal documents.

Upload PDFs, Office files, code, and plain text; docq chunks and embeds them
into per-type collections, then answers natural language questions grounded
in the most relevant passages via a local Ollama model.

The embedding backend is selected via the EMBEDDING_PROVIDER environment
variable or a YAML config file (~/.docq/config.yaml).
See 'docq --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docq/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewCollectionsCmd(),
		NewVersionCmd(),
	)

	return root
}
