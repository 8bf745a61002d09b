package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docqhq/docq-go/internal/collection"
	"github.com/docqhq/docq-go/internal/logging"
)

// NewCollectionsCmd constructs the `docq collections` command group for
// managing the collection namespace directly from the CLI.
func NewCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Manage document collections",
		Long: `Inspect and manage docq's document collections.

Collections partition the chunk store by document type. The five default
collections (pdf, text, code, office, other) always exist and cannot be
deleted; custom collections can be created and removed freely.`,
	}

	cmd.AddCommand(
		newCollectionsListCmd(),
		newCollectionsCreateCmd(),
		newCollectionsDeleteCmd(),
		newCollectionsClearCmd(),
	)

	return cmd
}

// withRouter opens the store, builds a router with defaults ensured, runs fn,
// and closes the store. Shared by all collections subcommands.
func withRouter(cmd *cobra.Command, fn func(router *collection.Router) error) error {
	ctx := cmd.Context()
	log := logging.New()

	st, err := openStore(log)
	if err != nil {
		return fmt.Errorf("collections: %w", err)
	}
	defer func() { _ = st.Close() }()

	router := collection.NewRouter(st, log)
	if err := router.EnsureDefaults(logging.WithLogger(ctx, log)); err != nil {
		return fmt.Errorf("collections: failed to create default collections: %w", err)
	}

	return fn(router)
}

func newCollectionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all collections with chunk counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRouter(cmd, func(router *collection.Router) error {
				infos, err := router.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				for _, info := range infos {
					marker := ""
					if info.IsDefault {
						marker = " (default)"
					}
					fmt.Printf("%-20s %6d chunks%s\n", info.Name, info.Count, marker)
				}
				return nil
			})
		},
	}
}

func newCollectionsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a custom collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRouter(cmd, func(router *collection.Router) error {
				name, err := router.Create(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				fmt.Printf("created collection %q\n", name)
				return nil
			})
		},
	}
}

func newCollectionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a custom collection and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRouter(cmd, func(router *collection.Router) error {
				if err := router.Delete(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				fmt.Printf("deleted collection %q\n", args[0])
				return nil
			})
		},
	}
}

func newCollectionsClearCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [name]",
		Short: "Remove all chunks from a collection (or all collections with --all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("collections: a collection name or --all is required")
			}
			return withRouter(cmd, func(router *collection.Router) error {
				if all {
					removed, err := router.ClearAll(cmd.Context())
					if err != nil {
						return fmt.Errorf("collections: %w", err)
					}
					fmt.Printf("removed %d chunks from all collections\n", removed)
					return nil
				}
				removed, err := router.Clear(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("collections: %w", err)
				}
				fmt.Printf("removed %d chunks from %q\n", removed, args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear every collection")

	return cmd
}
