package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qfs-dev/qfs/internal/store"
)

func newCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage indexed collections",
	}
	cmd.AddCommand(newCollectionAddCmd())
	cmd.AddCommand(newCollectionRemoveCmd())
	cmd.AddCommand(newCollectionListCmd())
	return cmd
}

func newCollectionAddCmd() *cobra.Command {
	var patterns, exclude, context string
	var embeddingsEnabled bool
	cmd := &cobra.Command{
		Use:   "add <name> <root-path>",
		Short: "Register a collection root directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			globs := splitCSV(patterns)
			if len(globs) == 0 {
				globs = []string{"**/*"}
			}

			opts := store.CollectionOptions{
				ExcludePatterns:   splitCSV(exclude),
				Context:           context,
				EmbeddingsEnabled: embeddingsEnabled,
			}
			if err := a.store.AddCollection(cmd.Context(), args[0], args[1], globs, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added collection %q rooted at %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&patterns, "patterns", "**/*", "comma-separated glob patterns to scan")
	cmd.Flags().StringVar(&exclude, "exclude", "", "comma-separated glob patterns to skip")
	cmd.Flags().StringVar(&context, "context", "", "free-text description stored with this collection")
	cmd.Flags().BoolVar(&embeddingsEnabled, "embeddings", true, "generate vector embeddings for this collection")
	return cmd
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newCollectionRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Deactivate a collection's documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.RemoveCollection(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed collection %q\n", args[0])
			return nil
		},
	}
}

func newCollectionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			cols, err := a.store.ListCollections(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cols {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tembeddings=%t\n",
					c.Name, c.RootPath, strings.Join(c.Patterns, ","), c.EmbeddingsEnabled)
			}
			return nil
		},
	}
}
