package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	var withEmbeddings bool
	cmd := &cobra.Command{
		Use:   "index <collection>",
		Short: "Scan a collection's root directory and update the document store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			col, err := a.store.GetCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result, err := a.indexer.Run(cmd.Context(), *col)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run=%s scanned=%d upserted=%d unchanged=%d deactivated=%d skipped=%d\n",
				result.RunID, result.Scanned, result.Upserted, result.Unchanged, result.Deactivated, result.Skipped)

			if withEmbeddings {
				n, err := a.indexer.Embed(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "embedded %d chunks\n", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withEmbeddings, "embed", false, "also generate embeddings for the collection")
	return cmd
}
