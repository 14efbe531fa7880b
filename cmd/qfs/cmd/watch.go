package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/qfs-dev/qfs/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <collection>",
		Short: "Watch a collection's root directory and re-index on change",
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

			w, err := watch.New(col.RootPath, debounce)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			go w.Run(ctx)

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s, ctrl-c to stop\n", col.RootPath)
			for range w.Changes() {
				result, err := a.indexer.Run(ctx, *col)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "reindex failed: %v\n", err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run=%s upserted=%d deactivated=%d\n",
					result.RunID, result.Upserted, result.Deactivated)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "coalescing window for filesystem events")
	return cmd
}
