package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	var fromLine, maxLines int
	var metaOnly bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <path-or-docid>",
		Short: "Fetch a document's content by path, docid, or suffix match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.engine.Get(cmd.Context(), args[0], fromLine, maxLines, !metaOnly)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s (%s)\n", result.Collection, result.Path, result.Title)
			if !metaOnly {
				fmt.Fprintln(cmd.OutOrStdout(), result.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&fromLine, "from-line", 0, "1-indexed line to start from (0 = path suffix or start)")
	cmd.Flags().IntVar(&maxLines, "max-lines", -1, "maximum lines to return (-1 = unbounded, 0 = none)")
	cmd.Flags().BoolVar(&metaOnly, "meta-only", false, "omit content, report only metadata")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print result as JSON")
	return cmd
}

func newMultiGetCmd() *cobra.Command {
	var maxBytes, maxLines int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "multi-get <pattern>",
		Short: "Fetch multiple documents by glob, comma-list, docid, or path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.engine.MultiGet(cmd.Context(), args[0], maxBytes, maxLines)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			for _, it := range items {
				if it.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/%s  SKIPPED: %s\n", it.Collection, it.Path, it.SkipReason)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "=== %s/%s ===\n%s\n", it.Collection, it.Path, it.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxBytes, "max-bytes", 0, "per-document size cap (0 = engine default)")
	cmd.Flags().IntVar(&maxLines, "max-lines", -1, "per-document line cap (-1 = unbounded, 0 = none)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
