package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qfs-dev/qfs/internal/engine"
)

type searchFlags struct {
	collection    string
	limit         int
	minScore      float64
	includeBinary bool
	asJSON        bool
}

func newSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run lexical BM25 search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.engine.Search(cmd.Context(), joinArgs(args), f.collection, f.limit, f.minScore, f.includeBinary)
			if err != nil {
				return err
			}
			return printResults(cmd, results, f.asJSON)
		},
	}
	bindSearchFlags(cmd, &f)
	return cmd
}

func newVSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "vsearch <query>",
		Short: "Run dense vector search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.engine.VSearch(cmd.Context(), joinArgs(args), f.collection, f.limit)
			if err != nil {
				return err
			}
			return printResults(cmd, results, f.asJSON)
		},
	}
	bindSearchFlags(cmd, &f)
	return cmd
}

func newQueryCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Run hybrid BM25+vector search fused by reciprocal rank fusion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.engine.Query(cmd.Context(), joinArgs(args), f.collection, f.limit)
			if err != nil {
				return err
			}
			return printResults(cmd, results, f.asJSON)
		},
	}
	bindSearchFlags(cmd, &f)
	return cmd
}

func bindSearchFlags(cmd *cobra.Command, f *searchFlags) {
	cmd.Flags().StringVarP(&f.collection, "collection", "c", "", "restrict search to a collection")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "maximum results (0 = engine default)")
	cmd.Flags().Float64Var(&f.minScore, "min-score", 0, "drop results below this normalized score")
	cmd.Flags().BoolVar(&f.includeBinary, "include-binary", false, "include binary content types in results")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print results as JSON")
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}

func printResults(cmd *cobra.Command, results []engine.SearchResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %.4f  %s/%s\n", r.Docid, r.Score, r.Collection, r.Path)
		if r.Snippet != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", r.Snippet)
		}
	}
	return nil
}
