package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/criterion"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
)

func newSearchCmd(g *globalFlags) *cobra.Command {
	var (
		opts     executor.Options
		asJSON   bool
		criteria []string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a ranked query against the local index",
		Long: `Parses the query (AND by default, OR and NOT keywords supported), ranks
every shard with the criteria chain and prints the requested page. The last
word is matched as a prefix unless the query ends with a space.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, router, err := g.load()
			if err != nil {
				return err
			}
			defer router.Close()
			if len(criteria) == 0 {
				criteria = cfg.Ranking.Criteria
			}
			chain, err := criterion.ByName(criteria)
			if err != nil {
				return err
			}
			exec := executor.NewSharded(router.GetAllEngines(), executor.Config{
				Criteria:      chain,
				MaxCandidates: cfg.Ranking.MaxCandidates,
				DistinctSize:  cfg.Ranking.DistinctSize,
			}, cfg.Search.TimeoutPerShard)

			result, err := exec.Execute(context.Background(), parser.Parse(args[0]), opts)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of results to skip")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().BoolVar(&opts.Distinct, "distinct", false, "collapse results sharing a title")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	cmd.Flags().StringSliceVar(&criteria, "criteria", nil, "criterion names in evaluation order")
	return cmd
}

func printResult(cmd *cobra.Command, result *executor.SearchResult) {
	if len(result.Results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results found.")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d matching documents\n\n", result.TotalHits)
	for i, hit := range result.Results {
		title := hit.Title
		if title == "" {
			title = hit.DocID
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s (%s)\n", result.Offset+i+1, title, hit.DocID)
		words := make([]string, 0, len(hit.Matches))
		for _, m := range hit.Matches {
			w := fmt.Sprintf("%s@%s:%d", m.Term, m.Attribute, m.WordIndex)
			if m.Typos > 0 {
				w += fmt.Sprintf(" ~%d", m.Typos)
			}
			words = append(words, w)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", strings.Join(words, ", "))
	}
}
