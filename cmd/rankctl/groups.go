package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
)

func newGroupsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "groups <query> <doc-id>",
		Short: "Show the matches of one document grouped by query word",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, router, err := g.load()
			if err != nil {
				return err
			}
			defer router.Close()

			plan := parser.Parse(args[0])
			docID := args[1]
			engine, err := router.Route(router.ShardFor(docID))
			if err != nil {
				return err
			}
			found, err := engine.Matches(context.Background(), plan.Terms)
			if err != nil {
				return err
			}
			matches, ok := found[rank.DocumentID(docID)]
			if !ok {
				return fmt.Errorf("%w: %s does not match %q", apperrors.ErrDocumentNotFound, docID, args[0])
			}
			doc := rank.FromUnsortedMatches(rank.DocumentID(docID), matches)

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d matches in %d of %d query words\n",
				docID, doc.Matches.Len(), doc.Matches.GroupCount(), len(plan.Terms))
			for group := range doc.Matches.QueryIndexGroups().All() {
				qi := group[0].QueryIndex
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s\n", qi, plan.Terms[qi].Word)
				for _, m := range group {
					fmt.Fprintf(cmd.OutOrStdout(), "      %s word=%d char=%d+%d typos=%d exact=%t\n",
						executor.AttributeName(m.Attribute), m.WordIndex, m.CharIndex, m.CharLength, m.Distance, m.IsExact)
				}
			}
			return nil
		},
	}
}
