package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/consumer"
)

func newIndexCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index <file.jsonl>",
		Short: "Index documents from a JSON-lines file",
		Long: `Reads one {"document_id","title","body"} object per line, routes each
document to its shard and flushes every shard to a segment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, router, err := g.load()
			if err != nil {
				return err
			}
			defer router.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
			indexed, line := 0, 0
			for scanner.Scan() {
				line++
				if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
					continue
				}
				var doc consumer.DocumentEvent
				if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				if doc.DocumentID == "" {
					return fmt.Errorf("line %d: missing document_id", line)
				}
				engine, err := router.Route(router.ShardFor(doc.DocumentID))
				if err != nil {
					return err
				}
				if err := engine.IndexDocument(doc.DocumentID, doc.Title, doc.Body); err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				indexed++
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if err := router.FlushAll(); err != nil {
				return fmt.Errorf("flushing shards: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents into %d shards\n", indexed, router.NumShards())
			return nil
		},
	}
}
