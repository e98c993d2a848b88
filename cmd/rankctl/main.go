// Command rankctl indexes JSON-lines documents into a local shard directory
// and runs ranked queries against it without Kafka or Redis.
//
// Usage:
//
//	rankctl index docs.jsonl --data-dir data/index
//	rankctl search "ranking rules" --limit 5 --distinct
//	rankctl groups "ranking rules" doc-1
//	rankctl bench --url http://localhost:8080 -c 20 -d 1m
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
