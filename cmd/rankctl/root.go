package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/logger"
)

type globalFlags struct {
	configPath string
	dataDir    string
	shards     int
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "rankctl",
		Short:         "Index and query a local ranked search index",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), g.logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "index directory (overrides indexer.dataDir)")
	root.PersistentFlags().IntVar(&g.shards, "shards", 0, "number of shards (overrides indexer.numShards)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newIndexCmd(g), newSearchCmd(g), newGroupsCmd(g), newBenchCmd())
	return root
}

// load resolves the configuration and opens the shard router over it.
func (g *globalFlags) load() (*config.Config, *shard.Router, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.dataDir != "" {
		cfg.Indexer.DataDir = g.dataDir
	}
	if g.shards > 0 {
		cfg.Indexer.NumShards = g.shards
	}
	router, err := shard.NewRouter(cfg.Indexer, cfg.Indexer.NumShards, indexer.MatchOptionsFrom(cfg.Ranking))
	if err != nil {
		return nil, nil, err
	}
	return cfg, router, nil
}
