package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/criterion"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/query"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/resilience"
)

// ShardResult is the ranked prefix one shard returned for a query window.
type ShardResult struct {
	ShardID int
	Docs    []*rank.Document
	Total   int
	Engine  *indexer.Engine
}

type ShardedExecutor struct {
	engines map[int]*indexer.Engine
	cfg     Config
	timeout time.Duration
	logger  *slog.Logger
}

// NewSharded creates an executor over engines. timeoutPerShard bounds each
// shard's ranking; zero disables the bound.
func NewSharded(engines map[int]*indexer.Engine, cfg Config, timeoutPerShard time.Duration) *ShardedExecutor {
	return &ShardedExecutor{
		engines: engines,
		cfg:     cfg,
		timeout: timeoutPerShard,
		logger:  slog.Default().With("component", "sharded-executor"),
	}
}

// Execute ranks every shard up to the requested window, merges the shard
// prefixes with the criteria chain and cuts the page. With distinct results
// the window doubles until the page is full or no shard has more candidates.
func (se *ShardedExecutor) Execute(ctx context.Context, plan *parser.QueryPlan, opts Options) (*SearchResult, error) {
	if opts.Offset < 0 || opts.Limit <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid page offset=%d limit=%d", opts.Offset, opts.Limit)
	}
	result := emptyResult(plan, opts)
	if len(plan.Terms) == 0 {
		return result, nil
	}

	window := opts.Offset + opts.Limit
	for {
		shardResults, err := se.fanOut(ctx, plan, window)
		if err != nil {
			return nil, fmt.Errorf("shard fan-out: %w", err)
		}
		lists := make([][]*rank.Document, len(shardResults))
		owner := make(map[rank.DocumentID]*indexer.Engine)
		total, more := 0, false
		for i, sr := range shardResults {
			lists[i] = sr.Docs
			total += sr.Total
			more = more || sr.Total > len(sr.Docs)
			for _, d := range sr.Docs {
				owner[d.ID] = sr.Engine
			}
		}
		lookup := func(docID string) (index.DocInfo, bool) {
			if engine, ok := owner[rank.DocumentID(docID)]; ok {
				return engine.DocInfo(docID)
			}
			return index.DocInfo{}, false
		}

		merged := merger.Merge(lists, se.criteria(), window)
		more = more || total > len(merged)
		var page []*rank.Document
		if opts.Distinct {
			var dropped int
			page, dropped = query.Distinct(merged, TitleKey(lookup), se.cfg.DistinctSize, opts.Offset, opts.Limit)
			if len(page) < opts.Limit && more {
				window *= 2
				continue
			}
			if se.cfg.Metrics != nil {
				se.cfg.Metrics.DistinctDroppedTotal.Add(float64(dropped))
			}
		} else {
			page = query.Page(merged, opts.Offset, opts.Limit)
		}

		for _, doc := range page {
			info, _ := lookup(string(doc.ID))
			result.Results = append(result.Results, NewHit(doc, plan, info))
		}
		for _, sr := range shardResults {
			termStats(sr.Engine, plan, result.TermStats)
		}
		result.TotalHits = total
		se.logger.Info("sharded query executed",
			"query", plan.RawQuery,
			"shards_queried", len(shardResults),
			"global_candidates", total,
			"window", window,
			"results", len(result.Results),
		)
		return result, nil
	}
}

func (se *ShardedExecutor) criteria() criterion.Criteria {
	if len(se.cfg.Criteria) == 0 {
		return criterion.Default()
	}
	return se.cfg.Criteria
}

func (se *ShardedExecutor) fanOut(ctx context.Context, plan *parser.QueryPlan, window int) ([]ShardResult, error) {
	type result struct {
		sr  ShardResult
		err error
	}
	ids := make([]int, 0, len(se.engines))
	for id := range se.engines {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	results := make([]result, len(ids))
	var wg sync.WaitGroup
	for i, shardID := range ids {
		wg.Add(1)
		go func(idx int, sid int, eng *indexer.Engine) {
			defer wg.Done()
			sr := ShardResult{ShardID: sid, Engine: eng}
			err := resilience.WithTimeout(ctx, se.timeout, fmt.Sprintf("shard-%d", sid), func(ctx context.Context) error {
				filter, err := excludeFilter(eng, plan.ExcludeTerms)
				if err != nil {
					return fmt.Errorf("resolving excluded terms: %w", err)
				}
				builder := query.New(eng, se.cfg.Criteria).
					WithFilter(filter).
					WithRequireAll(plan.Type == parser.QueryAND).
					WithMaxCandidates(se.cfg.MaxCandidates).
					WithMetrics(se.cfg.Metrics)
				docs, total, err := builder.Rank(ctx, plan.Terms, window)
				if err != nil {
					return err
				}
				sr.Docs, sr.Total = docs, total
				return nil
			})
			if err != nil {
				results[idx] = result{err: fmt.Errorf("shard %d: %w", sid, err)}
				return
			}
			results[idx] = result{sr: sr}
		}(i, shardID, se.engines[shardID])
	}
	wg.Wait()

	shardResults := make([]ShardResult, 0, len(ids))
	for _, r := range results {
		if r.err != nil {
			se.logger.Error("shard query failed", "error", r.err)
			continue
		}
		shardResults = append(shardResults, r.sr)
	}
	if len(shardResults) == 0 && len(se.engines) > 0 {
		return nil, fmt.Errorf("all %d shards failed: %w", len(se.engines), apperrors.ErrShardUnavailable)
	}
	return shardResults, nil
}
