// Package executor runs parsed queries against one index engine or a set of
// shard engines and renders ranked documents as search hits.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/criterion"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/query"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/metrics"
)

// Config carries the ranking settings shared by both executors.
type Config struct {
	Criteria      criterion.Criteria
	MaxCandidates int
	DistinctSize  int
	Metrics       *metrics.Metrics
}

type Executor struct {
	engine  *indexer.Engine
	builder *query.Builder
	cfg     Config
	logger  *slog.Logger
}

func New(engine *indexer.Engine, cfg Config) *Executor {
	return &Executor{
		engine: engine,
		builder: query.New(engine, cfg.Criteria).
			WithMaxCandidates(cfg.MaxCandidates).
			WithMetrics(cfg.Metrics),
		cfg:    cfg,
		logger: slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, opts Options) (*SearchResult, error) {
	if opts.Offset < 0 || opts.Limit <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid page offset=%d limit=%d", opts.Offset, opts.Limit)
	}
	result := emptyResult(plan, opts)
	if len(plan.Terms) == 0 {
		return result, nil
	}

	filter, err := excludeFilter(e.engine, plan.ExcludeTerms)
	if err != nil {
		return nil, fmt.Errorf("resolving excluded terms: %w", err)
	}
	builder := e.builder.
		WithFilter(filter).
		WithRequireAll(plan.Type == parser.QueryAND)

	var (
		page  []*rank.Document
		total int
	)
	if opts.Distinct {
		page, total, err = query.NewDistinct(builder, TitleKey(e.engine.DocInfo), e.cfg.DistinctSize).
			Query(ctx, plan.Terms, opts.Offset, opts.Limit)
	} else {
		page, total, err = builder.Query(ctx, plan.Terms, opts.Offset, opts.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("ranking query %q: %w", plan.RawQuery, err)
	}

	for _, doc := range page {
		info, _ := e.engine.DocInfo(string(doc.ID))
		result.Results = append(result.Results, NewHit(doc, plan, info))
	}
	result.TotalHits = total
	termStats(e.engine, plan, result.TermStats)

	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Words(),
		"candidates", total,
		"results", len(result.Results),
		"distinct", opts.Distinct,
	)
	return result, nil
}
