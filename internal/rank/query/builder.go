// Package query turns query terms into ranked documents. A Builder asks a
// MatchSource for every occurrence of the terms, groups them into
// rank.Documents and orders the candidates with a criteria chain.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/criterion"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/metrics"
)

// FilterFunc reports whether a candidate document may appear in results.
type FilterFunc func(rank.DocumentID) bool

// MatchSource resolves query terms to the occurrences found per document.
// The returned slices need not be sorted.
type MatchSource interface {
	Matches(ctx context.Context, terms []parser.Term) (map[rank.DocumentID][]rank.Match, error)
}

// Builder ranks the documents a MatchSource returns. The With methods return
// modified copies so a configured Builder can be shared.
type Builder struct {
	source        MatchSource
	criteria      criterion.Criteria
	filter        FilterFunc
	requireAll    bool
	maxCandidates int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// New returns a Builder ordering candidates by criteria. An empty chain
// means criterion.Default.
func New(source MatchSource, criteria criterion.Criteria) *Builder {
	if len(criteria) == 0 {
		criteria = criterion.Default()
	}
	return &Builder{
		source:   source,
		criteria: criteria,
		logger:   slog.Default().With("component", "query-builder"),
	}
}

func (b *Builder) WithFilter(filter FilterFunc) *Builder {
	nb := *b
	nb.filter = filter
	return &nb
}

// WithRequireAll keeps only documents matching every query index.
func (b *Builder) WithRequireAll(requireAll bool) *Builder {
	nb := *b
	nb.requireAll = requireAll
	return &nb
}

// WithMaxCandidates bounds how many documents are ranked. Documents past the
// bound, in identifier order, are ignored. Zero means unbounded.
func (b *Builder) WithMaxCandidates(n int) *Builder {
	nb := *b
	nb.maxCandidates = n
	return &nb
}

func (b *Builder) WithMetrics(m *metrics.Metrics) *Builder {
	nb := *b
	nb.metrics = m
	return &nb
}

func (b *Builder) Criteria() criterion.Criteria {
	return b.criteria
}

// Rank returns the candidates ordered so that the first end documents are in
// final order, together with the candidate count. The returned slice holds
// at most end documents; end <= 0 returns every candidate fully sorted.
func (b *Builder) Rank(ctx context.Context, terms []parser.Term, end int) ([]*rank.Document, int, error) {
	docs, err := b.Candidates(ctx, terms)
	if err != nil {
		return nil, 0, err
	}
	total := len(docs)
	if end <= 0 || end > total {
		end = total
	}
	start := time.Now()
	ranker.BucketSort(docs, b.criteria, end)
	b.observe("sort", start)
	return docs[:end], total, nil
}

// Query returns the documents ranked in [offset, offset+limit).
func (b *Builder) Query(ctx context.Context, terms []parser.Term, offset, limit int) ([]*rank.Document, int, error) {
	if offset < 0 || limit <= 0 {
		return nil, 0, fmt.Errorf("invalid page offset=%d limit=%d", offset, limit)
	}
	docs, total, err := b.Rank(ctx, terms, offset+limit)
	if err != nil {
		return nil, 0, err
	}
	return Page(docs, offset, limit), total, nil
}

// Candidates fetches the matches for terms and builds one unsorted document
// per matching identifier that passes the filter.
func (b *Builder) Candidates(ctx context.Context, terms []parser.Term) ([]*rank.Document, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	start := time.Now()
	matches, err := b.source.Matches(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("fetching matches: %w", err)
	}

	ids := make([]rank.DocumentID, 0, len(matches))
	for id := range matches {
		if b.filter != nil && !b.filter(id) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	if b.maxCandidates > 0 && len(ids) > b.maxCandidates {
		b.logger.Warn("candidate limit reached, ignoring the rest",
			"candidates", len(ids),
			"limit", b.maxCandidates,
		)
		ids = ids[:b.maxCandidates]
	}

	docs := make([]*rank.Document, len(ids))
	workers := min(runtime.GOMAXPROCS(0), max(1, len(ids)/256))
	chunk := (len(ids) + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(ids); lo += chunk {
		hi := min(lo+chunk, len(ids))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				d := rank.FromUnsortedMatches(ids[i], matches[ids[i]])
				docs[i] = &d
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building candidates: %w", err)
	}

	if b.requireAll {
		want := distinctIndices(terms)
		kept := docs[:0]
		for _, d := range docs {
			if d.Matches.GroupCount() == want {
				kept = append(kept, d)
			}
		}
		clear(docs[len(kept):])
		docs = kept
	}

	if b.metrics != nil {
		b.metrics.RankingCandidates.Observe(float64(len(docs)))
		for _, d := range docs {
			b.metrics.RankingGroupsPerDocument.Observe(float64(d.Matches.GroupCount()))
		}
	}
	b.observe("build", start)
	b.logger.Debug("candidates built",
		"terms", len(terms),
		"matched", len(matches),
		"candidates", len(docs),
		"duration", time.Since(start),
	)
	return docs, nil
}

func (b *Builder) observe(phase string, start time.Time) {
	if b.metrics != nil {
		b.metrics.RankingDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}

func distinctIndices(terms []parser.Term) int {
	seen := make(map[uint32]struct{}, len(terms))
	for _, t := range terms {
		seen[t.Index] = struct{}{}
	}
	return len(seen)
}

// Page returns items[offset:offset+limit], clamped to the slice.
func Page[T any](items []T, offset, limit int) []T {
	offset = max(offset, 0)
	if offset >= len(items) || limit <= 0 {
		return items[:0:0]
	}
	return items[offset:min(offset+limit, len(items))]
}
