package query

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/ranker"
)

// KeyFunc returns the distinct key of a document, or false when the
// document has none.
type KeyFunc func(rank.DocumentID) (string, bool)

// DistinctMap counts documents per distinct key and accepts at most limit of
// each. Documents without a key are always accepted.
type DistinctMap struct {
	inner map[string]int
	limit int
	len   int
}

func NewDistinctMap(limit int) *DistinctMap {
	return &DistinctMap{inner: make(map[string]int), limit: limit}
}

// Register records a document with key and reports whether it is kept.
func (d *DistinctMap) Register(key string) bool {
	seen := d.inner[key]
	if seen >= d.limit {
		return false
	}
	d.inner[key] = seen + 1
	d.len++
	return true
}

// RegisterWithoutKey records a key-less document. It is always kept.
func (d *DistinctMap) RegisterWithoutKey() bool {
	d.len++
	return true
}

// Len returns the number of documents kept so far.
func (d *DistinctMap) Len() int {
	return d.len
}

// Distinct walks ranked docs keeping at most size per key, then returns the
// kept documents in [offset, offset+limit) and how many were dropped while
// filling that page. size < 1 is treated as 1.
func Distinct(docs []*rank.Document, keyFn KeyFunc, size, offset, limit int) ([]*rank.Document, int) {
	seen := NewDistinctMap(max(size, 1))
	page := make([]*rank.Document, 0, max(limit, 0))
	dropped := 0
	for _, d := range docs {
		if len(page) >= limit {
			break
		}
		var kept bool
		if key, ok := keyFn(d.ID); ok {
			kept = seen.Register(key)
		} else {
			kept = seen.RegisterWithoutKey()
		}
		if !kept {
			dropped++
			continue
		}
		if seen.Len() > offset {
			page = append(page, d)
		}
	}
	return page, dropped
}

// DistinctBuilder ranks like its Builder but collapses documents sharing a
// distinct key.
type DistinctBuilder struct {
	inner *Builder
	key   KeyFunc
	size  int
}

func NewDistinct(inner *Builder, key KeyFunc, size int) *DistinctBuilder {
	return &DistinctBuilder{inner: inner, key: key, size: max(size, 1)}
}

// Query returns the distinct page [offset, offset+limit) and the candidate
// count before collapsing. Candidates are bucket-sorted in growing windows
// until the page is full or every candidate is ordered.
func (d *DistinctBuilder) Query(ctx context.Context, terms []parser.Term, offset, limit int) ([]*rank.Document, int, error) {
	if offset < 0 || limit <= 0 {
		return nil, 0, fmt.Errorf("invalid page offset=%d limit=%d", offset, limit)
	}
	docs, err := d.inner.Candidates(ctx, terms)
	if err != nil {
		return nil, 0, err
	}
	window := offset + limit
	for {
		window = min(window, len(docs))
		ranker.BucketSort(docs, d.inner.criteria, window)
		page, dropped := Distinct(docs[:window], d.key, d.size, offset, limit)
		if len(page) == limit || window == len(docs) {
			if d.inner.metrics != nil {
				d.inner.metrics.DistinctDroppedTotal.Add(float64(dropped))
			}
			return page, len(docs), nil
		}
		window *= 2
	}
}
