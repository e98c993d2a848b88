// Package ranker orders candidate documents with a criteria chain.
package ranker

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/criterion"
)

type bucket struct {
	start, end int
}

// BucketSort orders docs in place so that docs[:end] is exactly the prefix a
// full sort by criteria would produce. Each criterion only sorts and splits
// the buckets of documents its predecessors found equal, and buckets lying
// entirely past end are left untouched. An end outside (0, len(docs)] means
// the whole slice.
func BucketSort(docs []*rank.Document, criteria criterion.Criteria, end int) {
	if end <= 0 || end > len(docs) {
		end = len(docs)
	}
	if len(docs) < 2 {
		return
	}
	buckets := []bucket{{0, len(docs)}}
	for _, c := range criteria {
		next := make([]bucket, 0, len(buckets))
		for _, b := range buckets {
			if b.start >= end {
				break
			}
			slices.SortFunc(docs[b.start:b.end], c.Evaluate)
			start := b.start
			for i := b.start + 1; i <= b.end; i++ {
				if i < b.end && c.Evaluate(docs[i-1], docs[i]) == 0 {
					continue
				}
				if i-start > 1 && start < end {
					next = append(next, bucket{start, i})
				}
				start = i
			}
		}
		if len(next) == 0 {
			return
		}
		buckets = next
	}
}

// Sort fully orders docs by criteria.
func Sort(docs []*rank.Document, criteria criterion.Criteria) {
	BucketSort(docs, criteria, len(docs))
}
