// Package merger combines per-shard ranked documents into one global top-K.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/criterion"
)

// Merge keeps the best limit documents across shardResults according to
// criteria and returns them best first. A limit <= 0 defaults to 10.
func Merge(shardResults [][]*rank.Document, criteria criterion.Criteria, limit int) []*rank.Document {
	if limit <= 0 {
		limit = 10
	}
	h := &docHeap{criteria: criteria}
	heap.Init(h)
	for _, results := range shardResults {
		for _, doc := range results {
			heap.Push(h, doc)
			if h.Len() > limit {
				heap.Pop(h)
			}
		}
	}
	result := make([]*rank.Document, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(*rank.Document)
	}
	return result
}

// docHeap keeps the worst retained document at the root.
type docHeap struct {
	docs     []*rank.Document
	criteria criterion.Criteria
}

func (h docHeap) Len() int { return len(h.docs) }

func (h docHeap) Less(i, j int) bool {
	return h.criteria.Compare(h.docs[i], h.docs[j]) > 0
}

func (h docHeap) Swap(i, j int) { h.docs[i], h.docs[j] = h.docs[j], h.docs[i] }

func (h *docHeap) Push(x interface{}) {
	h.docs = append(h.docs, x.(*rank.Document))
}

func (h *docHeap) Pop() interface{} {
	old := h.docs
	n := len(old)
	item := old[n-1]
	h.docs = old[:n-1]
	return item
}
