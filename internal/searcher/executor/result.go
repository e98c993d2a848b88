package executor

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/query"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
)

// Options selects the page of a search and whether results are collapsed by
// title.
type Options struct {
	Offset   int
	Limit    int
	Distinct bool
}

type SearchResult struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Offset    int            `json:"offset"`
	Limit     int            `json:"limit"`
	Distinct  bool           `json:"distinct,omitempty"`
	Results   []Hit          `json:"results"`
	TermStats map[string]int `json:"term_stats"`
}

// Hit is one ranked document. Matches holds the best occurrence of every
// query word the document contains, in query order.
type Hit struct {
	DocID        string     `json:"doc_id"`
	Title        string     `json:"title,omitempty"`
	MatchedTerms int        `json:"matched_terms"`
	Matches      []HitMatch `json:"matches"`
}

type HitMatch struct {
	Term       string `json:"term"`
	QueryIndex uint32 `json:"query_index"`
	Attribute  string `json:"attribute"`
	WordIndex  uint32 `json:"word_index"`
	CharIndex  uint32 `json:"char_index"`
	CharLength uint16 `json:"char_length"`
	Typos      uint8  `json:"typos"`
	Exact      bool   `json:"exact"`
}

func emptyResult(plan *parser.QueryPlan, opts Options) *SearchResult {
	return &SearchResult{
		Query:     plan.RawQuery,
		Offset:    opts.Offset,
		Limit:     opts.Limit,
		Distinct:  opts.Distinct,
		Results:   []Hit{},
		TermStats: map[string]int{},
	}
}

// AttributeName returns the document field an attribute number refers to.
func AttributeName(attr uint16) string {
	switch attr {
	case index.AttributeTitle:
		return "title"
	case index.AttributeBody:
		return "body"
	}
	return "unknown"
}

// NewHit renders a ranked document using the query terms of plan.
func NewHit(doc *rank.Document, plan *parser.QueryPlan, info index.DocInfo) Hit {
	hit := Hit{
		DocID:   string(doc.ID),
		Title:   info.Title,
		Matches: make([]HitMatch, 0, doc.Matches.GroupCount()),
	}
	for group := range doc.Matches.QueryIndexGroups().All() {
		best := group[0]
		term := ""
		if int(best.QueryIndex) < len(plan.Terms) {
			term = plan.Terms[best.QueryIndex].Word
		}
		hit.Matches = append(hit.Matches, HitMatch{
			Term:       term,
			QueryIndex: best.QueryIndex,
			Attribute:  AttributeName(best.Attribute),
			WordIndex:  best.WordIndex,
			CharIndex:  best.CharIndex,
			CharLength: best.CharLength,
			Typos:      best.Distance,
			Exact:      best.IsExact,
		})
	}
	hit.MatchedTerms = len(hit.Matches)
	return hit
}

// TitleKey collapses documents whose titles are equal ignoring case and
// spacing. Documents without a title have no key.
func TitleKey(lookup func(docID string) (index.DocInfo, bool)) query.KeyFunc {
	return func(id rank.DocumentID) (string, bool) {
		info, ok := lookup(string(id))
		if !ok {
			return "", false
		}
		key := strings.ToLower(strings.Join(strings.Fields(info.Title), " "))
		return key, key != ""
	}
}

// excludeFilter drops documents containing any of the excluded terms.
func excludeFilter(engine *indexer.Engine, terms []string) (query.FilterFunc, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	excluded := make(map[rank.DocumentID]struct{})
	for _, term := range terms {
		postings, err := engine.Search(term)
		if err != nil {
			return nil, err
		}
		for _, p := range postings {
			excluded[rank.DocumentID(p.DocID)] = struct{}{}
		}
	}
	return func(id rank.DocumentID) bool {
		_, drop := excluded[id]
		return !drop
	}, nil
}

// termStats counts the documents containing each query word as typed.
func termStats(engine *indexer.Engine, plan *parser.QueryPlan, into map[string]int) {
	for _, t := range plan.Terms {
		postings, err := engine.Search(t.Normalized)
		if err != nil {
			continue
		}
		into[t.Word] += len(postings)
	}
}
