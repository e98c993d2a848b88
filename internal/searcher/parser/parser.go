// Package parser turns a raw query string into a QueryPlan: the ordered
// query terms that receive a query index, the excluded terms, and the
// boolean mode.
package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/tokenizer"
)

type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

func (t QueryType) String() string {
	if t == QueryOR {
		return "OR"
	}
	return "AND"
}

// Term is one positive query word. Index is its query index, assigned in
// order of appearance starting at zero.
type Term struct {
	Word       string `json:"word"`
	Normalized string `json:"normalized"`
	Index      uint32 `json:"index"`
	Prefix     bool   `json:"prefix,omitempty"`
}

type QueryPlan struct {
	Terms        []Term
	Type         QueryType
	ExcludeTerms []string
	RawQuery     string
}

// Words returns the normalized form of every positive term.
func (p *QueryPlan) Words() []string {
	words := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		words[i] = t.Normalized
	}
	return words
}

// Parse splits query on whitespace, honouring the AND, OR and NOT keywords.
// The last positive term is marked as a prefix unless the query ends with
// whitespace.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]Term, 0),
		ExcludeTerms: make([]string, 0),
		Type:         QueryAND,
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	words := strings.Fields(query)
	excludeNext := false
	lastWordTerms := -1
	for i := 0; i < len(words); i++ {
		switch strings.ToUpper(words[i]) {
		case "AND":
			plan.Type = QueryAND
			continue
		case "OR":
			plan.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		tokens := tokenizer.Tokenize(words[i])
		if len(tokens) == 0 {
			continue
		}
		if excludeNext {
			for _, tok := range tokens {
				plan.ExcludeTerms = append(plan.ExcludeTerms, tok.Term)
			}
			excludeNext = false
			continue
		}
		for _, tok := range tokens {
			plan.Terms = append(plan.Terms, Term{
				Word:       strings.ToLower(words[i][tok.Offset : tok.Offset+tok.Length]),
				Normalized: tok.Term,
				Index:      uint32(len(plan.Terms)),
			})
		}
		if i == len(words)-1 {
			lastWordTerms = len(plan.Terms) - 1
		}
	}
	last, _ := utf8.DecodeLastRuneInString(query)
	if lastWordTerms >= 0 && !unicode.IsSpace(last) {
		plan.Terms[lastWordTerms].Prefix = true
	}
	return plan
}

// Distance returns the Levenshtein distance between a and b counted in
// runes, or limit+1 as soon as it is known to exceed limit.
func Distance(a, b string, limit int) int {
	ra, rb := []rune(a), []rune(b)
	if diff := len(ra) - len(rb); diff > limit || -diff > limit {
		return limit + 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return len(ra) + len(rb)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, curr[j])
		}
		if rowMin > limit {
			return limit + 1
		}
		prev, curr = curr, prev
	}
	return min(prev[len(rb)], limit+1)
}
