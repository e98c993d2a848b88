package criterion

import (
	"cmp"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
)

const (
	NameTypo       = "typo"
	NameWords      = "words"
	NameProximity  = "proximity"
	NameAttribute  = "attribute"
	NamePosition   = "position"
	NameExact      = "exact"
	NameDocumentID = "id"
)

// MaxProximity caps the distance counted between two adjacent query words.
// Words in different attributes always count as MaxProximity apart.
const MaxProximity = 8

// SumOfTypos prefers documents whose best match for each query word needed
// fewer typos.
type SumOfTypos struct{}

func (SumOfTypos) Name() string { return NameTypo }

func (SumOfTypos) Evaluate(lhs, rhs *rank.Document) int {
	return cmp.Compare(sumOfTypos(lhs), sumOfTypos(rhs))
}

func sumOfTypos(doc *rank.Document) int {
	sum := 0
	g := doc.Matches.QueryIndexGroups()
	for group, ok := g.Next(); ok; group, ok = g.Next() {
		// matches sort by distance right after query index
		sum += int(group[0].Distance)
	}
	return sum
}

// NumberOfWords prefers documents matching more distinct query words.
type NumberOfWords struct{}

func (NumberOfWords) Name() string { return NameWords }

func (NumberOfWords) Evaluate(lhs, rhs *rank.Document) int {
	return cmp.Compare(rhs.Matches.QueryIndexGroups().Len(), lhs.Matches.QueryIndexGroups().Len())
}

// WordsProximity prefers documents where consecutive query words appear
// close to each other, in query order.
type WordsProximity struct{}

func (WordsProximity) Name() string { return NameProximity }

func (WordsProximity) Evaluate(lhs, rhs *rank.Document) int {
	return cmp.Compare(wordsProximity(lhs), wordsProximity(rhs))
}

func wordsProximity(doc *rank.Document) int {
	g := doc.Matches.QueryIndexGroups()
	prev, ok := g.Next()
	if !ok {
		return 0
	}
	sum := 0
	for next, ok := g.Next(); ok; next, ok = g.Next() {
		sum += minProximity(prev, next)
		prev = next
	}
	return sum
}

func minProximity(lhs, rhs []rank.Match) int {
	best := MaxProximity
	for _, a := range lhs {
		for _, b := range rhs {
			if d := proximity(a, b); d < best {
				best = d
				if best == 1 {
					return best
				}
			}
		}
	}
	return best
}

// proximity counts words in reverse order one step further apart than the
// same distance in query order.
func proximity(a, b rank.Match) int {
	if a.Attribute != b.Attribute {
		return MaxProximity
	}
	var d int
	if a.WordIndex < b.WordIndex {
		d = int(b.WordIndex - a.WordIndex)
	} else {
		d = int(a.WordIndex-b.WordIndex) + 1
	}
	return min(d, MaxProximity)
}

// SumOfWordsAttribute prefers documents whose query words occur in lower
// numbered attributes (the title before the body).
type SumOfWordsAttribute struct{}

func (SumOfWordsAttribute) Name() string { return NameAttribute }

func (SumOfWordsAttribute) Evaluate(lhs, rhs *rank.Document) int {
	return cmp.Compare(sumOfMin(lhs, attributeOf), sumOfMin(rhs, attributeOf))
}

// SumOfWordsPosition prefers documents whose query words occur earlier in
// their attribute.
type SumOfWordsPosition struct{}

func (SumOfWordsPosition) Name() string { return NamePosition }

func (SumOfWordsPosition) Evaluate(lhs, rhs *rank.Document) int {
	return cmp.Compare(sumOfMin(lhs, wordIndexOf), sumOfMin(rhs, wordIndexOf))
}

func attributeOf(m rank.Match) int { return int(m.Attribute) }
func wordIndexOf(m rank.Match) int { return int(m.WordIndex) }

func sumOfMin(doc *rank.Document, field func(rank.Match) int) int {
	sum := 0
	g := doc.Matches.QueryIndexGroups()
	for group, ok := g.Next(); ok; group, ok = g.Next() {
		best := field(group[0])
		for _, m := range group[1:] {
			best = min(best, field(m))
		}
		sum += best
	}
	return sum
}

// Exact prefers documents with more query words matched exactly.
type Exact struct{}

func (Exact) Name() string { return NameExact }

func (Exact) Evaluate(lhs, rhs *rank.Document) int {
	return cmp.Compare(exactWords(rhs), exactWords(lhs))
}

func exactWords(doc *rank.Document) int {
	n := 0
	g := doc.Matches.QueryIndexGroups()
	for group, ok := g.Next(); ok; group, ok = g.Next() {
		for _, m := range group {
			if m.IsExact {
				n++
				break
			}
		}
	}
	return n
}

// DocumentID orders by identifier, making the chain a total order.
type DocumentID struct{}

func (DocumentID) Name() string { return NameDocumentID }

func (DocumentID) Evaluate(lhs, rhs *rank.Document) int {
	return cmp.Compare(lhs.ID, rhs.ID)
}
