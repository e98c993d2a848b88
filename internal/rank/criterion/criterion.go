// Package criterion defines the comparators that order ranked documents and
// the chain that applies them in sequence.
package criterion

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
)

// Criterion compares two documents. Evaluate returns a negative number when
// lhs ranks before rhs, a positive one when it ranks after, and zero when the
// criterion cannot tell them apart. Implementations only read the documents.
type Criterion interface {
	Name() string
	Evaluate(lhs, rhs *rank.Document) int
}

// Criteria is an ordered chain of criteria. The first criterion that does not
// report equality decides the order of two documents.
type Criteria []Criterion

// Compare runs the chain on two documents.
func (c Criteria) Compare(lhs, rhs *rank.Document) int {
	for _, criterion := range c {
		if r := criterion.Evaluate(lhs, rhs); r != 0 {
			return r
		}
	}
	return 0
}

// Equal reports whether no criterion in the chain separates the documents.
func (c Criteria) Equal(lhs, rhs *rank.Document) bool {
	return c.Compare(lhs, rhs) == 0
}

// Names lists the chain for logging.
func (c Criteria) Names() []string {
	names := make([]string, len(c))
	for i, criterion := range c {
		names[i] = criterion.Name()
	}
	return names
}

// DefaultNames is the default chain order.
var DefaultNames = []string{
	NameTypo,
	NameWords,
	NameProximity,
	NameAttribute,
	NamePosition,
	NameExact,
	NameDocumentID,
}

// Default returns the default chain.
func Default() Criteria {
	return Criteria{
		SumOfTypos{},
		NumberOfWords{},
		WordsProximity{},
		SumOfWordsAttribute{},
		SumOfWordsPosition{},
		Exact{},
		DocumentID{},
	}
}

var registry = map[string]func() Criterion{
	NameTypo:       func() Criterion { return SumOfTypos{} },
	NameWords:      func() Criterion { return NumberOfWords{} },
	NameProximity:  func() Criterion { return WordsProximity{} },
	NameAttribute:  func() Criterion { return SumOfWordsAttribute{} },
	NamePosition:   func() Criterion { return SumOfWordsPosition{} },
	NameExact:      func() Criterion { return Exact{} },
	NameDocumentID: func() Criterion { return DocumentID{} },
}

// Known reports whether name refers to a registered criterion.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// ByName builds a chain from criterion names. An empty list yields the
// default chain.
func ByName(names []string) (Criteria, error) {
	if len(names) == 0 {
		return Default(), nil
	}
	chain := make(Criteria, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		ctor, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("building criteria: %w: %q", apperrors.ErrUnknownCriterion, name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		chain = append(chain, ctor())
	}
	return chain, nil
}
