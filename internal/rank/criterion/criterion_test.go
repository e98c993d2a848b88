package criterion

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
)

func doc(id string, matches ...rank.Match) *rank.Document {
	d := rank.FromUnsortedMatches(rank.DocumentID(id), matches)
	return &d
}

func TestSumOfTypos(t *testing.T) {
	clean := doc("a",
		rank.Match{QueryIndex: 0, Distance: 0},
		rank.Match{QueryIndex: 1, Distance: 1},
		rank.Match{QueryIndex: 1, Distance: 0},
	)
	typo := doc("b",
		rank.Match{QueryIndex: 0, Distance: 1},
		rank.Match{QueryIndex: 1, Distance: 0},
	)

	assert.Equal(t, 0, sumOfTypos(clean))
	assert.Equal(t, 1, sumOfTypos(typo))
	assert.Negative(t, SumOfTypos{}.Evaluate(clean, typo))
	assert.Positive(t, SumOfTypos{}.Evaluate(typo, clean))
}

func TestNumberOfWords(t *testing.T) {
	two := doc("a", rank.Match{QueryIndex: 0}, rank.Match{QueryIndex: 1})
	one := doc("b", rank.Match{QueryIndex: 0}, rank.Match{QueryIndex: 0, WordIndex: 3})

	assert.Negative(t, NumberOfWords{}.Evaluate(two, one))
	assert.Zero(t, NumberOfWords{}.Evaluate(one, one))
}

func TestWordsProximity(t *testing.T) {
	tests := []struct {
		name string
		doc  *rank.Document
		want int
	}{
		{"single word", doc("a", rank.Match{QueryIndex: 0}), 0},
		{"adjacent in order", doc("a",
			rank.Match{QueryIndex: 0, WordIndex: 4},
			rank.Match{QueryIndex: 1, WordIndex: 5},
		), 1},
		{"adjacent reversed", doc("a",
			rank.Match{QueryIndex: 0, WordIndex: 5},
			rank.Match{QueryIndex: 1, WordIndex: 4},
		), 2},
		{"different attribute", doc("a",
			rank.Match{QueryIndex: 0, Attribute: 0, WordIndex: 1},
			rank.Match{QueryIndex: 1, Attribute: 1, WordIndex: 2},
		), MaxProximity},
		{"capped", doc("a",
			rank.Match{QueryIndex: 0, WordIndex: 0},
			rank.Match{QueryIndex: 1, WordIndex: 100},
		), MaxProximity},
		{"best pair wins", doc("a",
			rank.Match{QueryIndex: 0, WordIndex: 0},
			rank.Match{QueryIndex: 0, WordIndex: 20},
			rank.Match{QueryIndex: 1, WordIndex: 10},
			rank.Match{QueryIndex: 1, WordIndex: 22},
		), 2},
		{"three words", doc("a",
			rank.Match{QueryIndex: 0, WordIndex: 0},
			rank.Match{QueryIndex: 1, WordIndex: 1},
			rank.Match{QueryIndex: 2, WordIndex: 3},
		), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wordsProximity(tt.doc))
		})
	}
}

func TestSumOfWordsAttributeAndPosition(t *testing.T) {
	title := doc("a",
		rank.Match{QueryIndex: 0, Attribute: 1, WordIndex: 0},
		rank.Match{QueryIndex: 0, Distance: 1, Attribute: 0, WordIndex: 9},
	)
	body := doc("b", rank.Match{QueryIndex: 0, Attribute: 1, WordIndex: 2})

	assert.Equal(t, 0, sumOfMin(title, attributeOf))
	assert.Equal(t, 1, sumOfMin(body, attributeOf))
	assert.Negative(t, SumOfWordsAttribute{}.Evaluate(title, body))

	assert.Equal(t, 0, sumOfMin(title, wordIndexOf))
	assert.Equal(t, 2, sumOfMin(body, wordIndexOf))
	assert.Negative(t, SumOfWordsPosition{}.Evaluate(title, body))
}

func TestExact(t *testing.T) {
	exact := doc("a",
		rank.Match{QueryIndex: 0, IsExact: true},
		rank.Match{QueryIndex: 0, IsExact: true, WordIndex: 2},
		rank.Match{QueryIndex: 1},
	)
	prefix := doc("b", rank.Match{QueryIndex: 0}, rank.Match{QueryIndex: 1})

	assert.Equal(t, 1, exactWords(exact))
	assert.Equal(t, 0, exactWords(prefix))
	assert.Negative(t, Exact{}.Evaluate(exact, prefix))
}

func TestDocumentID(t *testing.T) {
	assert.Negative(t, DocumentID{}.Evaluate(doc("a"), doc("b")))
	assert.Zero(t, DocumentID{}.Evaluate(doc("a"), doc("a")))
}

// TestCriteria_FirstDecisiveWins checks that later criteria only break ties.
func TestCriteria_FirstDecisiveWins(t *testing.T) {
	more := doc("z", rank.Match{QueryIndex: 0}, rank.Match{QueryIndex: 1})
	fewer := doc("a", rank.Match{QueryIndex: 0})

	chain := Criteria{NumberOfWords{}, DocumentID{}}
	assert.Negative(t, chain.Compare(more, fewer))

	reversed := Criteria{DocumentID{}, NumberOfWords{}}
	assert.Positive(t, reversed.Compare(more, fewer))

	assert.True(t, Criteria{NumberOfWords{}}.Equal(doc("x", rank.Match{}), doc("y", rank.Match{})))
	assert.True(t, Criteria{}.Equal(more, fewer))
}

func TestDefault_SortsDocuments(t *testing.T) {
	docs := []*rank.Document{
		doc("c", rank.Match{QueryIndex: 0, Distance: 1}, rank.Match{QueryIndex: 1, WordIndex: 1}),
		doc("b", rank.Match{QueryIndex: 0}),
		doc("a", rank.Match{QueryIndex: 0, IsExact: true}, rank.Match{QueryIndex: 1, WordIndex: 1, IsExact: true}),
		doc("d", rank.Match{QueryIndex: 0, IsExact: true}, rank.Match{QueryIndex: 1, WordIndex: 1, IsExact: true}),
	}
	chain := Default()
	slices.SortFunc(docs, chain.Compare)

	ids := make([]rank.DocumentID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []rank.DocumentID{"a", "d", "b", "c"}, ids)
}

func TestByName(t *testing.T) {
	chain, err := ByName(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultNames, chain.Names())

	chain, err = ByName([]string{"words", "id", "words"})
	require.NoError(t, err)
	assert.Equal(t, []string{"words", "id"}, chain.Names())

	_, err = ByName([]string{"words", "bm25"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownCriterion))

	assert.True(t, Known("proximity"))
	assert.False(t, Known("bm25"))
}
