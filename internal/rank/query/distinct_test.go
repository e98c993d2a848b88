package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
)

func TestDistinctMap(t *testing.T) {
	m := NewDistinctMap(2)
	assert.True(t, m.Register("x"))
	assert.True(t, m.Register("x"))
	assert.False(t, m.Register("x"))
	assert.True(t, m.Register("y"))
	assert.True(t, m.RegisterWithoutKey())
	assert.True(t, m.RegisterWithoutKey())
	assert.Equal(t, 5, m.Len())
}

func TestDistinctMap_ZeroLimit(t *testing.T) {
	m := NewDistinctMap(0)
	assert.False(t, m.Register("x"))
	assert.True(t, m.RegisterWithoutKey())
	assert.Equal(t, 1, m.Len())
}

func keyByTitle(titles map[rank.DocumentID]string) KeyFunc {
	return func(id rank.DocumentID) (string, bool) {
		k, ok := titles[id]
		return k, ok
	}
}

func TestDistinct(t *testing.T) {
	docs := make([]*rank.Document, 0, 5)
	for _, id := range []rank.DocumentID{"a", "b", "c", "d", "e"} {
		d := rank.NewDocument(id, rank.Match{})
		docs = append(docs, &d)
	}
	key := keyByTitle(map[rank.DocumentID]string{"a": "red", "b": "red", "c": "blue", "e": "blue"})

	page, dropped := Distinct(docs, key, 1, 0, 10)
	assert.Equal(t, []rank.DocumentID{"a", "c", "d"}, ids(page))
	assert.Equal(t, 2, dropped)

	page, _ = Distinct(docs, key, 1, 1, 1)
	assert.Equal(t, []rank.DocumentID{"c"}, ids(page))

	page, dropped = Distinct(docs, key, 2, 0, 10)
	assert.Len(t, page, 5)
	assert.Zero(t, dropped)
}

func TestDistinctBuilder_Query(t *testing.T) {
	// default order is a, b, c, d; a and b share a key
	key := keyByTitle(map[rank.DocumentID]string{"a": "same", "b": "same", "c": "other"})
	db := NewDistinct(New(source(), nil), key, 1)

	page, total, err := db.Query(context.Background(), terms(2), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, []rank.DocumentID{"a", "c"}, ids(page))

	page, _, err = db.Query(context.Background(), terms(2), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []rank.DocumentID{"c", "d"}, ids(page))

	_, _, err = db.Query(context.Background(), terms(2), 0, 0)
	assert.Error(t, err)
}
