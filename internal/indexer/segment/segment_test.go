package segment

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/index"
)

func writeSegment(t *testing.T, dir string) string {
	t.Helper()
	m := index.NewMemoryIndex()
	m.AddDocument("doc-1", "Ranking rules", []index.Field{
		{Attribute: index.AttributeTitle, Text: "Ranking rules"},
		{Attribute: index.AttributeBody, Text: "typo proximity attribute"},
	})
	m.AddDocument("doc-2", "Typo tolerance", []index.Field{
		{Attribute: index.AttributeTitle, Text: "Typo tolerance"},
	})
	entries, docs := m.Snapshot()
	name, err := NewWriter(dir).Write(entries, docs)
	require.NoError(t, err)
	return filepath.Join(dir, name)
}

func TestWriteAndRead(t *testing.T) {
	path := writeSegment(t, t.TempDir())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint32(2), r.DocCount())
	assert.Equal(t, len(r.Vocabulary()), r.Terms())
	assert.IsNonDecreasing(t, r.Vocabulary())
	assert.Equal(t, path, r.Path())

	postings, err := r.Search("typo")
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, "doc-1", postings[0].DocID)
	assert.Equal(t, []index.Occurrence{
		{Attribute: index.AttributeBody, Position: 0, Offset: 0, Length: 4},
	}, postings[0].Occurrences)
	assert.Equal(t, "doc-2", postings[1].DocID)
	assert.Equal(t, index.AttributeTitle, postings[1].Occurrences[0].Attribute)

	missing, err := r.Search("nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	info, ok := r.Doc("doc-2")
	require.True(t, ok)
	assert.Equal(t, "Typo tolerance", info.Title)
	_, ok = r.Doc("doc-9")
	assert.False(t, ok)
}

func TestWrite_Empty(t *testing.T) {
	_, err := NewWriter(t.TempDir()).Write(nil, nil)
	assert.Error(t, err)
}

func TestOpenReader_Corrupt(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.spdx")
	require.NoError(t, os.WriteFile(bad, make([]byte, HeaderSize+FooterSize), 0644))
	_, err := OpenReader(bad)
	assert.ErrorContains(t, err, "bad magic")

	path := writeSegment(t, dir)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	header := decodeHeader(data[:HeaderSize])
	data[header.DictOffset+1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))
	_, err = OpenReader(path)
	assert.ErrorContains(t, err, "checksum")
}

func TestReaderDocIDs(t *testing.T) {
	r, err := OpenReader(writeSegment(t, t.TempDir()))
	require.NoError(t, err)
	defer r.Close()

	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, slices.Collect(r.DocIDs()))
	assert.True(t, r.Has("doc-1"))
	assert.False(t, r.Has("doc-9"))
}

func TestWriterNamesSortInWriteOrder(t *testing.T) {
	w := NewWriter(t.TempDir())
	m := index.NewMemoryIndex()
	m.AddDocument("doc-1", "", []index.Field{{Attribute: index.AttributeBody, Text: "ranking"}})
	entries, docs := m.Snapshot()

	var names []string
	for range 5 {
		name, err := w.Write(entries, docs)
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.True(t, slices.IsSorted(names))
	assert.Len(t, slices.Compact(slices.Clone(names)), 5)
}
