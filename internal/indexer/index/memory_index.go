package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/tokenizer"
)

// MemoryIndex is the mutable in-memory part of an engine, flushed to a
// segment once it grows past the configured size.
type MemoryIndex struct {
	mu       sync.RWMutex
	index    map[string]map[string]*Posting
	docs     map[string]DocInfo
	docTerms map[string][]string
	size     int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:    make(map[string]map[string]*Posting),
		docs:     make(map[string]DocInfo),
		docTerms: make(map[string][]string),
	}
}

// AddDocument tokenises every field and records one occurrence per token,
// replacing any earlier version of docID. It returns the number of tokens
// indexed.
func (m *MemoryIndex) AddDocument(docID string, title string, fields []Field) int {
	termData := make(map[string]*Posting)
	length := 0
	for _, field := range fields {
		for _, token := range tokenizer.Tokenize(field.Text) {
			p, exists := termData[token.Term]
			if !exists {
				p = &Posting{
					DocID:       docID,
					Occurrences: make([]Occurrence, 0, 4),
				}
				termData[token.Term] = p
			}
			p.Frequency++
			p.Occurrences = append(p.Occurrences, Occurrence{
				Attribute: field.Attribute,
				Position:  uint32(token.Position),
				Offset:    uint32(token.Offset),
				Length:    uint16(min(token.Length, 1<<16-1)),
			})
			length++
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(docID)
	terms := make([]string, 0, len(termData))
	for term, posting := range termData {
		terms = append(terms, term)
		if _, exists := m.index[term]; !exists {
			m.index[term] = make(map[string]*Posting)
		}
		m.index[term][docID] = posting
		m.size += int64(len(term) + len(docID) + len(posting.Occurrences)*12 + 64)
	}
	m.docs[docID] = DocInfo{DocID: docID, Title: title, Length: length}
	m.docTerms[docID] = terms
	m.size += int64(len(docID) + len(title) + 32)
	return length
}

func (m *MemoryIndex) removeLocked(docID string) {
	for _, term := range m.docTerms[docID] {
		postings := m.index[term]
		delete(postings, docID)
		if len(postings) == 0 {
			delete(m.index, term)
		}
	}
	delete(m.docTerms, docID)
	delete(m.docs, docID)
}

func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Terms returns the vocabulary in ascending order.
func (m *MemoryIndex) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make([]string, 0, len(m.index))
	for term := range m.index {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Doc returns the metadata recorded for docID.
func (m *MemoryIndex) Doc(docID string) (DocInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.docs[docID]
	return info, ok
}

// Snapshot returns the term entries sorted by term and the documents sorted
// by ID, ready to be written as a segment.
func (m *MemoryIndex) Snapshot() ([]TermEntry, []DocInfo) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	docs := make([]DocInfo, 0, len(m.docs))
	for _, info := range m.docs {
		docs = append(docs, info)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].DocID < docs[j].DocID
	})
	return entries, docs
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]*Posting)
	m.docs = make(map[string]DocInfo)
	m.docTerms = make(map[string][]string)
	m.size = 0
}
