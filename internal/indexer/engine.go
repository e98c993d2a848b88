package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/config"
)

// MatchOptions controls how query terms are expanded to indexed terms.
type MatchOptions struct {
	OneTypoMinLen  int
	TwoTyposMinLen int
	PrefixLastWord bool
}

// MatchOptionsFrom extracts the term expansion settings from cfg.
func MatchOptionsFrom(cfg config.RankingConfig) MatchOptions {
	return MatchOptions{
		OneTypoMinLen:  cfg.OneTypoMinLen,
		TwoTyposMinLen: cfg.TwoTyposMinLen,
		PrefixLastWord: cfg.PrefixLastWord,
	}
}

func (o MatchOptions) maxTypos(word string) int {
	n := utf8.RuneCountInString(word)
	switch {
	case o.TwoTyposMinLen > 0 && n >= o.TwoTyposMinLen:
		return 2
	case o.OneTypoMinLen > 0 && n >= o.OneTypoMinLen:
		return 1
	}
	return 0
}

// FlushHook is called after a segment has been written and opened.
type FlushHook func(segmentName string, docs int)

type Engine struct {
	memIndex    *index.MemoryIndex
	writer      *segment.Writer
	readers     []*segment.Reader
	loaded      map[string]struct{}
	readerMu    sync.RWMutex
	flushMu     sync.Mutex
	cfg         config.IndexerConfig
	opts        MatchOptions
	onFlush     FlushHook
	logger      *slog.Logger
	statsMu     sync.RWMutex
	totalDocs   int64
}

func NewEngine(cfg config.IndexerConfig, opts MatchOptions) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		memIndex: index.NewMemoryIndex(),
		writer:   segment.NewWriter(cfg.DataDir),
		loaded:   make(map[string]struct{}),
		cfg:      cfg,
		opts:     opts,
		logger:   slog.Default().With("component", "indexer", "data_dir", cfg.DataDir),
	}
	if err := e.loadExistingSegments(); err != nil {
		return nil, fmt.Errorf("loading existing segments: %w", err)
	}
	return e, nil
}

// OnFlush registers a hook run after every successful flush.
func (e *Engine) OnFlush(hook FlushHook) {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()
	e.onFlush = hook
}

// IndexDocument indexes the title and body as separate attributes. A
// document indexed again replaces its earlier version.
func (e *Engine) IndexDocument(docID string, title string, body string) error {
	_, known := e.DocInfo(docID)
	tokens := e.memIndex.AddDocument(docID, title, []index.Field{
		{Attribute: index.AttributeTitle, Text: title},
		{Attribute: index.AttributeBody, Text: body},
	})

	if !known {
		e.statsMu.Lock()
		e.totalDocs++
		e.statsMu.Unlock()
	}

	e.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"token_count", tokens,
		"replaced", known,
		"mem_size", e.memIndex.Size(),
	)
	if e.memIndex.Size() >= e.cfg.SegmentMaxSize {
		e.logger.Info("memory index reached max size, flushing to disk",
			"size", e.memIndex.Size(),
			"threshold", e.cfg.SegmentMaxSize,
		)
		if err := e.Flush(); err != nil {
			return fmt.Errorf("flushing memory index: %w", err)
		}
	}
	return nil
}

func (e *Engine) Flush() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	entries, docs := e.memIndex.Snapshot()
	if len(entries) == 0 {
		return nil
	}
	segmentName, err := e.writer.Write(entries, docs)
	if err != nil {
		return fmt.Errorf("writing segment: %w", err)
	}

	segPath := filepath.Join(e.cfg.DataDir, segmentName)
	reader, err := segment.OpenReader(segPath)
	if err != nil {
		return fmt.Errorf("opening new segment for reading: %w", err)
	}
	e.readerMu.Lock()
	e.readers = append(e.readers, reader)
	e.loaded[segmentName] = struct{}{}
	active := len(e.readers)
	e.readerMu.Unlock()
	e.memIndex.Reset()
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
		"active_segments", active,
	)
	if e.onFlush != nil {
		e.onFlush(segmentName, len(docs))
	}
	return nil
}

// Search returns the postings of a single normalized term across the memory
// index and every segment. A document's postings come only from the newest
// source holding it, so words dropped by a re-index no longer match.
func (e *Engine) Search(term string) (index.PostingList, error) {
	readers := e.snapshotReaders()
	var allPostings index.PostingList
	for i, reader := range readers {
		postings, err := reader.Search(term)
		if err != nil {
			e.logger.Error("segment search failed",
				"segment", reader.Path(),
				"error", err,
			)
			continue
		}
		for _, p := range postings {
			if !e.shadowed(p.DocID, readers[i+1:]) {
				allPostings = append(allPostings, p)
			}
		}
	}
	allPostings = append(allPostings, e.memIndex.Search(term)...)
	sort.Slice(allPostings, func(i, j int) bool {
		return allPostings[i].DocID < allPostings[j].DocID
	})
	return allPostings, nil
}

// shadowed reports whether docID has a newer version in the memory index or
// in one of the newer readers.
func (e *Engine) shadowed(docID string, newer []*segment.Reader) bool {
	if _, ok := e.memIndex.Doc(docID); ok {
		return true
	}
	for _, r := range newer {
		if r.Has(docID) {
			return true
		}
	}
	return false
}

// Vocabulary returns every indexed term in ascending order.
func (e *Engine) Vocabulary() []string {
	seen := make(map[string]struct{})
	for _, t := range e.memIndex.Terms() {
		seen[t] = struct{}{}
	}
	for _, reader := range e.snapshotReaders() {
		for _, t := range reader.Vocabulary() {
			seen[t] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// DocInfo returns the most recent metadata recorded for docID.
func (e *Engine) DocInfo(docID string) (index.DocInfo, bool) {
	if info, ok := e.memIndex.Doc(docID); ok {
		return info, true
	}
	readers := e.snapshotReaders()
	for i := len(readers) - 1; i >= 0; i-- {
		if info, ok := readers[i].Doc(docID); ok {
			return info, true
		}
	}
	return index.DocInfo{}, false
}

type expansion struct {
	term     string
	distance uint8
	exact    bool
}

// expand resolves one query term to the indexed terms it matches: the term
// itself, vocabulary words within the typo budget, and for a prefix term
// every word it starts.
func (e *Engine) expand(t parser.Term, vocab []string) []expansion {
	found := make(map[string]expansion)
	add := func(x expansion) {
		if prev, ok := found[x.term]; ok {
			if prev.distance < x.distance || (prev.distance == x.distance && prev.exact) {
				return
			}
		}
		found[x.term] = x
	}

	i := sort.SearchStrings(vocab, t.Normalized)
	if i < len(vocab) && vocab[i] == t.Normalized {
		add(expansion{term: t.Normalized, exact: true})
	}
	if budget := e.opts.maxTypos(t.Word); budget > 0 {
		for _, v := range vocab {
			if v == t.Normalized {
				continue
			}
			if d := parser.Distance(t.Normalized, v, budget); d <= budget {
				add(expansion{term: v, distance: uint8(d)})
			}
		}
	}
	if t.Prefix && e.opts.PrefixLastWord {
		for _, p := range uniquePrefixes(t.Word, t.Normalized) {
			for j := sort.SearchStrings(vocab, p); j < len(vocab) && strings.HasPrefix(vocab[j], p); j++ {
				if vocab[j] != t.Normalized {
					add(expansion{term: vocab[j]})
				}
			}
		}
	}

	out := make([]expansion, 0, len(found))
	for _, x := range found {
		out = append(out, x)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].term < out[b].term })
	return out
}

func uniquePrefixes(word, normalized string) []string {
	if word == normalized || strings.HasPrefix(word, normalized) {
		return []string{normalized}
	}
	return []string{normalized, word}
}

// Matches resolves every query term against the index and returns the
// occurrences found per document.
func (e *Engine) Matches(ctx context.Context, terms []parser.Term) (map[rank.DocumentID][]rank.Match, error) {
	result := make(map[rank.DocumentID][]rank.Match)
	if len(terms) == 0 {
		return result, nil
	}
	vocab := e.Vocabulary()
	for _, t := range terms {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolving term %q: %w", t.Word, err)
		}
		for _, x := range e.expand(t, vocab) {
			postings, err := e.Search(x.term)
			if err != nil {
				return nil, fmt.Errorf("searching term %q: %w", x.term, err)
			}
			for _, p := range postings {
				id := rank.DocumentID(p.DocID)
				for _, occ := range p.Occurrences {
					result[id] = append(result[id], rank.Match{
						QueryIndex: t.Index,
						Distance:   x.distance,
						Attribute:  occ.Attribute,
						WordIndex:  occ.Position,
						IsExact:    x.exact,
						CharIndex:  occ.Offset,
						CharLength: occ.Length,
					})
				}
			}
		}
	}
	return result, nil
}

// GetTotalDocs returns the number of distinct documents in the engine.
func (e *Engine) GetTotalDocs() int64 {
	e.statsMu.RLock()
	defer e.statsMu.RUnlock()
	return e.totalDocs
}

func (e *Engine) StartFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.FlushInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final flush")
				if err := e.Flush(); err != nil {
					e.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if e.memIndex.DocCount() > 0 {
					if err := e.Flush(); err != nil {
						e.logger.Error("periodic flush failed", "error", err)
					}
				}
			}
		}
	}()
}

// ReloadSegments opens segments written to the data directory by another
// process since the last scan and returns how many were added.
func (e *Engine) ReloadSegments() int {
	names, err := segmentFiles(e.cfg.DataDir)
	if err != nil {
		e.logger.Error("scanning for segments failed", "error", err)
		return 0
	}
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	added := 0
	for _, name := range names {
		if _, ok := e.loaded[name]; ok {
			continue
		}
		reader, err := segment.OpenReader(filepath.Join(e.cfg.DataDir, name))
		if err != nil {
			e.logger.Error("failed to open segment, skipping",
				"segment", name,
				"error", err,
			)
			continue
		}
		e.countNewDocs(reader, e.readers)
		e.readers = append(e.readers, reader)
		e.loaded[name] = struct{}{}
		added++
	}
	if added > 0 {
		e.logger.Info("segments reloaded", "added", added, "active_segments", len(e.readers))
	}
	return added
}

func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		e.logger.Error("final flush on close failed", "error", err)
	}
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
	e.loaded = make(map[string]struct{})
	return nil
}

func (e *Engine) snapshotReaders() []*segment.Reader {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	readers := make([]*segment.Reader, len(e.readers))
	copy(readers, e.readers)
	return readers
}

// countNewDocs adds the documents of reader not already held by older
// readers or the memory index to the document count.
func (e *Engine) countNewDocs(reader *segment.Reader, older []*segment.Reader) {
	var n int64
	for id := range reader.DocIDs() {
		if _, ok := e.memIndex.Doc(id); ok {
			continue
		}
		if !slices.ContainsFunc(older, func(r *segment.Reader) bool { return r.Has(id) }) {
			n++
		}
	}
	e.statsMu.Lock()
	e.totalDocs += n
	e.statsMu.Unlock()
}

func segmentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	names := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".spdx") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (e *Engine) loadExistingSegments() error {
	names, err := segmentFiles(e.cfg.DataDir)
	if err != nil {
		return err
	}
	for _, name := range names {
		reader, err := segment.OpenReader(filepath.Join(e.cfg.DataDir, name))
		if err != nil {
			e.logger.Error("failed to open segment, skipping",
				"segment", name,
				"error", err,
			)
			continue
		}
		e.countNewDocs(reader, e.readers)
		e.readers = append(e.readers, reader)
		e.loaded[name] = struct{}{}
		e.logger.Info("loaded existing segment",
			"segment", name,
			"terms", reader.Terms(),
			"docs", reader.DocCount(),
		)
	}
	e.logger.Info("segment recovery complete", "segments_loaded", len(e.readers))
	return nil
}
