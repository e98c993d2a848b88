package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, slices.Clone(events))
	return nil
}

func (p *fakePublisher) events() []SearchEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []SearchEvent
	for _, b := range p.batches {
		for _, e := range b {
			out = append(out, e.Value.(SearchEvent))
		}
	}
	return out
}

func TestCollector_BatchesAndFlushesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16, 2, time.Hour)
	c.Start(context.Background())
	for _, q := range []string{"a", "b", "c"} {
		c.Track(SearchEvent{Query: q})
	}
	c.Close()

	events := pub.events()
	require.Len(t, events, 3)
	assert.Equal(t, EventSearch, events[0].Type)
	assert.Equal(t, []string{"a", "b", "c"}, []string{events[0].Query, events[1].Query, events[2].Query})
	assert.Zero(t, c.Dropped())
}

func TestCollector_PublishFailureCountsDropped(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 16, 1, time.Hour)
	c.Start(context.Background())
	c.Track(SearchEvent{Query: "a"})
	c.Close()
	assert.Equal(t, int64(1), c.Dropped())
}

func TestCollector_FullBufferDrops(t *testing.T) {
	c := NewCollector(&fakePublisher{}, 1, 10, time.Hour)
	c.Track(SearchEvent{Query: "a"})
	c.Track(SearchEvent{Query: "b"})
	assert.Equal(t, int64(1), c.Dropped())
}

func TestDecode(t *testing.T) {
	data, err := json.Marshal(IndexEvent{Type: EventSegmentOut, ShardID: 2, Segment: "seg_1.spdx", Docs: 7})
	require.NoError(t, err)
	event, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, &IndexEvent{Type: EventSegmentOut, ShardID: 2, Segment: "seg_1.spdx", Docs: 7}, event)

	_, err = Decode([]byte(`{"type":"unknown"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestAggregator(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	events := []any{
		SearchEvent{Type: EventSearch, Query: "ranking", QueryType: "AND", TotalHits: 3, Returned: 2, TypoHits: 1, LatencyMs: 10},
		SearchEvent{Type: EventSearch, Query: "ranking", QueryType: "AND", TotalHits: 3, Returned: 2, LatencyMs: 20, CacheHit: true},
		SearchEvent{Type: EventSearch, Query: "zebra", QueryType: "OR", Distinct: true, LatencyMs: 30},
		IndexEvent{Type: EventSegmentOut, ShardID: 0, Docs: 5},
	}
	for _, e := range events {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		require.NoError(t, handle(context.Background(), nil, data))
	}
	require.NoError(t, handle(context.Background(), nil, []byte(`garbage`)))

	stats := agg.Stats()
	assert.Equal(t, int64(3), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.DistinctSearches)
	assert.Equal(t, map[string]int64{"AND": 2, "OR": 1}, stats.QueryTypes)
	assert.InDelta(t, 0.25, stats.TypoHitRatio, 1e-9)
	assert.Equal(t, int64(1), stats.SegmentsFlushed)
	assert.Equal(t, int64(5), stats.DocsIndexed)
	assert.InDelta(t, 20.0, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(20), stats.P50LatencyMs)
	assert.Equal(t, []QueryCount{{"ranking", 2}, {"zebra", 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{"zebra", 1}}, stats.ZeroResultQueries)
}

type fakeHistory struct{ snapshots []AggregatedStats }

func (f fakeHistory) ListSnapshots(_ context.Context, limit int) ([]AggregatedStats, error) {
	return f.snapshots[:min(limit, len(f.snapshots))], nil
}

func TestHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Record(&SearchEvent{Query: "ranking", QueryType: "AND", TotalHits: 1})

	h := NewHandler(agg, fakeHistory{snapshots: []AggregatedStats{{TotalSearches: 9}, {TotalSearches: 4}}})
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalSearches)

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=1", nil))
	var history []AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Equal(t, []int64{9}, []int64{history[0].TotalSearches})
	assert.Len(t, history, 1)

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(agg, nil).History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
