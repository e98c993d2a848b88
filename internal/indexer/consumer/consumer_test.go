package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/metrics"
)

type recordingStatus struct {
	mu      sync.Mutex
	updates map[string]string
}

func (r *recordingStatus) UpdateStatus(_ context.Context, docID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[docID] = status
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func newRouter(t *testing.T) *shard.Router {
	t.Helper()
	cfg := config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 20, FlushInterval: time.Hour}
	r, err := shard.NewRouter(cfg, 2, indexer.MatchOptions{OneTypoMinLen: 5, TwoTyposMinLen: 9})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandleMessage_RoutesToOwningShard(t *testing.T) {
	router := newRouter(t)
	status := &recordingStatus{updates: map[string]string{}}
	m := metrics.New(prometheus.NewRegistry())
	handle := HandleMessage(router, status, m)

	docs := []DocumentEvent{
		{DocumentID: "doc-1", Title: "Ranking rules", Body: "typo proximity"},
		{DocumentID: "doc-2", Title: "Cooking pasta", Body: "boil water"},
	}
	for _, d := range docs {
		require.NoError(t, handle(context.Background(), []byte(d.DocumentID), encode(t, d)))
	}

	for _, d := range docs {
		engine, err := router.Route(router.ShardFor(d.DocumentID))
		require.NoError(t, err)
		info, ok := engine.DocInfo(d.DocumentID)
		require.True(t, ok, d.DocumentID)
		assert.Equal(t, d.Title, info.Title)
	}
	assert.Equal(t, map[string]string{"doc-1": StatusIndexed, "doc-2": StatusIndexed}, status.updates)
}

func TestHandleMessage_RejectsMalformed(t *testing.T) {
	handle := HandleMessage(newRouter(t), nil, nil)
	assert.ErrorIs(t, handle(context.Background(), nil, []byte("{")), kafka.ErrMalformedMessage)
	assert.ErrorIs(t, handle(context.Background(), nil, encode(t, DocumentEvent{Title: "no id"})), kafka.ErrMalformedMessage)
}

func TestAnnounceFlushes(t *testing.T) {
	router := newRouter(t)
	pub := &recordingPublisher{}
	AnnounceFlushes(router, pub, metrics.New(prometheus.NewRegistry()))

	handle := HandleMessage(router, nil, nil)
	doc := DocumentEvent{DocumentID: "doc-1", Title: "Ranking rules", Body: "typo"}
	require.NoError(t, handle(context.Background(), nil, encode(t, doc)))
	require.NoError(t, router.FlushAll())

	require.Len(t, pub.events, 1)
	event, ok := pub.events[0].Value.(analytics.IndexEvent)
	require.True(t, ok)
	assert.Equal(t, router.ShardFor("doc-1"), event.ShardID)
	assert.Equal(t, 1, event.Docs)
	assert.Equal(t, analytics.EventSegmentOut, event.Type)
	assert.NotEmpty(t, event.Segment)
}
