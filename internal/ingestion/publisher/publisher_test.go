package publisher

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/kafka"
)

type memStore struct {
	docs map[string]ingestion.Document
	err  error
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]ingestion.Document{}}
}

func (s *memStore) Upsert(ctx context.Context, doc ingestion.Document) (ingestion.Document, bool, error) {
	if s.err != nil {
		return ingestion.Document{}, false, s.err
	}
	if old, ok := s.docs[doc.ID]; ok && old.ContentHash == doc.ContentHash && old.Status != ingestion.StatusFailed {
		return old, true, nil
	}
	s.docs[doc.ID] = doc
	return doc, false, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*ingestion.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return &doc, nil
}

type recordingProducer struct {
	events []kafka.Event
	err    error
}

func (p *recordingProducer) Publish(ctx context.Context, event kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func TestIngest_PublishesDocumentEvent(t *testing.T) {
	store, prod := newMemStore(), &recordingProducer{}
	p := New(store, prod, 4)

	resp, err := p.Ingest(context.Background(), &ingestion.IngestRequest{DocumentID: "doc-1", Title: "Ranking", Body: "rules"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", resp.DocumentID)
	assert.Equal(t, ingestion.StatusPending, resp.Status)
	assert.Equal(t, shard.ShardFor("doc-1", 4), resp.ShardID)
	assert.False(t, resp.Unchanged)

	require.Len(t, prod.events, 1)
	assert.Equal(t, "doc-1", prod.events[0].Key)
	assert.Equal(t, consumer.DocumentEvent{DocumentID: "doc-1", Title: "Ranking", Body: "rules"}, prod.events[0].Value)
	assert.Equal(t, resp.ShardID, store.docs["doc-1"].ShardID)
}

func TestIngest_UnchangedIsNotRepublished(t *testing.T) {
	store, prod := newMemStore(), &recordingProducer{}
	p := New(store, prod, 4)
	req := &ingestion.IngestRequest{DocumentID: "doc-1", Title: "Ranking", Body: "rules"}

	_, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	resp, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Unchanged)
	assert.Len(t, prod.events, 1)

	req.Body = "new rules"
	resp, err = p.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Unchanged)
	assert.Len(t, prod.events, 2)
}

func TestIngest_AssignsIDWithoutStore(t *testing.T) {
	prod := &recordingProducer{}
	p := New(nil, prod, 0)

	resp, err := p.Ingest(context.Background(), &ingestion.IngestRequest{Body: "no id"})
	require.NoError(t, err)
	assert.Len(t, resp.DocumentID, 36)
	assert.Equal(t, 0, resp.ShardID)
	require.Len(t, prod.events, 1)
	assert.Equal(t, resp.DocumentID, prod.events[0].Key)

	_, err = p.Status(context.Background(), resp.DocumentID)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatusCode(err))
}

func TestIngest_Failures(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	p := New(store, &recordingProducer{}, 2)
	_, err := p.Ingest(context.Background(), &ingestion.IngestRequest{Body: "x"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatusCode(err))

	p = New(newMemStore(), &recordingProducer{err: errors.New("broker down")}, 2)
	_, err = p.Ingest(context.Background(), &ingestion.IngestRequest{Body: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrShardUnavailable)
	assert.Contains(t, err.Error(), "broker down")
}

func TestStatus(t *testing.T) {
	store := newMemStore()
	p := New(store, &recordingProducer{}, 2)
	_, err := p.Ingest(context.Background(), &ingestion.IngestRequest{DocumentID: "d", Body: "x"})
	require.NoError(t, err)

	doc, err := p.Status(context.Background(), "d")
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusPending, doc.Status)

	_, err = p.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}
