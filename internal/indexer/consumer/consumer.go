// Package consumer reads document events from Kafka, indexes each one into
// the shard that owns it and announces every flushed segment so searchers
// can load it.
package consumer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/metrics"
)

const (
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
)

// DocumentEvent is one document to index, published on the ingest topic.
type DocumentEvent struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// ShardRouter is satisfied by *shard.Router.
type ShardRouter interface {
	ShardFor(docID string) int
	Route(shardID int) (*indexer.Engine, error)
	OnFlush(hook func(shardID int, segmentName string, docs int))
}

// StatusStore records the indexing outcome of a document.
type StatusStore interface {
	UpdateStatus(ctx context.Context, docID, status string) error
}

// Publisher is the subset of kafka.Producer used for flush notifications.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// HandleMessage returns a Kafka handler that indexes each DocumentEvent into
// its shard. status and m may be nil. Malformed events return an error
// wrapping kafka.ErrMalformedMessage.
func HandleMessage(router ShardRouter, status StatusStore, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[DocumentEvent](value)
		if err != nil {
			return fmt.Errorf("document event %q: %w", key, err)
		}
		if event.DocumentID == "" {
			return fmt.Errorf("document event %q without id: %w", key, kafka.ErrMalformedMessage)
		}

		shardID := router.ShardFor(event.DocumentID)
		engine, err := router.Route(shardID)
		if err != nil {
			return fmt.Errorf("routing document %s: %w", event.DocumentID, err)
		}
		if err := engine.IndexDocument(event.DocumentID, event.Title, event.Body); err != nil {
			updateStatus(ctx, status, event.DocumentID, StatusFailed, logger)
			return fmt.Errorf("indexing document %s in shard %d: %w", event.DocumentID, shardID, err)
		}
		updateStatus(ctx, status, event.DocumentID, StatusIndexed, logger)
		if m != nil {
			m.DocsIndexedTotal.Inc()
		}
		logger.Debug("document indexed", "doc_id", event.DocumentID, "shard_id", shardID)
		return nil
	}
}

// AnnounceFlushes publishes an analytics.IndexEvent on every segment flush
// and counts flushes per shard. publisher and m may be nil.
func AnnounceFlushes(router ShardRouter, publisher Publisher, m *metrics.Metrics) {
	logger := slog.Default().With("component", "flush-announcer")
	router.OnFlush(func(shardID int, segmentName string, docs int) {
		if m != nil {
			m.IndexFlushesTotal.WithLabelValues(strconv.Itoa(shardID)).Inc()
		}
		if publisher == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := publisher.Publish(ctx, kafka.Event{
			Key: strconv.Itoa(shardID),
			Value: analytics.IndexEvent{
				Type:      analytics.EventSegmentOut,
				ShardID:   shardID,
				Segment:   segmentName,
				Docs:      docs,
				Timestamp: time.Now().UTC(),
			},
		})
		if err != nil {
			logger.Error("failed to announce flush", "shard_id", shardID, "segment", segmentName, "error", err)
		}
	})
}

func updateStatus(ctx context.Context, store StatusStore, docID, status string, logger *slog.Logger) {
	if store == nil {
		return
	}
	if err := store.UpdateStatus(ctx, docID, status); err != nil {
		logger.Error("failed to update document status", "doc_id", docID, "status", status, "error", err)
	}
}

// PostgresStatus writes document status to the documents table.
type PostgresStatus struct {
	DB *sql.DB
}

func (p PostgresStatus) UpdateStatus(ctx context.Context, docID, status string) error {
	_, err := p.DB.ExecContext(ctx,
		`UPDATE documents SET status = $1, indexed_at = NOW() WHERE id = $2`,
		status, docID,
	)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", docID, err)
	}
	return nil
}
