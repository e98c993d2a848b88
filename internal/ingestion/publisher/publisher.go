// Package publisher records ingested documents and publishes them to the
// ingest topic for the indexer. Documents are routed with the same hash the
// indexer uses, so the reported shard is the one that will hold them.
package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/kafka"
)

// DocumentStore keeps document metadata. Upsert reports unchanged when the
// stored row already has doc's content hash and was not marked failed.
type DocumentStore interface {
	Upsert(ctx context.Context, doc ingestion.Document) (stored ingestion.Document, unchanged bool, err error)
	Get(ctx context.Context, id string) (*ingestion.Document, error)
}

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	store     DocumentStore
	producer  EventPublisher
	numShards int
	logger    *slog.Logger
}

// New creates a Publisher. store may be nil, in which case documents are
// published without metadata and Status is unavailable.
func New(store DocumentStore, producer EventPublisher, numShards int) *Publisher {
	return &Publisher{
		store:     store,
		producer:  producer,
		numShards: max(1, numShards),
		logger:    slog.Default().With("component", "publisher"),
	}
}

// Ingest stores req as PENDING and publishes it for indexing. A document
// whose content has not changed since it was last accepted is not
// republished.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	doc := ingestion.Document{
		ID:          req.DocumentID,
		Title:       req.Title,
		ContentHash: contentHash(req.Title, req.Body),
		ContentSize: len(req.Title) + len(req.Body),
		Status:      ingestion.StatusPending,
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.ShardID = shard.ShardFor(doc.ID, p.numShards)

	if p.store != nil {
		stored, unchanged, err := p.store.Upsert(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("storing document %s: %w", doc.ID, err)
		}
		if unchanged {
			p.logger.Info("document unchanged, skipping publish", "doc_id", doc.ID, "status", stored.Status)
			return &ingestion.IngestResponse{
				DocumentID: stored.ID,
				Status:     stored.Status,
				ShardID:    stored.ShardID,
				Unchanged:  true,
			}, nil
		}
	}

	event := kafka.Event{
		Key: doc.ID,
		Value: consumer.DocumentEvent{
			DocumentID: doc.ID,
			Title:      req.Title,
			Body:       req.Body,
		},
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish document", "doc_id", doc.ID, "shard_id", doc.ShardID, "error", err)
		return nil, fmt.Errorf("publishing document %s: %w: %w", doc.ID, apperrors.ErrShardUnavailable, err)
	}
	return &ingestion.IngestResponse{
		DocumentID: doc.ID,
		Status:     doc.Status,
		ShardID:    doc.ShardID,
	}, nil
}

// Status returns the stored metadata of document id.
func (p *Publisher) Status(ctx context.Context, id string) (*ingestion.Document, error) {
	if p.store == nil {
		return nil, fmt.Errorf("document status: %w: no document store configured", apperrors.ErrShardUnavailable)
	}
	return p.store.Get(ctx, id)
}

func contentHash(title, body string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
