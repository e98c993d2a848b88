package publisher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/postgres"
)

// The indexer's status updates write to this table.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	content_size INTEGER NOT NULL,
	shard_id     INTEGER NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	indexed_at   TIMESTAMPTZ
)`

// PostgresStore keeps document metadata in the documents table.
type PostgresStore struct {
	db *postgres.Client
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, doc ingestion.Document) (ingestion.Document, bool, error) {
	var (
		stored    ingestion.Document
		unchanged bool
	)
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var hash, status string
		var shardID int
		err := tx.QueryRowContext(ctx,
			`SELECT content_hash, status, shard_id FROM documents WHERE id = $1 FOR UPDATE`, doc.ID,
		).Scan(&hash, &status, &shardID)
		switch {
		case err == nil && hash == doc.ContentHash && status != ingestion.StatusFailed:
			stored = doc
			stored.Status, stored.ShardID = status, shardID
			unchanged = true
			return nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (id, title, content_hash, content_size, shard_id, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				content_hash = EXCLUDED.content_hash,
				content_size = EXCLUDED.content_size,
				shard_id = EXCLUDED.shard_id,
				status = EXCLUDED.status,
				indexed_at = NULL`,
			doc.ID, doc.Title, doc.ContentHash, doc.ContentSize, doc.ShardID, doc.Status,
		)
		stored = doc
		return err
	})
	if err != nil {
		return ingestion.Document{}, false, fmt.Errorf("upserting document %s: %w", doc.ID, err)
	}
	return stored, unchanged, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*ingestion.Document, error) {
	var (
		doc       ingestion.Document
		indexedAt sql.NullTime
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, title, content_hash, content_size, shard_id, status, created_at, indexed_at
		FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.Title, &doc.ContentHash, &doc.ContentSize, &doc.ShardID, &doc.Status, &doc.CreatedAt, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", id, err)
	}
	if indexedAt.Valid {
		doc.IndexedAt = &indexedAt.Time
	}
	return &doc, nil
}
