// Package ingestion defines the request and response types of the document
// ingestion API. Accepted documents are published as
// consumer.DocumentEvent on the ingest topic.
package ingestion

import "time"

const (
	StatusPending = "PENDING"
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
)

// IngestRequest is the JSON body of POST /api/v1/documents. An empty
// DocumentID is assigned a UUID. Re-sending an ID replaces the document.
type IngestRequest struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	ShardID    int    `json:"shard_id"`
	// Unchanged is set when the stored document already had this content
	// and nothing was republished.
	Unchanged bool `json:"unchanged,omitempty"`
}

// Document is the metadata row kept for every ingested document.
type Document struct {
	ID          string     `json:"document_id"`
	Title       string     `json:"title"`
	ContentHash string     `json:"content_hash"`
	ContentSize int        `json:"content_size"`
	ShardID     int        `json:"shard_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	IndexedAt   *time.Time `json:"indexed_at,omitempty"`
}
