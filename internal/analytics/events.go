package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventSegmentOut EventType = "segment_flushed"
)

// SearchEvent describes one answered query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	QueryType string    `json:"query_type"`
	Offset    int       `json:"offset"`
	Limit     int       `json:"limit"`
	Distinct  bool      `json:"distinct"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	TypoHits  int       `json:"typo_hits"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent is published by the indexer after a shard flushes a segment.
// The searcher reloads segments when it sees one.
type IndexEvent struct {
	Type      EventType `json:"type"`
	ShardID   int       `json:"shard_id"`
	Segment   string    `json:"segment"`
	Docs      int       `json:"docs"`
	Timestamp time.Time `json:"timestamp"`
}

// Decode inspects the type field and returns a *SearchEvent or *IndexEvent.
func Decode(value []byte) (any, error) {
	var envelope struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}
	var target any
	switch envelope.Type {
	case EventSearch:
		target = &SearchEvent{}
	case EventSegmentOut:
		target = &IndexEvent{}
	default:
		return nil, fmt.Errorf("unknown event type %q", envelope.Type)
	}
	if err := json.Unmarshal(value, target); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", envelope.Type, err)
	}
	return target, nil
}
