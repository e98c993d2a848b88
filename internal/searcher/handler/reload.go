package handler

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/metrics"
)

// Reloader is satisfied by *shard.Router.
type Reloader interface {
	ReloadAll() int
	GetAllEngines() map[int]*indexer.Engine
}

// Invalidator is satisfied by *cache.QueryCache.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ReloadOnFlush returns a Kafka handler for flush notifications: it loads
// new segments on every shard, drops cached results once anything changed
// and refreshes the shard gauges. inv and m may be nil.
func ReloadOnFlush(router Reloader, inv Invalidator, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "segment-reloader")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := analytics.Decode(value)
		if err != nil {
			logger.Error("failed to decode flush event", "error", err)
			return nil
		}
		flushed, ok := event.(*analytics.IndexEvent)
		if !ok {
			return nil
		}
		added := router.ReloadAll()
		logger.Info("flush notification handled",
			"shard_id", flushed.ShardID,
			"segment", flushed.Segment,
			"segments_added", added,
		)
		if added > 0 && inv != nil {
			if err := inv.Invalidate(ctx); err != nil {
				logger.Warn("cache invalidation after reload failed", "error", err)
			}
		}
		RecordShardGauges(router, m)
		return nil
	}
}

// RecordShardGauges publishes the document count of every shard.
func RecordShardGauges(router Reloader, m *metrics.Metrics) {
	if m == nil {
		return
	}
	engines := router.GetAllEngines()
	m.ActiveShards.Set(float64(len(engines)))
	for id, engine := range engines {
		m.ShardDocCount.WithLabelValues(strconv.Itoa(id)).Set(float64(engine.GetTotalDocs()))
	}
}
