// Package handler exposes the search pipeline over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/metrics"
)

// CacheHeader reports HIT or MISS on searches served with a cache.
const CacheHeader = "X-Cache"

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, opts executor.Options) (*executor.SearchResult, error)
}

// EventTracker receives one event per answered query.
type EventTracker interface {
	Track(event analytics.SearchEvent)
}

type Handler struct {
	executor SearchExecutor
	cache    *cache.QueryCache
	tracker  EventTracker
	metrics  *metrics.Metrics
	cfg      config.SearchConfig
	distinct bool
	inflight *semaphore.Weighted
	logger   *slog.Logger
}

// New wires a handler. queryCache, tracker and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, tracker EventTracker, m *metrics.Metrics, cfg config.SearchConfig) *Handler {
	h := &Handler{
		executor: exec,
		cache:    queryCache,
		tracker:  tracker,
		metrics:  m,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
	if cfg.MaxConcurrentQueries > 0 {
		h.inflight = semaphore.NewWeighted(int64(cfg.MaxConcurrentQueries))
	}
	return h
}

// DistinctByDefault sets the distinct mode used when a request omits the
// distinct parameter.
func (h *Handler) DistinctByDefault(on bool) *Handler {
	h.distinct = on
	return h
}

// Register mounts the search routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=&offset=&limit=&distinct=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	opts, err := h.parseOptions(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.inflight != nil {
		if !h.inflight.TryAcquire(1) {
			h.writeError(w, http.StatusTooManyRequests, "too many concurrent queries")
			return
		}
		defer h.inflight.Release(1)
	}

	plan := parser.Parse(query)
	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil && len(plan.Terms) > 0 {
		key := cache.Key{Plan: plan, Offset: opts.Offset, Limit: opts.Limit, Distinct: opts.Distinct}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, opts)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, opts)
	}
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search execution failed", "query", query, "status", status, "error", err)
		h.observe("error", cacheHit, start, 0)
		h.writeError(w, status, http.StatusText(status))
		return
	}

	latency := time.Since(start)
	resultType := "miss"
	switch {
	case result.TotalHits == 0:
		resultType = "zero_result"
	case cacheHit:
		resultType = "hit"
	}
	h.observe(resultType, cacheHit, start, len(result.Results))
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"offset", opts.Offset,
		"distinct", opts.Distinct,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil {
		h.tracker.Track(analytics.SearchEvent{
			Type:      analytics.EventSearch,
			Query:     query,
			Terms:     plan.Words(),
			QueryType: plan.Type.String(),
			Offset:    opts.Offset,
			Limit:     opts.Limit,
			Distinct:  opts.Distinct,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			TypoHits:  typoHits(result),
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
	if h.cache != nil {
		state := "MISS"
		if cacheHit {
			state = "HIT"
		}
		w.Header().Set(CacheHeader, state)
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseOptions(r *http.Request) (executor.Options, error) {
	q := r.URL.Query()
	opts := executor.Options{Limit: h.cfg.DefaultLimit, Distinct: h.distinct}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("limit must be a positive integer")
		}
		opts.Limit = n
	}
	if h.cfg.MaxResults > 0 {
		opts.Limit = min(opts.Limit, h.cfg.MaxResults)
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	if s := q.Get("distinct"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return opts, fmt.Errorf("distinct must be a boolean")
		}
		opts.Distinct = b
	}
	return opts, nil
}

func (h *Handler) observe(resultType string, cacheHit bool, start time.Time, returned int) {
	if h.metrics == nil {
		return
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	if resultType != "error" {
		h.metrics.SearchResultsCount.Observe(float64(returned))
	}
}

// typoHits counts the returned hits matched through at least one
// non-exact word.
func typoHits(result *executor.SearchResult) int {
	n := 0
	for _, hit := range result.Results {
		for _, m := range hit.Matches {
			if !m.Exact {
				n++
				break
			}
		}
	}
	return n
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
