package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/redis"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	clear(s.data)
	return n, nil
}

type tracker struct{ events []analytics.SearchEvent }

func (t *tracker) Track(e analytics.SearchEvent) { t.events = append(t.events, e) }

func newExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	cfg := config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 20, FlushInterval: time.Hour}
	e, err := indexer.NewEngine(cfg, indexer.MatchOptions{OneTypoMinLen: 5, TwoTyposMinLen: 9, PrefixLastWord: true})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	require.NoError(t, e.IndexDocument("1", "Ranking rules", "typo proximity attribute"))
	require.NoError(t, e.IndexDocument("2", "Ranking guide", "how the rules order documents"))
	require.NoError(t, e.IndexDocument("3", "Ranking guide", "another copy"))
	return executor.New(e, executor.Config{DistinctSize: 1})
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) executor.SearchResult {
	t.Helper()
	var res executor.SearchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestSearch(t *testing.T) {
	tr := &tracker{}
	h := New(newExecutor(t), nil, tr, nil, config.SearchConfig{DefaultLimit: 10, MaxResults: 2})

	rec := serve(h, http.MethodGet, "/api/v1/search?q=ranking+rules+")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "1", res.Results[0].DocID)
	assert.Equal(t, 2, res.Limit)

	rec = serve(h, http.MethodGet, "/api/v1/search?q=ranking+OR+guide+&distinct=true&offset=0&limit=5")
	res = decode(t, rec)
	ids := []string{}
	for _, hit := range res.Results {
		ids = append(ids, hit.DocID)
	}
	assert.Equal(t, []string{"2", "1"}, ids)

	rec = serve(h, http.MethodGet, "/api/v1/search?q=guidx+")
	res = decode(t, rec)
	assert.Equal(t, 2, res.TotalHits)

	require.Len(t, tr.events, 3)
	assert.Equal(t, "AND", tr.events[0].QueryType)
	assert.True(t, tr.events[1].Distinct)
	assert.Equal(t, 2, tr.events[2].TypoHits)
}

func TestSearch_BadRequests(t *testing.T) {
	h := New(newExecutor(t), nil, nil, nil, config.SearchConfig{})
	for _, target := range []string{
		"/api/v1/search",
		"/api/v1/search?q=x&limit=0",
		"/api/v1/search?q=x&limit=abc",
		"/api/v1/search?q=x&offset=-1",
		"/api/v1/search?q=x&distinct=maybe",
	} {
		rec := serve(h, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

type failingExecutor struct{ err error }

func (f failingExecutor) Execute(context.Context, *parser.QueryPlan, executor.Options) (*executor.SearchResult, error) {
	return nil, f.err
}

func TestSearch_ExecutorErrorStatus(t *testing.T) {
	h := New(failingExecutor{err: apperrors.ErrShardUnavailable}, nil, nil, nil, config.SearchConfig{})
	rec := serve(h, http.MethodGet, "/api/v1/search?q=ranking")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearch_CacheAndInvalidate(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	qc := cache.New(store, config.RedisConfig{CacheTTL: time.Minute}, nil)
	tr := &tracker{}
	h := New(newExecutor(t), qc, tr, nil, config.SearchConfig{DefaultLimit: 10})

	first := serve(h, http.MethodGet, "/api/v1/search?q=ranking")
	second := serve(h, http.MethodGet, "/api/v1/search?q=ranking")
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	require.Len(t, tr.events, 2)
	assert.False(t, tr.events[0].CacheHit)
	assert.True(t, tr.events[1].CacheHit)

	rec := serve(h, http.MethodGet, "/api/v1/cache/stats")
	var stats map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, float64(1), stats["hits"])
	assert.Equal(t, "closed", stats["breaker"])

	rec = serve(h, http.MethodPost, "/api/v1/cache/invalidate")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.data)
}

func TestCacheEndpoints_Disabled(t *testing.T) {
	h := New(newExecutor(t), nil, nil, nil, config.SearchConfig{})
	rec := serve(h, http.MethodGet, "/api/v1/cache/stats")
	assert.True(t, strings.Contains(rec.Body.String(), "disabled"))
	rec = serve(h, http.MethodPost, "/api/v1/cache/invalidate")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
