package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/resilience"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemStore() *memStore { return &memStore{data: make(map[string]string)} }

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func key(q string) Key {
	return Key{Plan: parser.Parse(q), Limit: 10}
}

func TestQueryCache_GetOrCompute(t *testing.T) {
	c := New(newMemStore(), config.RedisConfig{CacheTTL: time.Minute}, nil)
	ctx := context.Background()
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return &executor.SearchResult{Query: "ranking", TotalHits: 1, Results: []executor.Hit{{DocID: "1"}}}, nil
	}

	res, hit, err := c.GetOrCompute(ctx, key("ranking"), compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, res.TotalHits)

	res, hit, err = c.GetOrCompute(ctx, key("ranking"), compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "1", res.Results[0].DocID)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestQueryCache_EchoesCallerQuery(t *testing.T) {
	c := New(newMemStore(), config.RedisConfig{CacheTTL: time.Minute}, nil)
	ctx := context.Background()
	compute := func() (*executor.SearchResult, error) {
		return &executor.SearchResult{Query: "Ranking guide", TotalHits: 1}, nil
	}

	res, hit, err := c.GetOrCompute(ctx, key("Ranking guide"), compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Ranking guide", res.Query)

	res, hit, err = c.GetOrCompute(ctx, key("ranking  guide"), compute)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "ranking  guide", res.Query)
}

func TestQueryCache_ComputeError(t *testing.T) {
	c := New(newMemStore(), config.RedisConfig{}, nil)
	want := errors.New("ranking failed")
	_, _, err := c.GetOrCompute(context.Background(), key("ranking"), func() (*executor.SearchResult, error) {
		return nil, want
	})
	assert.ErrorIs(t, err, want)
	_, ok := c.Get(context.Background(), key("ranking"))
	assert.False(t, ok)
}

func TestQueryCache_Invalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, config.RedisConfig{}, nil)
	ctx := context.Background()
	c.Set(ctx, key("ranking"), &executor.SearchResult{})
	c.Set(ctx, key("rules"), &executor.SearchResult{})
	store.data["other:key"] = "x"

	require.NoError(t, c.Invalidate(ctx))
	_, ok := c.Get(ctx, key("ranking"))
	assert.False(t, ok)
	assert.Equal(t, map[string]string{"other:key": "x"}, store.data)
}

func TestQueryCache_StoreFailureOpensBreaker(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, config.RedisConfig{}, nil)
	for range 5 {
		_, ok := c.Get(context.Background(), key("ranking"))
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	res, hit, err := c.GetOrCompute(context.Background(), key("ranking"), func() (*executor.SearchResult, error) {
		return &executor.SearchResult{TotalHits: 2}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, res.TotalHits)
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, buildKey(key("ranking rules")), buildKey(key("Ranking  rules")))
	assert.NotEqual(t, buildKey(key("ranking rules")), buildKey(key("rules ranking")))
	assert.NotEqual(t, buildKey(key("ranking")), buildKey(key("ranking ")))
	assert.Equal(t, buildKey(key("ranking NOT rust NOT pasta")), buildKey(key("ranking NOT pasta NOT rust")))

	paged := key("ranking")
	paged.Offset = 10
	assert.NotEqual(t, buildKey(key("ranking")), buildKey(paged))
	assert.True(t, strings.HasPrefix(buildKey(paged), keyPrefix))
}
