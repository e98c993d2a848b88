package executor

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/metrics"
)

var corpus = []struct{ id, title, body string }{
	{"1", "Rust ranking rules", "typo words proximity attribute exact"},
	{"2", "Ranking guide", "how ranking rules order documents"},
	{"3", "Ranking guide", "a duplicate title about ranking"},
	{"4", "Cooking pasta", "boil water then add salt"},
}

var matchOptions = indexer.MatchOptions{OneTypoMinLen: 5, TwoTyposMinLen: 9, PrefixLastWord: true}

func indexerConfig(dir string) config.IndexerConfig {
	return config.IndexerConfig{DataDir: dir, SegmentMaxSize: 1 << 20, FlushInterval: time.Hour}
}

func newEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewEngine(indexerConfig(t.TempDir()), matchOptions)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	for _, d := range corpus {
		require.NoError(t, e.IndexDocument(d.id, d.title, d.body))
	}
	return e
}

func newRouter(t *testing.T, shards int) *shard.Router {
	t.Helper()
	r, err := shard.NewRouter(indexerConfig(t.TempDir()), shards, matchOptions)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	for _, d := range corpus {
		e, err := r.Route(r.ShardFor(d.id))
		require.NoError(t, err)
		require.NoError(t, e.IndexDocument(d.id, d.title, d.body))
	}
	return r
}

func hitIDs(res *SearchResult) []string {
	out := make([]string, len(res.Results))
	for i, h := range res.Results {
		out[i] = h.DocID
	}
	return out
}

type searcher interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, opts Options) (*SearchResult, error)
}

func TestExecutors(t *testing.T) {
	cfg := Config{DistinctSize: 1, Metrics: metrics.New(prometheus.NewRegistry())}
	executors := map[string]searcher{
		"single":  New(newEngine(t), cfg),
		"sharded": NewSharded(newRouter(t, 3).GetAllEngines(), cfg, time.Second),
	}
	tests := []struct {
		name  string
		query string
		opts  Options
		want  []string
		total int
	}{
		{"and requires every word", "ranking rules ", Options{Limit: 10}, []string{"1", "2"}, 2},
		{"or keeps partial matches", "ranking OR rules ", Options{Limit: 10}, []string{"1", "2", "3"}, 3},
		{"not excludes", "ranking NOT rust", Options{Limit: 10}, []string{"2", "3"}, 2},
		{"paging", "ranking OR rules ", Options{Offset: 1, Limit: 1}, []string{"2"}, 3},
		{"distinct by title", "ranking OR guide ", Options{Limit: 10, Distinct: true}, []string{"2", "1"}, 3},
		{"without distinct", "ranking OR guide ", Options{Limit: 10}, []string{"2", "3", "1"}, 3},
		{"prefix on last word", "cook", Options{Limit: 10}, []string{"4"}, 1},
		{"no match", "zebra", Options{Limit: 10}, []string{}, 0},
	}
	for name, ex := range executors {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				res, err := ex.Execute(context.Background(), parser.Parse(tt.query), tt.opts)
				require.NoError(t, err)
				assert.Equal(t, tt.want, hitIDs(res))
				assert.Equal(t, tt.total, res.TotalHits)
				assert.Equal(t, tt.opts.Offset, res.Offset)
			})
		}
	}
}

func TestExecutor_HitDetails(t *testing.T) {
	ex := New(newEngine(t), Config{})
	res, err := ex.Execute(context.Background(), parser.Parse("ranking rules "), Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	hit := res.Results[0]
	assert.Equal(t, "1", hit.DocID)
	assert.Equal(t, "Rust ranking rules", hit.Title)
	assert.Equal(t, 2, hit.MatchedTerms)
	assert.Equal(t, []HitMatch{
		{Term: "ranking", QueryIndex: 0, Attribute: "title", WordIndex: 1, CharIndex: 5, CharLength: 7, Exact: true},
		{Term: "rules", QueryIndex: 1, Attribute: "title", WordIndex: 2, CharIndex: 13, CharLength: 5, Exact: true},
	}, hit.Matches)
	assert.Equal(t, map[string]int{"ranking": 3, "rules": 2}, res.TermStats)
}

func TestExecutor_EmptyAndInvalid(t *testing.T) {
	ex := New(newEngine(t), Config{})

	res, err := ex.Execute(context.Background(), parser.Parse("the"), Options{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)

	_, err = ex.Execute(context.Background(), parser.Parse("ranking"), Options{Limit: 0})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatusCode(err))

	sharded := NewSharded(nil, Config{}, 0)
	_, err = sharded.Execute(context.Background(), parser.Parse("ranking"), Options{Offset: -1, Limit: 5})
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatusCode(err))
}

func TestShardedExecutor_Timeout(t *testing.T) {
	r := newRouter(t, 2)
	ex := NewSharded(r.GetAllEngines(), Config{}, time.Nanosecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ex.Execute(ctx, parser.Parse("ranking"), Options{Limit: 5})
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatusCode(err))
}

func TestTitleKey(t *testing.T) {
	e := newEngine(t)
	key := TitleKey(e.DocInfo)
	k2, ok := key("2")
	require.True(t, ok)
	k3, _ := key("3")
	assert.Equal(t, "ranking guide", k2)
	assert.Equal(t, k2, k3)
	_, ok = key("missing")
	assert.False(t, ok)
}
