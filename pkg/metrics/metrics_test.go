package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DistinctDroppedTotal.Add(3)
	m.RankingCandidates.Observe(42)
	m.SearchQueriesTotal.WithLabelValues("hit").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[f.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				values[f.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, 3.0, values["distinct_dropped_total"])
	assert.Equal(t, 1.0, values["ranking_candidates"])
	assert.Equal(t, 1.0, values["search_queries_total"])

	assert.Panics(t, func() { New(reg) })
}
