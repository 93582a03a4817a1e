package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveSearch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSearch("semantic", 3, nil)
	m.ObserveSearch("semantic", 0, nil)
	m.ObserveSearch("keyword", 0, errors.New("x"))

	out := scrape(t, m)
	assert.Contains(t, out, `search_queries_total{mode="semantic",result_type="hit"} 1`)
	assert.Contains(t, out, `search_queries_total{mode="semantic",result_type="zero_result"} 1`)
	assert.Contains(t, out, `search_queries_total{mode="keyword",result_type="error"} 1`)
	assert.Contains(t, out, `search_results_count_count{mode="semantic"} 2`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.CorpusChunks.Set(42)
	assert.Contains(t, scrape(t, m), "corpus_chunks 42")
}
