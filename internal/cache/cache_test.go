package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemBackend() *memBackend { return &memBackend{data: map[string][]byte{}} }

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memBackend) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

var sample = []domain.SearchResult{{Chunk: domain.ChunkRecord{GlobalIndex: 3, Title: "a"}, Score: 0.7}}

func TestBuildKey_Normalises(t *testing.T) {
	a := BuildKey(Query{Mode: "semantic", Text: "Company  Earnings", TopK: 5, Filters: map[string]string{"author": "x", "date": "2024"}})
	b := BuildKey(Query{Mode: "semantic", Text: "company earnings ", TopK: 5, Filters: map[string]string{"date": "2024", "author": "x"}})
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, keyPrefix))

	assert.NotEqual(t, a, BuildKey(Query{Mode: "keyword", Text: "company earnings", TopK: 5}))
	assert.NotEqual(t, a, BuildKey(Query{Mode: "semantic", Text: "company earnings", TopK: 6, Filters: map[string]string{"author": "x", "date": "2024"}}))
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemBackend(), time.Minute)
	q := Query{Mode: "semantic", Text: "q", TopK: 5}
	calls := 0
	compute := func() ([]domain.SearchResult, error) {
		calls++
		return sample, nil
	}

	got, hit, err := c.GetOrCompute(context.Background(), q, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, sample, got)

	got, hit, err = c.GetOrCompute(context.Background(), q, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sample, got)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	c := New(newMemBackend(), time.Minute)
	q := Query{Mode: "semantic", Text: "q"}
	boom := errors.New("embed down")

	_, _, err := c.GetOrCompute(context.Background(), q, func() ([]domain.SearchResult, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(context.Background(), q)
	assert.False(t, ok)
}

func TestGetOrCompute_CollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemBackend(), time.Minute)
	q := Query{Mode: "keyword", Text: "k"}
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), q, func() ([]domain.SearchResult, error) {
				calls.Add(1)
				<-release
				return sample, nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestBackendErrorIsMiss(t *testing.T) {
	b := newMemBackend()
	b.err = errors.New("connection refused")
	c := New(b, time.Minute)
	_, ok := c.Get(context.Background(), Query{Text: "q"})
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	b := newMemBackend()
	c := New(b, time.Minute)
	c.Set(context.Background(), Query{Text: "a"}, sample)
	c.Set(context.Background(), Query{Text: "b"}, sample)
	b.data["other:key"] = []byte("x")

	require.NoError(t, c.Invalidate(context.Background()))
	assert.Len(t, b.data, 1)
	_, ok := c.Get(context.Background(), Query{Text: "a"})
	assert.False(t, ok)
}
