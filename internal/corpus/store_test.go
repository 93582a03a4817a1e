package corpus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/domain"
)

func loaded(t *testing.T, n int) *Store {
	t.Helper()
	recs := make([]domain.ChunkRecord, n)
	vecs := make([][]float64, n)
	for i := range recs {
		recs[i] = domain.ChunkRecord{Filename: "f.txt", LocalChunkID: i, RelevanceScore: InitialRelevance}
		vecs[i] = []float64{float64(i)}
	}
	s := New()
	require.NoError(t, s.Load(recs, vecs))
	return s
}

func TestLoad_Misaligned(t *testing.T) {
	err := New().Load(make([]domain.ChunkRecord, 2), make([][]float64, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad_AssignsGlobalIndex(t *testing.T) {
	s := loaded(t, 3)
	for i, r := range s.Records() {
		assert.Equal(t, i, r.GlobalIndex)
	}
	v, err := s.Vector(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, v)
}

func TestGet_OutOfRange(t *testing.T) {
	s := loaded(t, 1)
	_, err := s.Get(1)
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
	_, err = s.Get(-1)
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
	_, err = s.Vector(5)
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestUpdateRelevance(t *testing.T) {
	s := loaded(t, 2)

	got, err := s.UpdateRelevance(1, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)

	got, err = s.UpdateRelevance(1, 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.375, got, 1e-12)

	r, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, InitialRelevance, r.RelevanceScore)
}

func TestUpdateRelevance_Convergence(t *testing.T) {
	s := loaded(t, 1)
	var got float64
	for i := 0; i < 10; i++ {
		var err error
		got, err = s.UpdateRelevance(0, 1.0)
		require.NoError(t, err)
	}
	assert.Greater(t, got, 0.999)
	assert.Less(t, got, 1.0)
}

func TestUpdateRelevance_Rejects(t *testing.T) {
	s := loaded(t, 2)
	before := s.Records()

	_, err := s.UpdateRelevance(2, 1)
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
	_, err = s.UpdateRelevance(0, 1.5)
	assert.ErrorIs(t, err, domain.ErrInvalidFeedback)
	_, err = s.UpdateRelevance(0, -0.1)
	assert.ErrorIs(t, err, domain.ErrInvalidFeedback)

	assert.Equal(t, before, s.Records())
}

func TestUpdateRelevance_Concurrent(t *testing.T) {
	s := loaded(t, 130)
	var wg sync.WaitGroup
	for i := 0; i < 130; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpdateRelevance(i, 1)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	for _, r := range s.Records() {
		assert.InDelta(t, 0.75, r.RelevanceScore, 1e-12)
	}
}
