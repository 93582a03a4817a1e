package memory

import (
	"fmt"
	"sort"
	"sync"

	"docsearch/internal/domain"
	"docsearch/internal/vectorstore"
)

// Storage is an in-memory flat index using brute-force inner product over
// L2-normalised vectors, which equals cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
}

var _ vectorstore.Index = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{} }

// Init sets the dimension and drops any stored vectors.
func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: %d", vectorstore.ErrInvalidDimension, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	return nil
}

// Add appends normalised copies of vectors. The batch is rejected as a whole
// if any vector has the wrong dimension.
func (s *Storage) Add(vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return vectorstore.ErrNotInitialized
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: vector %d has %d, index has %d", domain.ErrDimensionMismatch, i, len(v), s.dimension)
		}
	}
	for _, v := range vectors {
		s.vectors = append(s.vectors, vectorstore.Normalize(v))
	}
	return nil
}

// Search returns at most k hits ordered by descending score. Equal scores
// keep insertion order.
func (s *Storage) Search(vector []float64, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.vectors) == 0 || k <= 0 {
		return []Hit{}, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	q := vectorstore.Normalize(vector)
	hits := make([]Hit, len(s.vectors))
	for i := range s.vectors {
		hits[i] = Hit{Index: i, Score: dot(s.vectors[i], q)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Clear drops stored vectors but keeps the dimension.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	return nil
}

// Hit aliases the shared result type so callers of this package need not import vectorstore.
type Hit = vectorstore.Hit

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
