// Package corpus holds the ingested chunk records and their embeddings as one
// index-aligned aggregate.
package corpus

import (
	"fmt"
	"sync"

	"docsearch/internal/domain"
)

// InitialRelevance is the stored relevance of a record before any feedback.
const InitialRelevance = 0.5

const stripes = 64

// Store keeps records[i] and vectors[i] describing the same chunk. The slices
// are replaced wholesale by Load and never resized afterwards, so readers may
// index them without the store lock. Only RelevanceScore is mutated in place,
// under the record's stripe lock.
type Store struct {
	mu      sync.RWMutex
	records []domain.ChunkRecord
	vectors [][]float64
	locks   [stripes]sync.Mutex
}

func New() *Store { return &Store{} }

// Load replaces the contents of the store. GlobalIndex of every record is
// reassigned to its position.
func (s *Store) Load(records []domain.ChunkRecord, vectors [][]float64) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("%w: %d records, %d vectors", domain.ErrInvalidInput, len(records), len(vectors))
	}
	recs := make([]domain.ChunkRecord, len(records))
	copy(recs, records)
	for i := range recs {
		recs[i].GlobalIndex = i
	}
	s.mu.Lock()
	s.records = recs
	s.vectors = vectors
	s.mu.Unlock()
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns a copy of the record at globalIndex.
func (s *Store) Get(globalIndex int) (domain.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if globalIndex < 0 || globalIndex >= len(s.records) {
		return domain.ChunkRecord{}, fmt.Errorf("%w: %d", domain.ErrChunkNotFound, globalIndex)
	}
	l := s.lockFor(globalIndex)
	l.Lock()
	defer l.Unlock()
	return s.records[globalIndex], nil
}

// Records returns a snapshot copy of all records in corpus order.
func (s *Store) Records() []domain.ChunkRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChunkRecord, len(s.records))
	for i := range s.records {
		l := s.lockFor(i)
		l.Lock()
		out[i] = s.records[i]
		l.Unlock()
	}
	return out
}

// Vector returns the embedding stored for globalIndex. The slice must not be modified.
func (s *Store) Vector(globalIndex int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if globalIndex < 0 || globalIndex >= len(s.vectors) {
		return nil, fmt.Errorf("%w: %d", domain.ErrChunkNotFound, globalIndex)
	}
	return s.vectors[globalIndex], nil
}

// UpdateRelevance folds feedback into the stored relevance of one record as
// the mean of the old score and the feedback, and returns the new score.
// An unknown index leaves every record untouched.
func (s *Store) UpdateRelevance(globalIndex int, feedback float64) (float64, error) {
	if feedback < 0 || feedback > 1 {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidFeedback, feedback)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if globalIndex < 0 || globalIndex >= len(s.records) {
		return 0, fmt.Errorf("%w: %d", domain.ErrChunkNotFound, globalIndex)
	}
	l := s.lockFor(globalIndex)
	l.Lock()
	defer l.Unlock()
	r := &s.records[globalIndex]
	r.RelevanceScore = (r.RelevanceScore + feedback) / 2
	return r.RelevanceScore, nil
}

func (s *Store) lockFor(globalIndex int) *sync.Mutex {
	return &s.locks[globalIndex%stripes]
}
