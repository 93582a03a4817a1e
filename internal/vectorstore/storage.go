package vectorstore

import (
	"errors"
	"math"
)

// NoResult marks an empty slot some index implementations use to pad results.
const NoResult = -1

var (
	ErrNotInitialized   = errors.New("vector index not initialized")
	ErrInvalidDimension = errors.New("invalid dimension")
)

// Hit is one neighbour returned by an index: the insertion position of the
// vector and its inner product with the query.
type Hit struct {
	Index int
	Score float64
}

// Index stores fixed-dimension vectors and answers exact k-nearest-neighbour
// queries by inner product. Vectors are addressed by insertion order.
type Index interface {
	Init(dimension int) error
	Add(vectors [][]float64) error
	Search(vector []float64, k int) ([]Hit, error)
	Dimension() int
	Len() int
	Clear() error
}

// Normalize returns an L2-normalised copy of v. The zero vector is returned
// unchanged (as a copy).
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	n := 0.0
	for _, x := range v {
		n += x * x
	}
	n = math.Sqrt(n)
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	return out
}
