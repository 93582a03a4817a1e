// Package mock provides test doubles for the embedding boundary.
package mock

import (
	"context"
	"hash/fnv"
	"sync"
)

// Embedder is a test double for embedding.Embedder.
// Behaviour can be replaced through the function fields.
type Embedder struct {
	// Dim is the vector size of the default behaviour. Zero means 8.
	Dim int

	// EmbedFunc is called by Embed if set.
	EmbedFunc func(ctx context.Context, text string) ([]float64, error)

	// EmbedBatchFunc is called by EmbedBatch if set.
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float64, error)

	// PrepareFunc is called by Prepare if set.
	PrepareFunc func(corpus []string) error

	mu        sync.Mutex
	callCount int
}

// NewEmbedder creates a mock embedder with deterministic default vectors.
func NewEmbedder(dim int) *Embedder {
	return &Embedder{Dim: dim}
}

func (m *Embedder) Name() string { return "mock" }

func (m *Embedder) Prepare(corpus []string) error {
	if m.PrepareFunc != nil {
		return m.PrepareFunc(corpus)
	}
	return nil
}

func (m *Embedder) Dimension() int {
	if m.Dim == 0 {
		return 8
	}
	return m.Dim
}

// Embed returns a vector derived from the text hash unless EmbedFunc is set.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.count()
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return deterministicVector(text, m.Dimension()), nil
}

// EmbedBatch delegates to EmbedBatchFunc, then EmbedFunc, then the default.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	m.count()
	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if m.EmbedFunc != nil {
			v, err := m.EmbedFunc(ctx, text)
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}
		out[i] = deterministicVector(text, m.Dimension())
	}
	return out, nil
}

// CallCount returns the number of Embed and EmbedBatch calls.
func (m *Embedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *Embedder) count() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

// deterministicVector seeds an LCG with the FNV hash of text.
func deterministicVector(text string, dim int) []float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	v := make([]float64, dim)
	for i := range v {
		seed = seed*1664525 + 1013904223
		v[i] = float64(seed%1000)/1000.0 + 0.001
	}
	return v
}
