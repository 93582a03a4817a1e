package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"docsearch/internal/domain"
	"docsearch/internal/filter"
)

// SemanticSearch embeds query and returns up to topK chunks ranked by
// similarity that satisfy filters. topK <= 0 selects the default and larger
// values are capped. Fewer results than requested is not an error.
func (s *RAGService) SemanticSearch(ctx context.Context, query string, topK int, filters filter.Set) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []domain.SearchResult{}
	n := s.store.Len()
	if n == 0 {
		return results, nil
	}
	topK = s.clampTopK(topK)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return results, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if dim := s.index.Dimension(); len(vec) != dim {
		return results, fmt.Errorf("%w: %w: query has %d, index has %d", domain.ErrEmbedding, domain.ErrDimensionMismatch, len(vec), dim)
	}

	hits, err := s.index.Search(vec, topK*s.overFetch)
	if err != nil {
		return results, err
	}
	for _, h := range hits {
		if h.Index < 0 || h.Index >= n {
			continue
		}
		rec, err := s.store.Get(h.Index)
		if err != nil {
			continue
		}
		if !filter.Matches(rec, filters) {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: rec, Score: h.Score})
		if len(results) == topK {
			break
		}
	}
	s.logger.Debug("semantic search", "candidates", len(hits), "results", len(results), "filters", len(filters))
	return results, nil
}

// KeywordSearch scores every chunk by the fraction of keywords it contains
// (case-insensitive substring) and returns the best topK with a positive
// score. Keywords are trimmed and blank ones are dropped before scoring, so
// they do not count towards the denominator: ["a", " "] scores a match on
// "a" as 1.0.
func (s *RAGService) KeywordSearch(keywords []string, topK int) []domain.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []domain.SearchResult{}
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			terms = append(terms, k)
		}
	}
	if len(terms) == 0 {
		return results
	}
	topK = s.clampTopK(topK)

	for _, rec := range s.store.Records() {
		text := strings.ToLower(rec.ChunkText)
		hits := 0
		for _, t := range terms {
			if strings.Contains(text, t) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: rec, Score: float64(hits) / float64(len(terms))})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// ParseKeywords splits a comma-separated list and drops blank entries.
func ParseKeywords(raw string) []string {
	var out []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// SortKey selects the ordering applied by SortResults.
type SortKey string

const (
	SortByRelevance SortKey = "relevance"
	SortByDate      SortKey = "date"
	SortByAuthor    SortKey = "author"
	SortByTitle     SortKey = "title"
)

// SortKeys lists the keys in the order a UI cycles through them.
var SortKeys = []SortKey{SortByRelevance, SortByDate, SortByAuthor, SortByTitle}

// ParseSortKey maps user input to a SortKey. Empty input means relevance.
func ParseSortKey(raw string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case "":
		return SortByRelevance, nil
	case SortByRelevance, SortByDate, SortByAuthor, SortByTitle:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidInput, raw)
	}
}

// SortResults returns a stably sorted copy of results: relevance and date
// descending, author and title ascending. Missing values sort as empty strings.
func SortResults(results []domain.SearchResult, key SortKey) []domain.SearchResult {
	out := make([]domain.SearchResult, len(results))
	copy(out, results)
	var less func(a, b domain.SearchResult) bool
	switch key {
	case SortByDate:
		less = func(a, b domain.SearchResult) bool { return a.Chunk.Date > b.Chunk.Date }
	case SortByAuthor:
		less = func(a, b domain.SearchResult) bool { return a.Chunk.Author < b.Chunk.Author }
	case SortByTitle:
		less = func(a, b domain.SearchResult) bool { return a.Chunk.Title < b.Chunk.Title }
	default:
		less = func(a, b domain.SearchResult) bool { return a.Score > b.Score }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
