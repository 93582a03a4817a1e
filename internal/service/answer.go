package service

import (
	"context"
	"errors"
	"fmt"

	"docsearch/internal/domain"
)

const (
	contextSize     = 3
	sourceTextLimit = 300
	noResultsAnswer = "I could not find relevant information to answer your question."
)

var errNoGenerator = errors.New("no answer generator configured")

// Answer asks the generator to answer question from the first three results.
// Failures are reported inside the returned Answer, never as a panic or a
// separate error.
func (s *RAGService) Answer(ctx context.Context, question string, results []domain.SearchResult) domain.Answer {
	if len(results) == 0 {
		return domain.Answer{Text: noResultsAnswer, Sources: []domain.Source{}}
	}
	top := results
	if len(top) > contextSize {
		top = top[:contextSize]
	}
	contexts := make([]domain.ContextRecord, len(top))
	for i, r := range top {
		contexts[i] = domain.ContextRecord{
			Title:     r.Chunk.Title,
			Author:    orUnknown(r.Chunk.Author),
			Date:      orUnknown(r.Chunk.Date),
			ChunkText: r.Chunk.ChunkText,
		}
	}

	text, err := s.generate(ctx, question, contexts)
	if err != nil {
		s.logger.Error("answer generation failed", "err", err)
		return domain.Answer{
			Text:    fmt.Sprintf("Error generating answer: %v", err),
			Sources: []domain.Source{},
			Err:     fmt.Errorf("%w: %w", domain.ErrGeneration, err),
		}
	}

	sources := make([]domain.Source, len(top))
	sum := 0.0
	for i, r := range top {
		sources[i] = domain.Source{
			Title:          r.Chunk.Title,
			Author:         contexts[i].Author,
			Date:           contexts[i].Date,
			RelevanceScore: r.Score,
			ChunkText:      truncate(r.Chunk.ChunkText, sourceTextLimit),
		}
		sum += r.Score
	}
	confidence := sum / contextSize
	if confidence > 1 {
		confidence = 1
	}
	return domain.Answer{Text: text, Sources: sources, Confidence: confidence}
}

func (s *RAGService) generate(ctx context.Context, question string, contexts []domain.ContextRecord) (text string, err error) {
	if s.generator == nil {
		return "", errNoGenerator
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator %s panicked: %v", s.generator.Name(), r)
		}
	}()
	return s.generator.Generate(ctx, question, contexts)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// truncate cuts s to limit runes and marks the cut with "...".
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
