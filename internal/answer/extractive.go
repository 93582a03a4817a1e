package answer

import (
	"context"
	"strings"

	"docsearch/internal/domain"
	"docsearch/internal/summarizer"
)

// ExtractiveGenerator answers offline by selecting the context sentences most
// related to the question.
type ExtractiveGenerator struct {
	summarizer   *summarizer.FrequencySummarizer
	maxSentences int
}

var _ domain.Generator = (*ExtractiveGenerator)(nil)

func NewExtractiveGenerator(s *summarizer.FrequencySummarizer, maxSentences int) *ExtractiveGenerator {
	if s == nil {
		s = summarizer.NewFrequencySummarizer()
	}
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &ExtractiveGenerator{summarizer: s, maxSentences: maxSentences}
}

func (g *ExtractiveGenerator) Name() string { return "extractive" }

func (g *ExtractiveGenerator) Generate(ctx context.Context, question string, contexts []domain.ContextRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	texts := make([]string, 0, len(contexts))
	for _, c := range contexts {
		t := strings.TrimSpace(c.ChunkText)
		if t == "" {
			continue
		}
		if !strings.ContainsAny(t[len(t)-1:], ".!?") {
			t += "."
		}
		texts = append(texts, t)
	}
	return g.summarizer.SummarizeFor(question, strings.Join(texts, " "), g.maxSentences)
}
