// Package answer implements answer generators over retrieved context.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"docsearch/internal/domain"
)

// DefaultMaxTokens bounds the length of generated answers.
const DefaultMaxTokens = 1000

var ErrEmptyResponse = errors.New("model returned no choices")

// LLMGenerator answers questions with a chat model through langchaingo.
type LLMGenerator struct {
	name      string
	model     llms.Model
	maxTokens int
	logger    *slog.Logger
}

var _ domain.Generator = (*LLMGenerator)(nil)

// NewLLMGenerator wraps an existing model. A non-positive maxTokens selects the default.
func NewLLMGenerator(name string, model llms.Model, maxTokens int, logger *slog.Logger) *LLMGenerator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMGenerator{
		name:      name,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.With("component", "answer", "generator", name),
	}
}

// NewAnthropic creates a generator backed by the Anthropic messages API.
func NewAnthropic(model, apiKey string, maxTokens int, logger *slog.Logger) (*LLMGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing anthropic api key", domain.ErrInvalidInput)
	}
	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return NewLLMGenerator("anthropic", client, maxTokens, logger), nil
}

// NewOpenAI creates a generator for any OpenAI-compatible chat endpoint.
// Local servers that need no key accept the placeholder token "none".
func NewOpenAI(baseURL, model, apiKey string, maxTokens int, logger *slog.Logger) (*LLMGenerator, error) {
	if apiKey == "" {
		apiKey = "none"
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewLLMGenerator("openai", client, maxTokens, logger), nil
}

func (g *LLMGenerator) Name() string { return g.name }

// Generate sends the question and its context to the model as one user message.
func (g *LLMGenerator) Generate(ctx context.Context, question string, contexts []domain.ContextRecord) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, BuildPrompt(question, contexts)),
	}
	g.logger.Debug("generating answer", "contexts", len(contexts))
	resp, err := g.model.GenerateContent(ctx, content, llms.WithMaxTokens(g.maxTokens))
	if err != nil {
		g.logger.Error("failed to generate answer", "err", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
