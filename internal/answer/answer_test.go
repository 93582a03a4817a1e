package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"docsearch/internal/domain"
)

type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == "" {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

var contexts = []domain.ContextRecord{
	{Title: "a", Author: "Alice", Date: "2024-01-15", ChunkText: "Quarterly earnings grew."},
	{Title: "b", ChunkText: "Weather was sunny."},
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("How did earnings do?", contexts)
	assert.Contains(t, p, "Document: a\nAuthor: Alice\nDate: 2024-01-15\nContent: Quarterly earnings grew.")
	assert.Contains(t, p, "Document: b\nAuthor: Unknown\nDate: Unknown\nContent: Weather was sunny.")
	assert.Contains(t, p, "Question: How did earnings do?")
	assert.Contains(t, p, "using only the information provided in the context")
}

func TestLLMGenerator_Generate(t *testing.T) {
	m := &fakeModel{reply: "  Earnings grew.  "}
	g := NewLLMGenerator("fake", m, 0, nil)

	out, err := g.Generate(context.Background(), "How did earnings do?", contexts)
	require.NoError(t, err)
	assert.Equal(t, "Earnings grew.", out)
	assert.Equal(t, "fake", g.Name())
	assert.Equal(t, DefaultMaxTokens, m.opts.MaxTokens)

	require.Len(t, m.messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[0].Role)
	require.Len(t, m.messages[0].Parts, 1)
	part, ok := m.messages[0].Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Equal(t, BuildPrompt("How did earnings do?", contexts), part.Text)
}

func TestLLMGenerator_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := NewLLMGenerator("fake", &fakeModel{err: boom}, 10, nil).Generate(context.Background(), "q", contexts)
	assert.ErrorIs(t, err, boom)

	_, err = NewLLMGenerator("fake", &fakeModel{}, 10, nil).Generate(context.Background(), "q", contexts)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewAnthropic_RequiresKey(t *testing.T) {
	_, err := NewAnthropic("claude-3-5-sonnet-20241022", "", 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtractiveGenerator(t *testing.T) {
	g := NewExtractiveGenerator(nil, 1)
	assert.Equal(t, "extractive", g.Name())

	out, err := g.Generate(context.Background(), "sunny weather", []domain.ContextRecord{
		{ChunkText: "Quarterly earnings grew strongly"},
		{ChunkText: "Weather was sunny."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Weather was sunny.", out)
}

func TestExtractiveGenerator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExtractiveGenerator(nil, 1).Generate(ctx, "q", contexts)
	assert.ErrorIs(t, err, context.Canceled)
}
