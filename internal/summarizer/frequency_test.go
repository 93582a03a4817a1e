package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_NoSentences(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("  no terminal punctuation  ", 2)
	require.NoError(t, err)
	assert.Equal(t, "no terminal punctuation", out)
}

func TestSummarize_KeepsOriginalOrder(t *testing.T) {
	text := "Earnings rose. Weather was fine. Earnings beat earnings forecasts."
	out, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Earnings rose. Earnings beat earnings forecasts.", out)
}

func TestSummarize_AllWhenFewSentences(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("One. Two.", 5)
	require.NoError(t, err)
	assert.Equal(t, "One. Two.", out)
}

func TestSummarizeFor_BiasesTowardQuery(t *testing.T) {
	text := "Revenue grew revenue quickly. Alice visited Paris."
	s := NewFrequencySummarizer()

	plain, err := s.Summarize(text, 1)
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew revenue quickly.", plain)

	biased, err := s.SummarizeFor("Alice in Paris", text, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice visited Paris.", biased)
}
