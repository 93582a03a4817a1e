package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsearch/internal/config"
	"docsearch/internal/domain"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"alice.txt": "Author: Alice\nDate: 2024-01-01\nThe quarterly revenue grew in Germany.",
		"bob.txt":   "Author: Bob\nLocation: Berlin, DE\nThe product launch succeeded.",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := writeCorpus(t)
	t.Setenv("DOCUMENTS_DIR", "")
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	full := append([]string{"docsearch", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--docs", dir}, args...)
	err := app.Run(full)
	return out.String(), err
}

func TestDocsCommand(t *testing.T) {
	out, err := run(t, "docs", "--json")
	require.NoError(t, err)

	var docs []domain.DocumentMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "alice.txt", docs[0].Filename)
	assert.Equal(t, "Alice", docs[0].Author)
	assert.Equal(t, "Berlin, DE", docs[1].Location)
}

func TestSearchCommandWithFilter(t *testing.T) {
	out, err := run(t, "search", "--json", "--author", "alice", "revenue")
	require.NoError(t, err)

	var results []domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "alice.txt", results[0].Chunk.Filename)
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	_, err := run(t, "search")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestSearchCommandRejectsUnknownSort(t *testing.T) {
	_, err := run(t, "search", "--sort", "size", "revenue")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestKeywordCommand(t *testing.T) {
	out, err := run(t, "keyword", "launch,berlin")
	require.NoError(t, err)
	assert.Contains(t, out, "bob.txt")
	assert.NotContains(t, out, "alice.txt")
}

func TestAskCommand(t *testing.T) {
	out, err := run(t, "ask", "--top-k", "1", "where", "did", "revenue", "grow")
	require.NoError(t, err)
	assert.Contains(t, out, "Confidence:")
	assert.Contains(t, out, "alice")
}

func TestFilesFlagIngestsGlobs(t *testing.T) {
	extra := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(extra, "carol.txt"), []byte("Author: Carol\nThe warehouse opened."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(extra, "skip.md"), []byte("not text"), 0o644))

	out, err := run(t, "--files", filepath.Join(extra, "*"), "docs", "--json")
	require.NoError(t, err)

	var docs []domain.DocumentMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "carol.txt", docs[0].Filename)
	assert.Equal(t, "Carol", docs[0].Author)
}

func TestNewGeneratorFallsBackWithoutKey(t *testing.T) {
	t.Setenv("DOCSEARCH_TEST_ANTHROPIC_KEY", "")
	gen, err := newGenerator(config.AnswerConfig{
		Type:      "anthropic",
		Model:     "claude-3-5-sonnet-20241022",
		APIKeyEnv: "DOCSEARCH_TEST_ANTHROPIC_KEY",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, "extractive", gen.Name())
}

func TestNewEmbedderUnknown(t *testing.T) {
	_, err := newEmbedder(config.EmbedderConfig{Type: "word2vec"})
	require.Error(t, err)

	_, err = newEmbedder(config.EmbedderConfig{Type: "openai"})
	require.Error(t, err)
}
