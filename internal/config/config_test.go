package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DOCUMENTS_DIR", "CHUNK_SIZE", "CHUNK_OVERLAP", "DEFAULT_TOP_K", "MAX_TOP_K", "EMBEDDING_MODEL", "LLM_MODEL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
	assert.Equal(t, 20, cfg.Search.MaxTopK)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Answer.Model)
}

func TestLoad_PartialFileFilledWithDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  chunk_size: 100
  overlap: 10
embedder:
  type: openai
  openai:
    base_url: http://localhost:11434/v1
answer:
  type: anthropic
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "word", cfg.Chunker.Type)
	assert.Equal(t, 100, cfg.Chunker.ChunkSize)
	assert.Equal(t, 10, cfg.Chunker.Overlap)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "anthropic", cfg.Answer.Type)
	assert.Equal(t, 1000, cfg.Answer.MaxTokens)
	assert.Equal(t, 2, cfg.Search.OverFetch)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCUMENTS_DIR", "/data/docs")
	t.Setenv("CHUNK_SIZE", "200")
	t.Setenv("CHUNK_OVERLAP", "20")
	t.Setenv("DEFAULT_TOP_K", "3")
	t.Setenv("MAX_TOP_K", "10")
	t.Setenv("LLM_MODEL", "claude-test")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/data/docs", cfg.Documents.Dir)
	assert.Equal(t, 200, cfg.Chunker.ChunkSize)
	assert.Equal(t, 20, cfg.Chunker.Overlap)
	assert.Equal(t, 3, cfg.Search.DefaultTopK)
	assert.Equal(t, 10, cfg.Search.MaxTopK)
	assert.Equal(t, "claude-test", cfg.Answer.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_BadEnvInteger(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "lots")
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "CHUNK_SIZE")
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Cache.Enabled = true
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "docsearch", "config.yaml"), path)
	assert.FileExists(t, path)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"overlap equals size", func(c *AppConfig) { c.Chunker.Overlap = c.Chunker.ChunkSize }},
		{"negative overlap", func(c *AppConfig) { c.Chunker.Overlap = -1 }},
		{"default above max", func(c *AppConfig) { c.Search.DefaultTopK = 30 }},
		{"zero default", func(c *AppConfig) { c.Search.DefaultTopK = 0 }},
		{"zero over-fetch", func(c *AppConfig) { c.Search.OverFetch = 0 }},
		{"unknown embedder", func(c *AppConfig) { c.Embedder.Type = "bert" }},
		{"openai without section", func(c *AppConfig) { c.Embedder.Type = "openai" }},
		{"unknown store", func(c *AppConfig) { c.VectorStore.Type = "qdrant" }},
		{"unknown answer", func(c *AppConfig) { c.Answer.Type = "magic" }},
		{"unknown log format", func(c *AppConfig) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
