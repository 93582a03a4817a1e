package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocumentsConfig locates the corpus. Paths, when set, are glob patterns
// used instead of Dir.
type DocumentsConfig struct {
	Dir   string   `yaml:"dir"`
	Paths []string `yaml:"paths,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type      string `yaml:"type"`
	ChunkSize int    `yaml:"chunk_size"`
	Overlap   int    `yaml:"overlap"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	AllowNoKey  bool   `yaml:"allow_no_key"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects the vector index implementation.
type VectorStoreConfig struct {
	Type string `yaml:"type"`
}

// SearchConfig bounds result counts.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
	OverFetch   int `yaml:"over_fetch"`
}

// AnswerConfig selects the answer generator. Type is extractive, anthropic or openai.
type AnswerConfig struct {
	Type         string `yaml:"type"`
	Model        string `yaml:"model"`
	APIKeyEnv    string `yaml:"api_key_env"`
	BaseURL      string `yaml:"base_url,omitempty"`
	MaxTokens    int    `yaml:"max_tokens"`
	MaxSentences int    `yaml:"max_sentences"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// IngestConfig tunes the ingest worker pool. Zero workers means one per CPU.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
}

// CacheConfig configures the optional Redis response cache of the HTTP API.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	TTLSecs  int    `yaml:"ttl_secs"`
}

// LoggingConfig configures slog. File, when set, receives logs while the TUI owns the terminal.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Documents   DocumentsConfig   `yaml:"documents"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Search      SearchConfig      `yaml:"search"`
	Answer      AnswerConfig      `yaml:"answer"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Server      ServerConfig      `yaml:"server"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, applyEnv(cfg)
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, applyEnv(&cfg)
}

// LoadDefault tries ./config.yaml first, then ~/.config/docsearch/config.yaml.
// If neither exists, it writes defaults to ~/.config/docsearch/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, applyEnv(cfg)
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first inconsistency in cfg.
func (c *AppConfig) Validate() error {
	switch {
	case c.Chunker.ChunkSize <= 0:
		return fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	case c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize:
		return fmt.Errorf("chunker.overlap must be in [0, %d), got %d", c.Chunker.ChunkSize, c.Chunker.Overlap)
	case c.Search.DefaultTopK <= 0 || c.Search.DefaultTopK > c.Search.MaxTopK:
		return fmt.Errorf("search.default_top_k must be in [1, max_top_k=%d], got %d", c.Search.MaxTopK, c.Search.DefaultTopK)
	case c.Search.OverFetch < 1:
		return fmt.Errorf("search.over_fetch must be at least 1, got %d", c.Search.OverFetch)
	}
	if err := oneOf("chunker.type", c.Chunker.Type, "word"); err != nil {
		return err
	}
	if err := oneOf("embedder.type", c.Embedder.Type, "tfidf", "openai"); err != nil {
		return err
	}
	if c.Embedder.Type == "openai" && c.Embedder.OpenAI == nil {
		return errors.New("embedder.openai section is required for the openai embedder")
	}
	if err := oneOf("vector_store.type", c.VectorStore.Type, "memory"); err != nil {
		return err
	}
	if err := oneOf("answer.type", c.Answer.Type, "extractive", "anthropic", "openai"); err != nil {
		return err
	}
	if err := oneOf("summarizer.type", c.Summarizer.Type, "frequency", "none"); err != nil {
		return err
	}
	if err := oneOf("logging.format", c.Logging.Format, "text", "json"); err != nil {
		return err
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q (want one of %s)", field, value, strings.Join(allowed, ", "))
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docsearch", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Documents:   DocumentsConfig{Dir: "documents"},
		Chunker:     ChunkerConfig{Type: "word", ChunkSize: 500, Overlap: 50},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Search:      SearchConfig{DefaultTopK: 5, MaxTopK: 20, OverFetch: 2},
		Answer: AnswerConfig{
			Type:         "extractive",
			Model:        "claude-3-5-sonnet-20241022",
			APIKeyEnv:    "ANTHROPIC_API_KEY",
			MaxTokens:    1000,
			MaxSentences: 3,
		},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 5},
		Server:     ServerConfig{Addr: "localhost:8501", ReadTimeoutSecs: 15, WriteTimeoutSecs: 60},
		Cache:      CacheConfig{Addr: "localhost:6379", TTLSecs: 300},
		Logging:    LoggingConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Documents.Dir == "" {
		cfg.Documents.Dir = def.Documents.Dir
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = def.Chunker.Type
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = def.VectorStore.Type
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = def.Search.DefaultTopK
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = def.Search.MaxTopK
	}
	if cfg.Search.OverFetch == 0 {
		cfg.Search.OverFetch = def.Search.OverFetch
	}
	if cfg.Answer.Type == "" {
		cfg.Answer.Type = def.Answer.Type
	}
	if cfg.Answer.Model == "" {
		cfg.Answer.Model = def.Answer.Model
	}
	if cfg.Answer.APIKeyEnv == "" {
		cfg.Answer.APIKeyEnv = def.Answer.APIKeyEnv
	}
	if cfg.Answer.MaxTokens == 0 {
		cfg.Answer.MaxTokens = def.Answer.MaxTokens
	}
	if cfg.Answer.MaxSentences == 0 {
		cfg.Answer.MaxSentences = def.Answer.MaxSentences
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = def.Summarizer.Type
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = def.Summarizer.MaxSentences
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = def.Server.ReadTimeoutSecs
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = def.Server.WriteTimeoutSecs
	}
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = def.Cache.Addr
	}
	if cfg.Cache.TTLSecs == 0 {
		cfg.Cache.TTLSecs = def.Cache.TTLSecs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// applyEnv overrides settings from the environment, including values loaded from .env.
func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("DOCUMENTS_DIR"); v != "" {
		cfg.Documents.Dir = v
	}
	ints := []struct {
		env string
		dst *int
	}{
		{"CHUNK_SIZE", &cfg.Chunker.ChunkSize},
		{"CHUNK_OVERLAP", &cfg.Chunker.Overlap},
		{"DEFAULT_TOP_K", &cfg.Search.DefaultTopK},
		{"MAX_TOP_K", &cfg.Search.MaxTopK},
	}
	for _, e := range ints {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
		*e.dst = n
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" && cfg.Embedder.OpenAI != nil {
		cfg.Embedder.OpenAI.Model = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Answer.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
