package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"docsearch/internal/answer"
	"docsearch/internal/chunker"
	"docsearch/internal/config"
	"docsearch/internal/domain"
	"docsearch/internal/embedding"
	"docsearch/internal/embedding/openai"
	"docsearch/internal/embedding/tfidf"
	"docsearch/internal/logger"
	"docsearch/internal/service"
	"docsearch/internal/summarizer"
	"docsearch/internal/vectorstore"
	"docsearch/internal/vectorstore/memory"
)

// buildService assembles the components named in cfg and ingests the
// configured file globs, or the documents directory when there are none.
func buildService(ctx context.Context, cfg *config.AppConfig) (*service.RAGService, service.IngestReport, error) {
	log := logger.WithComponent("ingest")

	ch, err := chunker.NewWordChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		return nil, service.IngestReport{}, err
	}
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, service.IngestReport{}, fmt.Errorf("embedder init failed: %w", err)
	}
	idx, err := newIndex(cfg.VectorStore)
	if err != nil {
		return nil, service.IngestReport{}, err
	}
	gen, err := newGenerator(cfg.Answer, logger.WithComponent("answer"))
	if err != nil {
		return nil, service.IngestReport{}, fmt.Errorf("answer generator init failed: %w", err)
	}

	opts := []service.Option{
		service.WithLogger(slog.Default()),
		service.WithTopK(cfg.Search.DefaultTopK, cfg.Search.MaxTopK),
		service.WithOverFetch(cfg.Search.OverFetch),
	}
	if cfg.Ingest.Workers > 0 {
		opts = append(opts, service.WithPoolSize(cfg.Ingest.Workers))
	}
	if cfg.Summarizer.Type == "frequency" {
		opts = append(opts, service.WithSummarizer(summarizer.NewFrequencySummarizer(), cfg.Summarizer.MaxSentences))
	}
	svc, err := service.NewRAGService(ch, emb, idx, gen, opts...)
	if err != nil {
		return nil, service.IngestReport{}, err
	}

	start := time.Now()
	source := cfg.Documents.Dir
	var report service.IngestReport
	if len(cfg.Documents.Paths) > 0 {
		source = strings.Join(cfg.Documents.Paths, ",")
		report, err = svc.IngestPaths(ctx, cfg.Documents.Paths)
	} else {
		report, err = svc.IngestDir(ctx, cfg.Documents.Dir)
	}
	if err != nil {
		svc.Release()
		return nil, report, fmt.Errorf("ingest %s: %w", source, err)
	}
	log.Info("ingest complete",
		"source", source,
		"documents", report.Documents,
		"chunks", report.Chunks,
		"skipped", len(report.Skipped),
		"embedder", emb.Name(),
		"generator", gen.Name(),
		"took", time.Since(start),
	)
	return svc, report, nil
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize:  cfg.OpenAI.BatchSize,
			AllowNoKey: cfg.OpenAI.AllowNoKey,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newIndex(cfg config.VectorStoreConfig) (vectorstore.Index, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// newGenerator builds the configured answer generator. A hosted model whose
// API key is missing falls back to the extractive generator.
func newGenerator(cfg config.AnswerConfig, log *slog.Logger) (domain.Generator, error) {
	extractive := answer.NewExtractiveGenerator(summarizer.NewFrequencySummarizer(), cfg.MaxSentences)
	switch cfg.Type {
	case "extractive", "":
		return extractive, nil
	case "anthropic":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			log.Warn("no anthropic api key, using extractive answers", "env", cfg.APIKeyEnv)
			return extractive, nil
		}
		return answer.NewAnthropic(cfg.Model, key, cfg.MaxTokens, log)
	case "openai":
		return answer.NewOpenAI(cfg.BaseURL, cfg.Model, os.Getenv(cfg.APIKeyEnv), cfg.MaxTokens, log)
	default:
		return nil, fmt.Errorf("unknown answer generator: %s", cfg.Type)
	}
}
