package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"docsearch/internal/cache"
	"docsearch/internal/domain"
	"docsearch/internal/filter"
	"docsearch/internal/httpapi"
	"docsearch/internal/logger"
	"docsearch/internal/metrics"
	"docsearch/internal/service"
	"docsearch/internal/tui"
)

func tuiCommand(c *cli.Context) error {
	cfg := configFrom(c)

	// The TUI owns the terminal, so logs go to a file or nowhere.
	var w io.Writer = io.Discard
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		w = f
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, w)

	svc, report, err := buildService(c.Context, cfg)
	if err != nil {
		return err
	}
	defer svc.Release()

	summary := report.Summary
	if summary == "" {
		summary = fmt.Sprintf("%d documents, %d chunks", report.Documents, report.Chunks)
	}
	m := tui.New(svc, summary, cfg.Search.DefaultTopK)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search needs a query", domain.ErrInvalidInput)
	}
	key, err := service.ParseSortKey(c.String("sort"))
	if err != nil {
		return err
	}
	svc, _, err := buildService(c.Context, configFrom(c))
	if err != nil {
		return err
	}
	defer svc.Release()

	filters := filter.New(map[string]string{
		"author":   c.String("author"),
		"date":     c.String("date"),
		"location": c.String("location"),
		"title":    c.String("title"),
	})
	results, err := svc.SemanticSearch(c.Context, query, c.Int("top-k"), filters)
	if err != nil {
		return err
	}
	return printResults(c.App.Writer, service.SortResults(results, key), c.Bool("json"))
}

func keywordCommand(c *cli.Context) error {
	keywords := service.ParseKeywords(strings.Join(c.Args().Slice(), ","))
	if len(keywords) == 0 {
		return fmt.Errorf("%w: keyword needs at least one keyword", domain.ErrInvalidInput)
	}
	key, err := service.ParseSortKey(c.String("sort"))
	if err != nil {
		return err
	}
	svc, _, err := buildService(c.Context, configFrom(c))
	if err != nil {
		return err
	}
	defer svc.Release()

	results := svc.KeywordSearch(keywords, c.Int("top-k"))
	return printResults(c.App.Writer, service.SortResults(results, key), c.Bool("json"))
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("%w: ask needs a question", domain.ErrInvalidInput)
	}
	svc, _, err := buildService(c.Context, configFrom(c))
	if err != nil {
		return err
	}
	defer svc.Release()

	results, err := svc.SemanticSearch(c.Context, question, c.Int("top-k"), nil)
	if err != nil {
		return err
	}
	ans := svc.Answer(c.Context, question, results)
	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, ans); err != nil {
			return err
		}
	} else {
		w := c.App.Writer
		fmt.Fprintf(w, "%s\n\nConfidence: %.2f\n", ans.Text, ans.Confidence)
		for i, s := range ans.Sources {
			fmt.Fprintf(w, "\n[%d] %s by %s (%s) score=%.3f\n%s\n", i+1, s.Title, s.Author, s.Date, s.RelevanceScore, s.ChunkText)
		}
	}
	return ans.Err
}

func docsCommand(c *cli.Context) error {
	svc, _, err := buildService(c.Context, configFrom(c))
	if err != nil {
		return err
	}
	defer svc.Release()

	docs := svc.AllMetadata()
	if c.Bool("json") {
		return writeJSON(c.App.Writer, docs)
	}
	for _, d := range docs {
		fmt.Fprintf(c.App.Writer, "%s\tchunks=%d\tauthor=%s\tdate=%s\tlocation=%s\n",
			d.Filename, d.TotalChunks, d.Author, d.Date, d.Location)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg := configFrom(c)
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, _, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Release()

	var queryCache *cache.QueryCache
	if cfg.Cache.Enabled {
		backend, err := cache.NewRedisBackend(cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "err", err)
		} else {
			defer backend.Close()
			queryCache = cache.New(backend, time.Duration(cfg.Cache.TTLSecs)*time.Second)
			slog.Info("search cache enabled", "addr", cfg.Cache.Addr, "ttl_secs", cfg.Cache.TTLSecs)
		}
	}

	h := httpapi.New(svc, queryCache, metrics.New(nil))
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
	}()

	slog.Info("docsearch api listening", "addr", server.Addr, "chunks", svc.Len())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("docsearch api stopped")
	return nil
}

func printResults(w io.Writer, results []domain.SearchResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, results)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. %s [chunk %d/%d] score=%.3f stored=%.3f\n",
			i+1, r.Chunk.Filename, r.Chunk.LocalChunkID+1, r.Chunk.TotalChunks, r.Score, r.Chunk.RelevanceScore)
		fmt.Fprintf(w, "   %s\n", preview(r.Chunk.ChunkText, 160))
	}
	return nil
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
