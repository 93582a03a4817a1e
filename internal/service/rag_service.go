package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"docsearch/internal/corpus"
	"docsearch/internal/docsource"
	"docsearch/internal/domain"
	"docsearch/internal/embedding"
	"docsearch/internal/metadata"
	"docsearch/internal/vectorstore"
)

const (
	DefaultTopK       = 5
	DefaultMaxTopK    = 20
	DefaultOverFetch  = 2
	DefaultSummaryLen = 5
)

// RAGService owns the ingested corpus and serves searches, feedback and
// answers over it. Ingest happens once; queries may then run concurrently.
type RAGService struct {
	chunker   domain.Chunker
	embedder  embedding.Embedder
	index     vectorstore.Index
	generator domain.Generator

	summarizer   domain.Summarizer
	summaryLen   int
	pool         *ants.Pool
	defaultTopK  int
	maxTopK      int
	overFetch    int
	logger       *slog.Logger

	mu       sync.RWMutex
	store    *corpus.Store
	ingested bool
	summary  string
}

// Option configures a RAGService.
type Option func(*RAGService) error

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *RAGService) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of workers chunking documents during ingest.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *RAGService) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithTopK sets the result count used when a caller passes none, and the
// upper bound on any requested count.
func WithTopK(defaultTopK, maxTopK int) Option {
	return func(s *RAGService) error {
		if defaultTopK <= 0 || maxTopK < defaultTopK {
			return fmt.Errorf("%w: top_k default=%d max=%d", domain.ErrInvalidInput, defaultTopK, maxTopK)
		}
		s.defaultTopK = defaultTopK
		s.maxTopK = maxTopK
		return nil
	}
}

// WithOverFetch sets how many candidates per requested result are pulled
// from the index before filtering.
func WithOverFetch(factor int) Option {
	return func(s *RAGService) error {
		if factor < 1 {
			return fmt.Errorf("%w: over-fetch factor %d", domain.ErrInvalidInput, factor)
		}
		s.overFetch = factor
		return nil
	}
}

// WithSummarizer enables a corpus summary at ingest.
func WithSummarizer(summarizer domain.Summarizer, maxSentences int) Option {
	return func(s *RAGService) error {
		if maxSentences <= 0 {
			maxSentences = DefaultSummaryLen
		}
		s.summarizer = summarizer
		s.summaryLen = maxSentences
		return nil
	}
}

// NewRAGService wires the retrieval pipeline. generator may be nil, in which
// case Answer reports a generation error for every question with results.
func NewRAGService(chunker domain.Chunker, embedder embedding.Embedder, index vectorstore.Index, generator domain.Generator, opts ...Option) (*RAGService, error) {
	if chunker == nil || embedder == nil || index == nil {
		return nil, fmt.Errorf("%w: chunker, embedder and index are required", domain.ErrInvalidInput)
	}
	s := &RAGService{
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		generator:   generator,
		defaultTopK: DefaultTopK,
		maxTopK:     DefaultMaxTopK,
		overFetch:   DefaultOverFetch,
		logger:      slog.Default(),
		store:       corpus.New(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	if s.pool == nil {
		size := runtime.NumCPU()
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}
	s.logger = s.logger.With("component", "rag-service")
	return s, nil
}

// Release frees the worker pool.
func (s *RAGService) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// IngestReport describes the outcome of an ingest.
type IngestReport struct {
	Documents int
	Chunks    int
	Skipped   []string
	Summary   string
}

// IngestPaths loads *.txt files matching patterns and ingests them. Files
// that cannot be read are logged and listed in the report.
func (s *RAGService) IngestPaths(ctx context.Context, patterns []string) (IngestReport, error) {
	docs, failures := docsource.LoadPaths(patterns)
	report, err := s.IngestDocuments(ctx, docs)
	for _, f := range failures {
		s.logger.Warn("skipping unreadable document", "path", f.Path, "err", f.Err)
		report.Skipped = append(report.Skipped, f.Path)
	}
	return report, err
}

// IngestDir ingests every *.txt file directly inside dir.
func (s *RAGService) IngestDir(ctx context.Context, dir string) (IngestReport, error) {
	docs, failures, err := docsource.LoadDir(dir)
	if err != nil {
		return IngestReport{}, err
	}
	report, err := s.IngestDocuments(ctx, docs)
	for _, f := range failures {
		s.logger.Warn("skipping unreadable document", "path", f.Path, "err", f.Err)
		report.Skipped = append(report.Skipped, f.Path)
	}
	return report, err
}

type chunkedDoc struct {
	meta   domain.Metadata
	chunks []string
}

// IngestDocuments chunks, annotates and embeds docs, then publishes the
// corpus. Documents that yield no chunks, and documents whose filename was
// already seen, are skipped. Any embedding failure aborts the ingest with
// nothing published. A service ingests at most once.
func (s *RAGService) IngestDocuments(ctx context.Context, docs []domain.Document) (IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ingested {
		return IngestReport{}, domain.ErrAlreadyIngested
	}

	chunked := s.chunkAll(docs)

	var (
		report  IngestReport
		records []domain.ChunkRecord
		texts   []string
		all     strings.Builder
		seen    = make(map[string]struct{}, len(docs))
	)
	for i, cd := range chunked {
		// Filename identifies a document in records and metadata.
		if _, dup := seen[docs[i].Filename]; dup {
			s.logger.Warn("skipping document with duplicate filename", "filename", docs[i].Filename)
			report.Skipped = append(report.Skipped, docs[i].Filename)
			continue
		}
		seen[docs[i].Filename] = struct{}{}
		if len(cd.chunks) == 0 {
			s.logger.Warn("skipping document without content", "filename", docs[i].Filename)
			report.Skipped = append(report.Skipped, docs[i].Filename)
			continue
		}
		report.Documents++
		for j, text := range cd.chunks {
			records = append(records, domain.ChunkRecord{
				GlobalIndex:    len(records),
				Filename:       cd.meta.Filename,
				Title:          cd.meta.Title,
				LocalChunkID:   j,
				TotalChunks:    len(cd.chunks),
				Date:           cd.meta.Date,
				Author:         cd.meta.Author,
				Location:       cd.meta.Location,
				ChunkText:      text,
				RelevanceScore: corpus.InitialRelevance,
			})
			texts = append(texts, text)
		}
		all.WriteString("\n")
		all.WriteString(docs[i].Content)
	}
	report.Chunks = len(records)

	var vectors [][]float64
	if len(records) > 0 {
		var err error
		vectors, err = s.embedCorpus(ctx, texts)
		if err != nil {
			return IngestReport{Skipped: report.Skipped}, err
		}
		if err := s.index.Init(len(vectors[0])); err != nil {
			return IngestReport{Skipped: report.Skipped}, err
		}
		if err := s.index.Add(vectors); err != nil {
			return IngestReport{Skipped: report.Skipped}, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
	}
	if err := s.store.Load(records, vectors); err != nil {
		return IngestReport{Skipped: report.Skipped}, err
	}

	if s.summarizer != nil && all.Len() > 0 {
		summary, err := s.summarizer.Summarize(all.String(), s.summaryLen)
		if err != nil {
			s.logger.Warn("corpus summary failed", "err", err)
		} else {
			report.Summary = summary
			s.summary = summary
		}
	}
	s.ingested = true
	s.logger.Info("corpus ingested", "documents", report.Documents, "chunks", report.Chunks, "skipped", len(report.Skipped))
	return report, nil
}

// chunkAll splits and annotates every document on the worker pool. The
// result is positionally aligned with docs.
func (s *RAGService) chunkAll(docs []domain.Document) []chunkedDoc {
	out := make([]chunkedDoc, len(docs))
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			d := docs[i]
			out[i] = chunkedDoc{
				meta:   metadata.Extract(d.Content, d.Filename),
				chunks: s.chunker.Split(d.Content),
			}
		}
		if err := s.pool.Submit(task); err != nil {
			s.logger.Debug("pool unavailable, chunking inline", "err", err)
			task()
		}
	}
	wg.Wait()
	return out
}

func (s *RAGService) embedCorpus(ctx context.Context, texts []string) ([][]float64, error) {
	if err := s.embedder.Prepare(texts); err != nil {
		return nil, fmt.Errorf("%w: prepare %s: %w", domain.ErrEmbedding, s.embedder.Name(), err)
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEmbedding, s.embedder.Name(), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(texts))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %w: chunk %d has %d, expected %d", domain.ErrEmbedding, domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return vectors, nil
}

// Summary returns the corpus summary computed at ingest, if any.
func (s *RAGService) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Ingested reports whether the corpus has been published.
func (s *RAGService) Ingested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ingested
}

// Len returns the number of chunks in the corpus.
func (s *RAGService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Len()
}

// Chunk returns the record at globalIndex.
func (s *RAGService) Chunk(globalIndex int) (domain.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Get(globalIndex)
}

// AllMetadata returns one entry per ingested document, in corpus order,
// taken from the document's first chunk.
func (s *RAGService) AllMetadata() []domain.DocumentMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	out := []domain.DocumentMetadata{}
	for _, r := range s.store.Records() {
		if _, ok := seen[r.Filename]; ok {
			continue
		}
		seen[r.Filename] = struct{}{}
		out = append(out, domain.DocumentMetadata{
			Filename:    r.Filename,
			Title:       r.Title,
			Date:        r.Date,
			Author:      r.Author,
			Location:    r.Location,
			TotalChunks: r.TotalChunks,
		})
	}
	return out
}

// RecordFeedback folds a feedback value in [0, 1] into the stored relevance
// of the chunk at globalIndex and returns the new value.
func (s *RAGService) RecordFeedback(globalIndex int, value float64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, err := s.store.UpdateRelevance(globalIndex, value)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("feedback recorded", "global_index", globalIndex, "value", value, "relevance", score)
	return score, nil
}

func (s *RAGService) clampTopK(topK int) int {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if topK > s.maxTopK {
		topK = s.maxTopK
	}
	return topK
}
