// Package httpapi exposes the search engine over a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"docsearch/internal/cache"
	"docsearch/internal/domain"
	"docsearch/internal/filter"
	"docsearch/internal/logger"
	"docsearch/internal/metrics"
	"docsearch/internal/service"
)

// SearchService is the part of the retrieval service the API needs.
type SearchService interface {
	SemanticSearch(ctx context.Context, query string, topK int, filters filter.Set) ([]domain.SearchResult, error)
	KeywordSearch(keywords []string, topK int) []domain.SearchResult
	AllMetadata() []domain.DocumentMetadata
	RecordFeedback(globalIndex int, value float64) (float64, error)
	Answer(ctx context.Context, question string, results []domain.SearchResult) domain.Answer
	Len() int
}

type Handler struct {
	svc     SearchService
	cache   *cache.QueryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates the API handler. queryCache may be nil to disable caching.
func New(svc SearchService, queryCache *cache.QueryCache, m *metrics.Metrics) *Handler {
	if m == nil {
		m = metrics.New(nil)
	}
	m.CorpusChunks.Set(float64(svc.Len()))
	return &Handler{
		svc:     svc,
		cache:   queryCache,
		metrics: m,
		logger:  slog.Default().With("component", "http-api"),
	}
}

// Routes builds the mux with all routes and middleware.
//
//	GET  /api/v1/search     semantic search with metadata filters
//	GET  /api/v1/keyword    keyword search
//	GET  /api/v1/documents  one metadata entry per document
//	POST /api/v1/feedback   relevance feedback by global index
//	POST /api/v1/answer     search then answer
//	GET  /health/live
//	GET  /metrics
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/keyword", h.Keyword)
	mux.HandleFunc("GET /api/v1/documents", h.Documents)
	mux.HandleFunc("POST /api/v1/feedback", h.Feedback)
	mux.HandleFunc("POST /api/v1/answer", h.Answer)
	mux.HandleFunc("GET /health/live", h.Health)
	mux.Handle("GET /metrics", h.metrics.Handler())

	var chain http.Handler = mux
	chain = Metrics(h.metrics)(chain)
	chain = RequestID(chain)
	return chain
}

type searchResponse struct {
	Query    string                `json:"query"`
	Results  []domain.SearchResult `json:"results"`
	CacheHit bool                  `json:"cache_hit"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	start := time.Now()

	params := r.URL.Query()
	query := params.Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	topK, ok := h.parseTopK(w, params.Get("top_k"))
	if !ok {
		return
	}
	sortKey, err := service.ParseSortKey(params.Get("sort"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pairs := make(map[string]string)
	for _, f := range filter.Fields {
		pairs[f] = params.Get(f)
	}
	filters := filter.New(pairs)

	compute := func() ([]domain.SearchResult, error) {
		res, err := h.svc.SemanticSearch(ctx, query, topK, filters)
		if err != nil {
			return nil, err
		}
		return service.SortResults(res, sortKey), nil
	}
	results, hit, err := h.cached(ctx, cache.Query{Mode: "semantic", Text: query, TopK: topK, Filters: filters, Sort: string(sortKey)}, compute)
	h.metrics.ObserveSearch("semantic", len(results), err)
	if err != nil {
		log.Error("semantic search failed", "query", query, "error", err)
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	log.Info("search completed",
		"mode", "semantic",
		"query", query,
		"returned", len(results),
		"cache_hit", hit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results, CacheHit: hit})
}

func (h *Handler) Keyword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()
	raw := params.Get("keywords")
	keywords := service.ParseKeywords(raw)
	if len(keywords) == 0 {
		h.writeError(w, http.StatusBadRequest, "query parameter 'keywords' is required")
		return
	}
	topK, ok := h.parseTopK(w, params.Get("top_k"))
	if !ok {
		return
	}
	sortKey, err := service.ParseSortKey(params.Get("sort"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, hit, err := h.cached(ctx, cache.Query{Mode: "keyword", Text: raw, TopK: topK, Sort: string(sortKey)}, func() ([]domain.SearchResult, error) {
		return service.SortResults(h.svc.KeywordSearch(keywords, topK), sortKey), nil
	})
	h.metrics.ObserveSearch("keyword", len(results), err)
	if err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	logger.FromContext(ctx).Info("search completed", "mode", "keyword", "keywords", keywords, "returned", len(results), "cache_hit", hit)
	h.writeJSON(w, http.StatusOK, searchResponse{Query: raw, Results: results, CacheHit: hit})
}

func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	docs := h.svc.AllMetadata()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
		"chunks":    h.svc.Len(),
	})
}

type feedbackRequest struct {
	GlobalIndex *int     `json:"global_index"`
	Value       *float64 `json:"value"`
}

func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GlobalIndex == nil || req.Value == nil {
		h.writeError(w, http.StatusBadRequest, "global_index and value are required")
		return
	}
	score, err := h.svc.RecordFeedback(*req.GlobalIndex, *req.Value)
	if err != nil {
		h.metrics.FeedbackTotal.WithLabelValues("rejected").Inc()
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	h.metrics.FeedbackTotal.WithLabelValues("ok").Inc()
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			logger.FromContext(ctx).Warn("cache invalidation after feedback failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"global_index":     *req.GlobalIndex,
		"stored_relevance": score,
	})
}

type answerRequest struct {
	Question string            `json:"question"`
	TopK     int               `json:"top_k"`
	Filters  map[string]string `json:"filters"`
}

type answerResponse struct {
	domain.Answer
	Results []domain.SearchResult `json:"results"`
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Question == "" {
		h.writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.TopK < 0 {
		h.writeError(w, http.StatusBadRequest, "top_k must not be negative")
		return
	}
	results, err := h.svc.SemanticSearch(ctx, req.Question, req.TopK, filter.New(req.Filters))
	h.metrics.ObserveSearch("semantic", len(results), err)
	if err != nil {
		h.metrics.AnswersTotal.WithLabelValues("error").Inc()
		log.Error("answer retrieval failed", "error", err)
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	ans := h.svc.Answer(ctx, req.Question, results)
	status := http.StatusOK
	switch {
	case ans.Err != nil:
		h.metrics.AnswersTotal.WithLabelValues("error").Inc()
		status = statusFor(ans.Err)
	case len(results) == 0:
		h.metrics.AnswersTotal.WithLabelValues("no_results").Inc()
	default:
		h.metrics.AnswersTotal.WithLabelValues("ok").Inc()
	}
	h.writeJSON(w, status, answerResponse{Answer: ans, Results: results})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "chunks": h.svc.Len()})
}

func (h *Handler) cached(ctx context.Context, q cache.Query, compute func() ([]domain.SearchResult, error)) ([]domain.SearchResult, bool, error) {
	if h.cache == nil {
		res, err := compute()
		return res, false, err
	}
	res, hit, err := h.cache.GetOrCompute(ctx, q, compute)
	if err == nil {
		if hit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	return res, hit, err
}

func (h *Handler) parseTopK(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		h.writeError(w, http.StatusBadRequest, "top_k must be a positive integer")
		return 0, false
	}
	return n, true
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidFeedback):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrChunkNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyIngested):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
