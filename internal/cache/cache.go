// Package cache memoises search responses of the HTTP API in a key-value
// backend, collapsing concurrent identical misses.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"docsearch/internal/domain"
)

const keyPrefix = "docsearch:search:"

// ErrMiss is returned by a Backend when the key is absent.
var ErrMiss = errors.New("cache miss")

// Backend is the storage a QueryCache writes through.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Query identifies one cacheable search.
type Query struct {
	Mode    string
	Text    string
	TopK    int
	Filters map[string]string
	Sort    string
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, q Query) ([]domain.SearchResult, bool) {
	key := BuildKey(q)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var results []domain.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "err", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "mode", q.Mode, "key", key)
	return results, true
}

func (c *QueryCache) Set(ctx context.Context, q Query, results []domain.SearchResult) {
	key := BuildKey(q)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached results for q, or runs computeFn once per
// key among concurrent callers and caches its successful result. The bool
// reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	q Query,
	computeFn func() ([]domain.SearchResult, error),
) ([]domain.SearchResult, bool, error) {
	if results, ok := c.Get(ctx, q); ok {
		return results, true, nil
	}
	key := BuildKey(q)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]domain.SearchResult), false, nil
}

// Invalidate drops every cached search, e.g. after feedback changed stored relevance.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey hashes a normalised form of q. Queries differing only in case,
// whitespace or filter order share a key.
func BuildKey(q Query) string {
	fields := make([]string, 0, len(q.Filters))
	for k, v := range q.Filters {
		fields = append(fields, strings.ToLower(k)+"="+v)
	}
	sort.Strings(fields)
	raw := fmt.Sprintf("%s|%s|k=%d|sort=%s|%s",
		q.Mode,
		strings.Join(strings.Fields(strings.ToLower(q.Text)), " "),
		q.TopK,
		q.Sort,
		strings.Join(fields, "&"),
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
