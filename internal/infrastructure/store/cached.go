package store

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/logging"
	"github.com/verdictapp/backend/internal/metrics"
)

const defaultCandidateTTL = 30 * time.Second

// Cached serves repeated candidate queries from a cache. Every Create bumps a
// generation counter that is part of the key, so writes made through this
// decorator are never hidden by stale entries.
type Cached struct {
	next       domain.ProductRepository
	cache      domain.CacheRepository
	ttl        time.Duration
	generation atomic.Uint64
}

// NewCached wraps next with a candidate query cache
func NewCached(next domain.ProductRepository, cache domain.CacheRepository, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = defaultCandidateTTL
	}
	return &Cached{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

// FindCandidates implements domain.ProductStore
func (s *Cached) FindCandidates(ctx context.Context, query domain.CandidateQuery) ([]domain.ProductRow, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	key := s.cacheKey(query)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var rows []domain.ProductRow
		if err := json.Unmarshal(data, &rows); err == nil {
			metrics.CacheHits.Inc()
			return rows, nil
		}
	}
	metrics.CacheMisses.Inc()

	rows, err := s.next.FindCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rows); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Failed to cache candidates")
		}
	}

	return rows, nil
}

// Create implements domain.ProductRepository
func (s *Cached) Create(ctx context.Context, product domain.ProductRow) (*domain.ProductRow, error) {
	created, err := s.next.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	s.generation.Add(1)
	return created, nil
}

// GetByID implements domain.ProductRepository
func (s *Cached) GetByID(ctx context.Context, id int64) (*domain.ProductRow, error) {
	return s.next.GetByID(ctx, id)
}

// cacheKey creates a cache key for a query.
// Format: "candidates:{generation}:upc:{upc}:{limit}" or "candidates:{generation}:name:{terms}:{limit}"
func (s *Cached) cacheKey(query domain.CandidateQuery) string {
	gen := s.generation.Load()
	if query.UPC != "" {
		return fmt.Sprintf("candidates:%d:upc:%s:%d", gen, query.UPC, query.Limit)
	}
	terms := make([]string, len(query.NameTerms))
	for i, term := range query.NameTerms {
		terms[i] = strings.ToLower(term)
	}
	return fmt.Sprintf("candidates:%d:name:%s:%d", gen, strings.Join(terms, ","), query.Limit)
}
