package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/logging"
)

// Recall matching defaults
const (
	defaultRecallLimit    = 25
	maxRecallLimit        = 100
	defaultRecallCacheTTL = 15 * time.Minute
)

// RecallMatcherConfig holds configuration for the recall matcher
type RecallMatcherConfig struct {
	CacheTTL time.Duration
}

// RecallQuery selects recalls from the feed and controls matching
type RecallQuery struct {
	Search  string
	Limit   int
	Options FindOptions
}

// RecallMatcher pairs recall feed reports with catalog products they may refer to
type RecallMatcher struct {
	cache    domain.CacheRepository
	source   domain.RecallSource
	matching *MatchingService
	cacheTTL time.Duration
}

// NewRecallMatcher creates a new recall matcher. cache may be nil.
func NewRecallMatcher(
	cache domain.CacheRepository,
	source domain.RecallSource,
	matching *MatchingService,
	config RecallMatcherConfig,
) *RecallMatcher {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = defaultRecallCacheTTL
	}

	return &RecallMatcher{
		cache:    cache,
		source:   source,
		matching: matching,
		cacheTTL: cacheTTL,
	}
}

// MatchRecalls fetches recalls for the query and matches each against the catalog.
// Flow: check cache -> search feed -> cache -> map to products -> batch match
func (m *RecallMatcher) MatchRecalls(ctx context.Context, query RecallQuery) ([]domain.RecallMatch, error) {
	search := strings.TrimSpace(query.Search)
	if search == "" {
		return nil, fmt.Errorf("%w: search is required", domain.ErrInvalidRequest)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	if limit > maxRecallLimit {
		limit = maxRecallLimit
	}

	recalls, err := m.fetchRecalls(ctx, search, limit)
	if err != nil {
		return nil, err
	}

	products := make([]domain.ProductRecord, len(recalls))
	for i, recall := range recalls {
		products[i] = RecallToProduct(recall)
	}

	results, err := m.matching.FindPotentialDuplicatesBatch(ctx, products, query.Options)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.RecallMatch, len(recalls))
	matched := 0
	for i, recall := range recalls {
		matches[i] = domain.RecallMatch{
			Recall:  recall,
			Product: products[i],
			Matches: results[i],
		}
		if len(results[i]) > 0 {
			matched++
		}
	}

	logging.Ctx(ctx).Info().
		Str("search", search).
		Int("recalls", len(recalls)).
		Int("matched", matched).
		Msg("Recalls matched against catalog")

	return matches, nil
}

// RecallToProduct derives the product a recall refers to
func RecallToProduct(recall domain.Recall) domain.ProductRecord {
	return domain.ProductRecord{
		Name:  CleanProductDescription(recall.ProductDescription),
		Brand: strings.TrimSpace(recall.RecallingFirm),
		UPC:   ExtractUPC(recall.CodeInfo, recall.ProductDescription),
	}
}

func (m *RecallMatcher) fetchRecalls(ctx context.Context, search string, limit int) ([]domain.Recall, error) {
	cacheKey := generateRecallCacheKey(search, limit)

	if cached, err := m.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	recalls, err := m.source.SearchRecalls(ctx, search, limit)
	if err != nil {
		return nil, err
	}

	if err := m.setInCache(ctx, cacheKey, recalls); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache recalls")
	}

	return recalls, nil
}

// generateRecallCacheKey creates a normalized cache key.
// Format: "recalls:{normalized_search}:{limit}"
func generateRecallCacheKey(search string, limit int) string {
	normalized := multipleSpacesRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(search)), " ")
	return fmt.Sprintf("recalls:%s:%d", normalized, limit)
}

func (m *RecallMatcher) getFromCache(ctx context.Context, key string) ([]domain.Recall, error) {
	if m.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := m.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var recalls []domain.Recall
	if err := json.Unmarshal(data, &recalls); err != nil {
		return nil, domain.ErrCacheMiss
	}
	return recalls, nil
}

func (m *RecallMatcher) setInCache(ctx context.Context, key string, recalls []domain.Recall) error {
	if m.cache == nil {
		return nil
	}

	data, err := json.Marshal(recalls)
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, key, data, m.cacheTTL)
}
