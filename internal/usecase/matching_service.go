package usecase

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/logging"
	"github.com/verdictapp/backend/internal/metrics"
)

// Matching defaults
const (
	defaultThreshold         = 0.7
	defaultLimit             = 5
	defaultCandidatePoolSize = 50
	defaultMaxBatchPool      = 1000
	defaultBatchConcurrency  = 4
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	DefaultThreshold   float64
	DefaultLimit       int
	CandidatePoolSize  int // rows fetched per keyword query
	MaxBatchPool       int // cap on the shared batch prefetch
	BatchConcurrency   int
	EnableDebugLogging bool
}

// FindOptions controls a duplicate lookup. Non-positive values take the service defaults.
type FindOptions struct {
	Threshold     float64  `json:"threshold"`
	Limit         int      `json:"limit"`
	ExcludeStatus []string `json:"excludeStatus,omitempty"`
}

// MatchingService finds existing catalog products that may duplicate new ones
type MatchingService struct {
	store              domain.ProductStore
	defaultThreshold   float64
	defaultLimit       int
	candidatePoolSize  int
	maxBatchPool       int
	batchConcurrency   int
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given store and configuration
func NewMatchingService(store domain.ProductStore, config MatchConfig) *MatchingService {
	threshold := config.DefaultThreshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	limit := config.DefaultLimit
	if limit <= 0 {
		limit = defaultLimit
	}

	poolSize := config.CandidatePoolSize
	if poolSize <= 0 {
		poolSize = defaultCandidatePoolSize
	}

	maxPool := config.MaxBatchPool
	if maxPool < poolSize {
		maxPool = max(defaultMaxBatchPool, poolSize)
	}

	concurrency := config.BatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	return &MatchingService{
		store:              store,
		defaultThreshold:   threshold,
		defaultLimit:       limit,
		candidatePoolSize:  poolSize,
		maxBatchPool:       maxPool,
		batchConcurrency:   concurrency,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// FindPotentialDuplicates returns stored products that may duplicate product,
// highest score first, at most opts.Limit of them, each scoring at least opts.Threshold.
//
// A UPC hit short-circuits with a single 1.0 match. Otherwise up to the candidate
// pool size of rows whose name contains one of the product's search terms are scored.
// Store errors are returned unchanged.
func (s *MatchingService) FindPotentialDuplicates(
	ctx context.Context,
	product domain.ProductRecord,
	opts FindOptions,
) ([]domain.MatchResult, error) {
	opts = s.withDefaults(opts)

	if product.UPC != "" {
		match, err := s.findByUPC(ctx, product.UPC)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return []domain.MatchResult{*match}, nil
		}
	}

	terms := SearchTerms(product.Name)
	if len(terms) == 0 {
		metrics.DuplicateChecks.WithLabelValues("no_terms").Inc()
		return []domain.MatchResult{}, nil
	}

	candidates, err := s.store.FindCandidates(ctx, domain.CandidateQuery{
		NameTerms: terms,
		Limit:     s.candidatePoolSize,
	})
	if err != nil {
		return nil, err
	}

	return s.rankCandidates(ctx, product, candidates, opts)
}

// FindPotentialDuplicatesBatch runs FindPotentialDuplicates for many products while
// sharing one keyword query across them. results[i] is identical to what the
// single-item call returns for products[i] against the same store state.
func (s *MatchingService) FindPotentialDuplicatesBatch(
	ctx context.Context,
	products []domain.ProductRecord,
	opts FindOptions,
) ([][]domain.MatchResult, error) {
	opts = s.withDefaults(opts)
	results := make([][]domain.MatchResult, len(products))
	if len(products) == 0 {
		return results, nil
	}

	// UPC lookups first; each writes only its own slot
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, product := range products {
		if product.UPC == "" {
			continue
		}
		g.Go(func() error {
			match, err := s.findByUPC(gctx, product.UPC)
			if err != nil {
				return err
			}
			if match != nil {
				results[i] = []domain.MatchResult{*match}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	terms := make([][]string, len(products))
	var pending []int
	var union []string
	seen := make(map[string]bool)
	for i, product := range products {
		if results[i] != nil {
			continue
		}
		terms[i] = SearchTerms(product.Name)
		if len(terms[i]) == 0 {
			metrics.DuplicateChecks.WithLabelValues("no_terms").Inc()
			results[i] = []domain.MatchResult{}
			continue
		}
		pending = append(pending, i)
		for _, term := range terms[i] {
			if !seen[term] {
				seen[term] = true
				union = append(union, term)
			}
		}
	}

	if len(pending) == 0 {
		return results, nil
	}

	poolLimit := min(s.candidatePoolSize*len(pending), s.maxBatchPool)
	pool, err := s.store.FindCandidates(ctx, domain.CandidateQuery{NameTerms: union, Limit: poolLimit})
	if err != nil {
		return nil, err
	}
	truncated := len(pool) >= poolLimit

	if s.enableDebugLogging {
		logging.Ctx(ctx).Debug().
			Int("products", len(products)).
			Int("pending", len(pending)).
			Strs("terms", union).
			Int("pool", len(pool)).
			Bool("truncated", truncated).
			Msg("batch candidate pool fetched")
	}

	var fallback []int
	for _, i := range pending {
		query := domain.CandidateQuery{NameTerms: terms[i], Limit: s.candidatePoolSize}
		local := filterCandidates(pool, query)

		// A short local pool from a truncated shared pool may be missing rows
		if truncated && len(local) < s.candidatePoolSize {
			fallback = append(fallback, i)
			continue
		}

		ranked, err := s.rankCandidates(ctx, products[i], local, opts)
		if err != nil {
			return nil, err
		}
		results[i] = ranked
	}

	if len(fallback) == 0 {
		return results, nil
	}

	metrics.BatchFallbackQueries.Add(float64(len(fallback)))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for _, i := range fallback {
		g.Go(func() error {
			candidates, err := s.store.FindCandidates(gctx, domain.CandidateQuery{
				NameTerms: terms[i],
				Limit:     s.candidatePoolSize,
			})
			if err != nil {
				return err
			}
			ranked, err := s.rankCandidates(gctx, products[i], candidates, opts)
			if err != nil {
				return err
			}
			results[i] = ranked
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// findByUPC returns the exact UPC match, or nil when the store has none
func (s *MatchingService) findByUPC(ctx context.Context, upc string) (*domain.MatchResult, error) {
	rows, err := s.store.FindCandidates(ctx, domain.CandidateQuery{UPC: upc, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	metrics.DuplicateChecks.WithLabelValues("upc").Inc()
	metrics.MatchesReturned.Observe(1)
	if s.enableDebugLogging {
		logging.Ctx(ctx).Debug().Str("upc", upc).Int64("id", rows[0].ID).Msg("UPC match")
	}

	match := domain.NewMatchResult(rows[0], scoreUPCMatch)
	return &match, nil
}

// rankCandidates scores candidates against product and returns those at or above
// the threshold, highest first. Candidates with an excluded status are skipped.
func (s *MatchingService) rankCandidates(
	ctx context.Context,
	product domain.ProductRecord,
	candidates []domain.ProductRow,
	opts FindOptions,
) ([]domain.MatchResult, error) {
	excluded := make(map[string]bool, len(opts.ExcludeStatus))
	for _, status := range opts.ExcludeStatus {
		excluded[status] = true
	}

	matches := make([]domain.MatchResult, 0, opts.Limit)
	scored := 0
	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if excluded[candidate.Status] {
			continue
		}

		score := CalculateDuplicateScore(product, candidate.Record())
		scored++

		if s.enableDebugLogging {
			logging.Ctx(ctx).Debug().
				Str("product", product.Name).
				Int64("candidate_id", candidate.ID).
				Str("candidate", candidate.Name).
				Float64("score", score).
				Msg("scored candidate")
		}

		if score >= opts.Threshold {
			matches = append(matches, domain.NewMatchResult(candidate, score))
		}
	}

	// Stable sort keeps retrieval order among equal scores
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	metrics.DuplicateChecks.WithLabelValues("fuzzy").Inc()
	metrics.CandidatesScored.Observe(float64(scored))
	metrics.MatchesReturned.Observe(float64(len(matches)))

	return matches, nil
}

func (s *MatchingService) withDefaults(opts FindOptions) FindOptions {
	if opts.Threshold <= 0 {
		opts.Threshold = s.defaultThreshold
	}
	if opts.Limit <= 0 {
		opts.Limit = s.defaultLimit
	}
	return opts
}

// filterCandidates returns the first query.Limit rows of pool that satisfy query, in pool order
func filterCandidates(pool []domain.ProductRow, query domain.CandidateQuery) []domain.ProductRow {
	var out []domain.ProductRow
	for _, row := range pool {
		if !query.Matches(row) {
			continue
		}
		out = append(out, row)
		if len(out) == query.Limit {
			break
		}
	}
	return out
}
