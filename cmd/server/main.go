package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/verdictapp/backend/config"
	httpDelivery "github.com/verdictapp/backend/internal/delivery/http"
	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/infrastructure/cache"
	"github.com/verdictapp/backend/internal/infrastructure/openfda"
	"github.com/verdictapp/backend/internal/infrastructure/store"
	"github.com/verdictapp/backend/internal/infrastructure/store/meili"
	"github.com/verdictapp/backend/internal/infrastructure/store/memory"
	"github.com/verdictapp/backend/internal/infrastructure/store/sqlstore"
	"github.com/verdictapp/backend/internal/logging"
	"github.com/verdictapp/backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("store", cfg.Store.Driver).
		Str("cache", cfg.Cache.Type).
		Msg("Starting Verdict backend")

	primary, closePrimary, err := openPrimary(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closePrimary()

	var repo domain.ProductRepository = primary
	if cfg.Search.Enabled {
		index, err := openSearchIndex(ctx, cfg.Search, primary)
		if err != nil {
			return err
		}
		repo = index
	}

	repo = store.NewInstrumented(repo)
	if cfg.Store.Breaker.Enabled {
		breakerCfg := store.DefaultBreakerConfig()
		breakerCfg.FailureThreshold = cfg.Store.Breaker.FailureThreshold
		breakerCfg.Timeout = cfg.Store.Breaker.Timeout
		breakerCfg.Interval = cfg.Store.Breaker.Interval
		breakerCfg.MaxRequests = cfg.Store.Breaker.MaxRequests
		repo = store.NewBreaker(repo, breakerCfg)
	}

	var cacheRepo domain.CacheRepository
	if cfg.Cache.Type == "memory" {
		memoryCache := cache.NewMemoryCache(cfg.Cache.CleanupInterval)
		defer memoryCache.Close()
		cacheRepo = memoryCache
		repo = store.NewCached(repo, memoryCache, cfg.Cache.TTL)
	}

	matching := usecase.NewMatchingService(repo, usecase.MatchConfig{
		DefaultThreshold:   cfg.Matching.Threshold,
		DefaultLimit:       cfg.Matching.Limit,
		CandidatePoolSize:  cfg.Matching.CandidatePoolSize,
		MaxBatchPool:       cfg.Matching.MaxBatchPool,
		BatchConcurrency:   cfg.Matching.BatchConcurrency,
		EnableDebugLogging: cfg.Matching.DebugLogging,
	})
	catalog := usecase.NewCatalogService(repo, matching)

	logging.Info().
		Float64("threshold", cfg.Matching.Threshold).
		Int("limit", cfg.Matching.Limit).
		Int("pool", cfg.Matching.CandidatePoolSize).
		Bool("debug", cfg.Matching.DebugLogging).
		Msg("Matching configured")

	var recalls *usecase.RecallMatcher
	if cfg.OpenFDA.Enabled {
		client := openfda.NewClient(cfg.OpenFDA.APIKey, cfg.OpenFDA.BaseURL)
		if cfg.Server.Environment == "development" {
			client.SetDebug(true)
		}
		recalls = usecase.NewRecallMatcher(cacheRepo, client, matching, usecase.RecallMatcherConfig{
			CacheTTL: cfg.OpenFDA.CacheTTL,
		})
		logging.Info().
			Str("base_url", cfg.OpenFDA.BaseURL).
			Bool("api_key", cfg.OpenFDA.APIKey != "").
			Msg("Recall feed enabled")
	}

	handler := httpDelivery.NewHandler(matching, catalog, recalls, httpDelivery.HandlerConfig{
		MaxBatchSize: cfg.Matching.MaxBatchSize,
	})
	router := httpDelivery.SetupRouter(cfg, handler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logging.Info().Msg("Server stopped")
	return nil
}

// primaryStore is a repository that can also page through its rows for index backfills
type primaryStore interface {
	domain.ProductRepository
	meili.Lister
}

func openPrimary(ctx context.Context, cfg config.StoreConfig) (primaryStore, func(), error) {
	if cfg.Driver == "memory" {
		return memory.New(), func() {}, nil
	}

	db, err := sqlstore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s store: %w", cfg.Driver, err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure %s schema: %w", cfg.Driver, err)
	}

	logging.Info().Str("driver", cfg.Driver).Msg("Product store ready")
	return db, closer(db, cfg.Driver), nil
}

func closer(c io.Closer, name string) func() {
	return func() {
		if err := c.Close(); err != nil {
			logging.Warn().Err(err).Str("store", name).Msg("Failed to close store")
		}
	}
}

func openSearchIndex(ctx context.Context, cfg config.SearchConfig, primary primaryStore) (domain.ProductRepository, error) {
	index := meili.New(primary, meili.Config{
		URL:    cfg.URL,
		APIKey: cfg.APIKey,
		Index:  cfg.Index,
	})
	if err := index.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure search index: %w", err)
	}

	indexed, err := index.Backfill(ctx, primary, cfg.BackfillBatch)
	if err != nil {
		return nil, fmt.Errorf("backfill search index: %w", err)
	}

	logging.Info().Str("url", cfg.URL).Str("index", cfg.Index).Int("indexed", indexed).Msg("Search index ready")
	return index, nil
}
