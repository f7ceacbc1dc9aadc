// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Matching Metrics
	DuplicateChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_checks_total",
			Help: "Total number of duplicate checks by resolution path",
		},
		[]string{"path"}, // "upc", "fuzzy", "no_terms"
	)

	CandidatesScored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duplicate_candidates_scored",
			Help:    "Number of candidate rows scored per duplicate check",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	MatchesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duplicate_matches_returned",
			Help:    "Number of matches returned per duplicate check",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	BatchFallbackQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicate_batch_fallback_queries_total",
			Help: "Per-item store queries issued because a shared batch pool was truncated",
		},
	)

	// Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "product_store_query_duration_seconds",
			Help:    "Duration of product store calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_store_query_errors_total",
			Help: "Total number of failed product store calls",
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidate_cache_hits_total",
			Help: "Total number of candidate cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidate_cache_misses_total",
			Help: "Total number of candidate cache misses",
		},
	)

	// Recall feed Metrics
	RecallFeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_feed_requests_total",
			Help: "Total number of recall feed requests by outcome",
		},
		[]string{"outcome"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)
)
