// Package store holds decorators that wrap any domain.ProductRepository.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/logging"
)

// BreakerConfig configures the repository circuit breaker
type BreakerConfig struct {
	// Name identifies the circuit breaker instance in logs.
	Name string

	// MaxRequests is the number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic reset period for counts.
	Interval time.Duration

	// Timeout is the duration in open state before transitioning to half-open.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "product-store",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker guards a repository with a circuit breaker. While open, calls fail fast
// with an error matching both domain.ErrStoreUnavailable and gobreaker.ErrOpenState.
type Breaker struct {
	next domain.ProductRepository
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps next with a circuit breaker
func NewBreaker(next domain.ProductRepository, cfg BreakerConfig) *Breaker {
	defaults := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		// Caller mistakes and lookups for absent rows say nothing about store health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, domain.ErrProductNotFound) ||
				errors.Is(err, domain.ErrInvalidQuery) ||
				errors.Is(err, context.Canceled)
		},
	}

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// FindCandidates implements domain.ProductStore
func (b *Breaker) FindCandidates(ctx context.Context, query domain.CandidateQuery) ([]domain.ProductRow, error) {
	return execute(b.cb, func() ([]domain.ProductRow, error) {
		return b.next.FindCandidates(ctx, query)
	})
}

// Create implements domain.ProductRepository
func (b *Breaker) Create(ctx context.Context, product domain.ProductRow) (*domain.ProductRow, error) {
	return execute(b.cb, func() (*domain.ProductRow, error) {
		return b.next.Create(ctx, product)
	})
}

// GetByID implements domain.ProductRepository
func (b *Breaker) GetByID(ctx context.Context, id int64) (*domain.ProductRow, error) {
	return execute(b.cb, func() (*domain.ProductRow, error) {
		return b.next.GetByID(ctx, id)
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T

	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}
