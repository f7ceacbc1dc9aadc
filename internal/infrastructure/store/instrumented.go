package store

import (
	"context"
	"errors"
	"time"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/metrics"
)

// Instrumented records Prometheus timings and error counts for repository calls
type Instrumented struct {
	next domain.ProductRepository
}

// NewInstrumented wraps next with metrics
func NewInstrumented(next domain.ProductRepository) *Instrumented {
	return &Instrumented{next: next}
}

// FindCandidates implements domain.ProductStore
func (s *Instrumented) FindCandidates(ctx context.Context, query domain.CandidateQuery) ([]domain.ProductRow, error) {
	operation := "find_by_name"
	if query.UPC != "" {
		operation = "find_by_upc"
	}

	start := time.Now()
	rows, err := s.next.FindCandidates(ctx, query)
	observe(operation, start, err)
	return rows, err
}

// Create implements domain.ProductRepository
func (s *Instrumented) Create(ctx context.Context, product domain.ProductRow) (*domain.ProductRow, error) {
	start := time.Now()
	created, err := s.next.Create(ctx, product)
	observe("create", start, err)
	return created, err
}

// GetByID implements domain.ProductRepository
func (s *Instrumented) GetByID(ctx context.Context, id int64) (*domain.ProductRow, error) {
	start := time.Now()
	row, err := s.next.GetByID(ctx, id)
	observe("get", start, err)
	return row, err
}

func observe(operation string, start time.Time, err error) {
	metrics.StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
		metrics.StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}
