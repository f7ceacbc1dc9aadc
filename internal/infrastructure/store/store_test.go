package store

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/infrastructure/cache"
	"github.com/verdictapp/backend/internal/infrastructure/store/memory"
)

// countingRepo counts calls and can be told to fail
type countingRepo struct {
	domain.ProductRepository
	finds int
	err   error
}

func (r *countingRepo) FindCandidates(ctx context.Context, query domain.CandidateQuery) ([]domain.ProductRow, error) {
	r.finds++
	if r.err != nil {
		return nil, r.err
	}
	return r.ProductRepository.FindCandidates(ctx, query)
}

func (r *countingRepo) GetByID(ctx context.Context, id int64) (*domain.ProductRow, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.ProductRepository.GetByID(ctx, id)
}

func newCountingRepo(rows ...domain.ProductRow) *countingRepo {
	return &countingRepo{ProductRepository: memory.New(rows...)}
}

func TestBreaker(t *testing.T) {
	ctx := context.Background()
	query := domain.CandidateQuery{NameTerms: []string{"milk"}, Limit: 5}

	t.Run("passes results through while closed", func(t *testing.T) {
		repo := newCountingRepo(domain.ProductRow{ID: 1, Name: "Oat Milk"})
		b := NewBreaker(repo, BreakerConfig{})

		rows, err := b.FindCandidates(ctx, query)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, gobreaker.StateClosed, b.State())
	})

	t.Run("opens after consecutive failures and fails fast", func(t *testing.T) {
		repo := newCountingRepo()
		repo.err = domain.ErrStoreUnavailable
		b := NewBreaker(repo, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute})

		for i := 0; i < 2; i++ {
			_, err := b.FindCandidates(ctx, query)
			assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		}
		assert.Equal(t, gobreaker.StateOpen, b.State())

		_, err := b.FindCandidates(ctx, query)
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		assert.Equal(t, 2, repo.finds)
	})

	t.Run("not found does not trip", func(t *testing.T) {
		repo := newCountingRepo()
		b := NewBreaker(repo, BreakerConfig{FailureThreshold: 1})

		for i := 0; i < 3; i++ {
			_, err := b.GetByID(ctx, 42)
			assert.ErrorIs(t, err, domain.ErrProductNotFound)
		}
		assert.Equal(t, gobreaker.StateClosed, b.State())
	})

	t.Run("store errors pass through unchanged", func(t *testing.T) {
		storeErr := errors.New("disk full")
		repo := newCountingRepo()
		repo.err = storeErr
		b := NewBreaker(repo, BreakerConfig{FailureThreshold: 10})

		_, err := b.FindCandidates(ctx, query)
		assert.Equal(t, storeErr, err)
	})

	t.Run("create returns the new row", func(t *testing.T) {
		b := NewBreaker(newCountingRepo(), BreakerConfig{})

		created, err := b.Create(ctx, domain.ProductRow{Name: "Soy Milk"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
	})
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	query := domain.CandidateQuery{NameTerms: []string{"Milk"}, Limit: 5}

	newCached := func(repo domain.ProductRepository) *Cached {
		c := cache.NewMemoryCache(time.Minute)
		t.Cleanup(func() { _ = c.Close() })
		return NewCached(repo, c, time.Minute)
	}

	t.Run("serves repeated queries from cache", func(t *testing.T) {
		repo := newCountingRepo(domain.ProductRow{ID: 1, Name: "Oat Milk", Brand: "Oatly"})
		s := newCached(repo)

		first, err := s.FindCandidates(ctx, query)
		require.NoError(t, err)
		second, err := s.FindCandidates(ctx, domain.CandidateQuery{NameTerms: []string{"milk"}, Limit: 5})
		require.NoError(t, err)

		assert.Equal(t, 1, repo.finds)
		assert.Equal(t, first, second)
		assert.Equal(t, "Oatly", second[0].Brand)
	})

	t.Run("create invalidates cached queries", func(t *testing.T) {
		repo := newCountingRepo(domain.ProductRow{ID: 1, Name: "Oat Milk"})
		s := newCached(repo)

		rows, err := s.FindCandidates(ctx, query)
		require.NoError(t, err)
		assert.Len(t, rows, 1)

		_, err = s.Create(ctx, domain.ProductRow{Name: "Soy Milk"})
		require.NoError(t, err)

		rows, err = s.FindCandidates(ctx, query)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, 2, repo.finds)
	})

	t.Run("limit is part of the key", func(t *testing.T) {
		repo := newCountingRepo(domain.ProductRow{ID: 1, Name: "Oat Milk"}, domain.ProductRow{ID: 2, Name: "Soy Milk"})
		s := newCached(repo)

		_, _ = s.FindCandidates(ctx, query)
		rows, err := s.FindCandidates(ctx, domain.CandidateQuery{NameTerms: []string{"milk"}, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, 2, repo.finds)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		repo := newCountingRepo()
		repo.err = domain.ErrStoreUnavailable
		s := newCached(repo)

		_, err := s.FindCandidates(ctx, query)
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

		repo.err = nil
		_, err = s.FindCandidates(ctx, query)
		require.NoError(t, err)
		assert.Equal(t, 2, repo.finds)
	})

	t.Run("invalid query is rejected before the cache", func(t *testing.T) {
		repo := newCountingRepo()
		s := newCached(repo)

		_, err := s.FindCandidates(ctx, domain.CandidateQuery{})
		assert.ErrorIs(t, err, domain.ErrInvalidQuery)
		assert.Equal(t, 0, repo.finds)
	})
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo(domain.ProductRow{ID: 1, Name: "Oat Milk", UPC: "1"})
	s := NewInstrumented(repo)

	rows, err := s.FindCandidates(ctx, domain.CandidateQuery{UPC: "1", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = s.GetByID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	created, err := s.Create(ctx, domain.ProductRow{Name: "Soy Milk"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)
}
