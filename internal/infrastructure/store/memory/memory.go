// Package memory provides an in-process product repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/verdictapp/backend/internal/domain"
)

// Store is a thread-safe in-memory ProductRepository. Rows are kept in ID order.
type Store struct {
	rows   []domain.ProductRow
	nextID int64
	mutex  sync.RWMutex
}

// New creates a store seeded with rows. Rows without an ID are assigned one.
func New(rows ...domain.ProductRow) *Store {
	s := &Store{}
	for _, row := range rows {
		if row.ID > s.nextID {
			s.nextID = row.ID
		}
	}
	for _, row := range rows {
		if row.ID == 0 {
			s.nextID++
			row.ID = s.nextID
		}
		if row.Status == "" {
			row.Status = domain.StatusDraft
		}
		s.rows = append(s.rows, row)
	}
	sort.Slice(s.rows, func(i, j int) bool { return s.rows[i].ID < s.rows[j].ID })
	return s
}

// FindCandidates returns rows satisfying the query in ID order, at most query.Limit of them
func (s *Store) FindCandidates(ctx context.Context, query domain.CandidateQuery) ([]domain.ProductRow, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := []domain.ProductRow{}
	for _, row := range s.rows {
		if query.Limit > 0 && len(out) >= query.Limit {
			break
		}
		if query.Matches(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Create stores a new product and returns it with its assigned ID
func (s *Store) Create(ctx context.Context, product domain.ProductRow) (*domain.ProductRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextID++
	product.ID = s.nextID
	if product.Status == "" {
		product.Status = domain.StatusDraft
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, product)

	created := product
	return &created, nil
}

// GetByID returns the product with the given ID
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.ProductRow, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	i := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].ID >= id })
	if i == len(s.rows) || s.rows[i].ID != id {
		return nil, domain.ErrProductNotFound
	}
	row := s.rows[i]
	return &row, nil
}

// ListAfter returns up to limit products with an ID greater than afterID, in ID order
func (s *Store) ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.ProductRow, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	i := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].ID > afterID })
	end := min(i+limit, len(s.rows))
	out := make([]domain.ProductRow, end-i)
	copy(out, s.rows[i:end])
	return out, nil
}

// Len returns the number of stored products
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.rows)
}
