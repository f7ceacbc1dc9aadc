package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/verdictapp/backend/internal/domain"
)

// fakeStore is an in-memory ProductRepository that records the queries it receives
type fakeStore struct {
	mu      sync.Mutex
	rows    []domain.ProductRow
	queries []domain.CandidateQuery
	err     error
	nextID  int64
}

func newFakeStore(rows ...domain.ProductRow) *fakeStore {
	s := &fakeStore{}
	for _, row := range rows {
		if row.ID > s.nextID {
			s.nextID = row.ID
		}
		if row.Status == "" {
			row.Status = domain.StatusPublished
		}
		s.rows = append(s.rows, row)
	}
	sort.Slice(s.rows, func(i, j int) bool { return s.rows[i].ID < s.rows[j].ID })
	return s
}

func (s *fakeStore) FindCandidates(_ context.Context, query domain.CandidateQuery) ([]domain.ProductRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var out []domain.ProductRow
	for _, row := range s.rows {
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
		if query.Matches(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, product domain.ProductRow) (*domain.ProductRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	product.ID = s.nextID
	product.CreatedAt = time.Now().UTC()
	s.rows = append(s.rows, product)
	return &product, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*domain.ProductRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	for _, row := range s.rows {
		if row.ID == id {
			found := row
			return &found, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (s *fakeStore) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *fakeStore) lastQuery() domain.CandidateQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

// fakeRecallSource serves canned recalls
type fakeRecallSource struct {
	recalls    []domain.Recall
	err        error
	lastSearch string
	lastLimit  int
	calls      int
}

func (f *fakeRecallSource) SearchRecalls(_ context.Context, search string, limit int) ([]domain.Recall, error) {
	f.calls++
	f.lastSearch = search
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.recalls) {
		return f.recalls[:limit], nil
	}
	return f.recalls, nil
}

// fakeCache is a map-backed CacheRepository that ignores TTLs
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.items[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return value, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}
