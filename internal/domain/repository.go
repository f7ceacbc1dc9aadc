package domain

import (
	"context"
	"time"
)

// ProductStore is the persistence collaborator the matcher depends on.
// Implementations return rows ordered by ID ascending, at most query.Limit of them.
type ProductStore interface {
	FindCandidates(ctx context.Context, query CandidateQuery) ([]ProductRow, error)
}

// ProductRepository is a ProductStore that can also read and write single products
type ProductRepository interface {
	ProductStore
	Create(ctx context.Context, product ProductRow) (*ProductRow, error)
	GetByID(ctx context.Context, id int64) (*ProductRow, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RecallSource defines the interface for fetching recall reports
type RecallSource interface {
	SearchRecalls(ctx context.Context, search string, limit int) ([]Recall, error)
}
