// Package meili serves candidate name lookups from a Meilisearch index kept
// alongside the primary product repository.
package meili

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/meilisearch/meilisearch-go"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/logging"
)

const (
	defaultIndexName = "products"
	defaultPageSize  = 1000
)

// Config holds the Meilisearch connection settings
type Config struct {
	URL    string
	APIKey string
	Index  string
}

// Lister pages through every stored product in ID order
type Lister interface {
	ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.ProductRow, error)
}

// Store is a ProductRepository that answers name-term candidate queries from the
// search index and everything else from the primary repository. Creates are
// mirrored into the index on a best-effort basis.
type Store struct {
	primary domain.ProductRepository
	client  meilisearch.ServiceManager
	index   meilisearch.IndexManager
	uid     string
}

// New creates an index-backed store in front of primary
func New(primary domain.ProductRepository, config Config) *Store {
	uid := config.Index
	if uid == "" {
		uid = defaultIndexName
	}

	client := meilisearch.New(config.URL, meilisearch.WithAPIKey(config.APIKey))

	return &Store{
		primary: primary,
		client:  client,
		index:   client.Index(uid),
		uid:     uid,
	}
}

// EnsureIndex creates the index and configures the attributes candidate lookups filter and sort on
func (s *Store) EnsureIndex(ctx context.Context) error {
	// Creating an existing index fails asynchronously; only transport errors surface here
	if _, err := s.client.CreateIndex(&meilisearch.IndexConfig{Uid: s.uid, PrimaryKey: "id"}); err != nil {
		return fmt.Errorf("create index %s: %w", s.uid, err)
	}

	settings := meilisearch.Settings{
		SearchableAttributes: []string{"name", "brand"},
		FilterableAttributes: []string{"name", "upc", "status"},
		SortableAttributes:   []string{"id"},
	}
	if _, err := s.index.UpdateSettings(&settings); err != nil {
		return fmt.Errorf("update index settings: %w", err)
	}

	logging.Ctx(ctx).Info().Str("index", s.uid).Msg("Meilisearch index configured")
	return nil
}

// Backfill replaces the index contents with every product the lister returns,
// batchSize at a time. Documents left over from earlier runs are dropped first
// since their IDs may no longer exist or may now name a different product.
func (s *Store) Backfill(ctx context.Context, lister Lister, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultPageSize
	}

	// Tasks on one index run in order, so the clear lands before the additions
	if _, err := s.index.DeleteAllDocuments(nil); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}

	var afterID int64
	indexed := 0
	for {
		rows, err := lister.ListAfter(ctx, afterID, batchSize)
		if err != nil {
			return indexed, err
		}
		if len(rows) == 0 {
			return indexed, nil
		}

		if _, err := s.index.AddDocuments(rows, nil); err != nil {
			return indexed, fmt.Errorf("index products: %w", err)
		}
		indexed += len(rows)
		afterID = rows[len(rows)-1].ID

		logging.Ctx(ctx).Debug().Int("indexed", indexed).Int64("after_id", afterID).Msg("Backfill batch indexed")

		if len(rows) < batchSize {
			return indexed, nil
		}
	}
}

// FindCandidates serves name-term queries from the index. UPC queries go to the primary repository.
func (s *Store) FindCandidates(ctx context.Context, query domain.CandidateQuery) ([]domain.ProductRow, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.UPC != "" {
		return s.primary.FindCandidates(ctx, query)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageSize := int64(query.Limit)
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	// The index folds case and diacritics more broadly than the predicate does,
	// so rejected hits are skipped and the next page is read until Limit rows pass.
	out := make([]domain.ProductRow, 0, pageSize)
	for offset := int64(0); ; offset += pageSize {
		hits, err := s.search(query.NameTerms, offset, pageSize)
		if err != nil {
			return nil, err
		}

		for _, row := range hits {
			if !query.Matches(row) {
				continue
			}
			out = append(out, row)
			if query.Limit > 0 && len(out) == query.Limit {
				return out, nil
			}
		}

		if int64(len(hits)) < pageSize {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (s *Store) search(terms []string, offset, limit int64) ([]domain.ProductRow, error) {
	res, err := s.index.Search("", &meilisearch.SearchRequest{
		Filter: containsFilter(terms),
		Sort:   []string{"id:asc"},
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var hits []domain.ProductRow
	b, err := json.Marshal(res.Hits)
	if err != nil {
		return nil, fmt.Errorf("%w: decode hits: %v", domain.ErrStoreUnavailable, err)
	}
	if err := json.Unmarshal(b, &hits); err != nil {
		return nil, fmt.Errorf("%w: decode hits: %v", domain.ErrStoreUnavailable, err)
	}
	return hits, nil
}

// Create stores the product in the primary repository and mirrors it into the index
func (s *Store) Create(ctx context.Context, product domain.ProductRow) (*domain.ProductRow, error) {
	created, err := s.primary.Create(ctx, product)
	if err != nil {
		return nil, err
	}

	if _, err := s.index.AddDocuments([]domain.ProductRow{*created}, nil); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("id", created.ID).Msg("Failed to index product")
	}

	return created, nil
}

// GetByID reads from the primary repository
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.ProductRow, error) {
	return s.primary.GetByID(ctx, id)
}

// containsFilter builds `name CONTAINS "a" OR name CONTAINS "b"`.
// CONTAINS requires the containsFilter experimental feature on the Meilisearch instance.
func containsFilter(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		escaped := strings.ReplaceAll(strings.ReplaceAll(term, `\`, `\\`), `"`, `\"`)
		parts = append(parts, `name CONTAINS "`+escaped+`"`)
	}
	return strings.Join(parts, " OR ")
}
