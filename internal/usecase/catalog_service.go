package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/verdictapp/backend/internal/domain"
	"github.com/verdictapp/backend/internal/logging"
)

// Ingestion outcomes
const (
	ActionCreated = "created"
	ActionFlagged = "flagged"
)

// IngestRequest asks for a product to be added to the catalog
type IngestRequest struct {
	Product domain.ProductRecord
	Status  string // defaults to draft
	Force   bool   // create even when duplicates are found
	Options FindOptions
}

// IngestResult reports what ingestion did
type IngestResult struct {
	Action     string               `json:"action"`
	Product    *domain.ProductRow   `json:"product,omitempty"`
	Duplicates []domain.MatchResult `json:"duplicates"`
}

// CatalogService adds products to the catalog after checking for duplicates
type CatalogService struct {
	repo     domain.ProductRepository
	matching *MatchingService
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo domain.ProductRepository, matching *MatchingService) *CatalogService {
	return &CatalogService{
		repo:     repo,
		matching: matching,
	}
}

// Ingest checks the product against the catalog and creates it unless it looks like
// a duplicate. With Force set the product is created anyway and the duplicates are
// still reported.
func (s *CatalogService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	product := domain.ProductRecord{
		Name:  strings.TrimSpace(req.Product.Name),
		Brand: strings.TrimSpace(req.Product.Brand),
		UPC:   strings.TrimSpace(req.Product.UPC),
	}
	if product.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidRequest)
	}

	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, status)
	}

	duplicates, err := s.matching.FindPotentialDuplicates(ctx, product, req.Options)
	if err != nil {
		return nil, err
	}

	log := logging.Ctx(ctx)
	if len(duplicates) > 0 && !req.Force {
		log.Info().
			Str("name", product.Name).
			Int("duplicates", len(duplicates)).
			Int64("top_id", duplicates[0].ID).
			Float64("top_score", duplicates[0].Score).
			Msg("Product flagged as potential duplicate")
		return &IngestResult{Action: ActionFlagged, Duplicates: duplicates}, nil
	}

	created, err := s.repo.Create(ctx, domain.ProductRow{
		Name:   product.Name,
		Brand:  product.Brand,
		UPC:    product.UPC,
		Status: status,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("id", created.ID).
		Str("name", created.Name).
		Bool("forced", req.Force && len(duplicates) > 0).
		Msg("Product created")

	return &IngestResult{Action: ActionCreated, Product: created, Duplicates: duplicates}, nil
}

// GetProduct returns a stored product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.ProductRow, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid product id", domain.ErrInvalidRequest)
	}
	return s.repo.GetByID(ctx, id)
}

func validStatus(status string) bool {
	switch status {
	case domain.StatusDraft, domain.StatusPublished, domain.StatusArchived:
		return true
	}
	return false
}
