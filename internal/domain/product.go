package domain

import (
	"strings"
	"time"
)

// Product statuses used by the catalog
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// ProductRecord is a product as supplied by a caller (AI extraction, recall feed, ingestion).
// Empty Brand or UPC means the field is absent.
type ProductRecord struct {
	Name  string `json:"name"`
	Brand string `json:"brand,omitempty"`
	UPC   string `json:"upc,omitempty"`
}

// ProductRow is a stored catalog product
type ProductRow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand,omitempty"`
	UPC       string    `json:"upc,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Record returns the matching-relevant fields of the row
func (r ProductRow) Record() ProductRecord {
	return ProductRecord{Name: r.Name, Brand: r.Brand, UPC: r.UPC}
}

// MatchResult represents an existing product that may duplicate a new one
type MatchResult struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Brand  string  `json:"brand,omitempty"`
	Status string  `json:"status"`
	Score  float64 `json:"score"` // Duplicate confidence 0-1
}

// NewMatchResult builds a MatchResult from a stored row
func NewMatchResult(row ProductRow, score float64) MatchResult {
	return MatchResult{
		ID:     row.ID,
		Name:   row.Name,
		Brand:  row.Brand,
		Status: row.Status,
		Score:  score,
	}
}

// CandidateQuery is the predicate handed to a ProductStore.
// A non-empty UPC selects rows with that exact UPC; otherwise rows whose
// name contains any of NameTerms (case-insensitive) are selected.
type CandidateQuery struct {
	UPC       string
	NameTerms []string
	Limit     int
}

// Validate checks that exactly one of UPC and NameTerms is set
func (q CandidateQuery) Validate() error {
	if (q.UPC == "") == (len(q.NameTerms) == 0) {
		return ErrInvalidQuery
	}
	return nil
}

// Matches reports whether a row satisfies the query predicate.
// Stores that cannot express the predicate natively use this to filter.
func (q CandidateQuery) Matches(row ProductRow) bool {
	if q.UPC != "" {
		return row.UPC == q.UPC
	}
	name := strings.ToLower(row.Name)
	for _, term := range q.NameTerms {
		if strings.Contains(name, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
