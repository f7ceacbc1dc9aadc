// Package sqlstore implements the product repository on database/sql for SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/verdictapp/backend/internal/domain"
)

// Store is a ProductRepository backed by a SQL database
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database for driver ("sqlite" or "postgres").
// A SQLite DSN that is a bare path is opened with a busy timeout and WAL journaling.
func Open(driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite && !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return &Store{db: db, dialect: d}, nil
}

// New wraps an existing connection pool
func New(db *sql.DB, driver string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: d}, nil
}

// EnsureSchema creates the products table and its indexes if missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", s.wrap(ctx, err))
		}
	}
	return nil
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.wrap(ctx, err)
	}
	return nil
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// FindCandidates returns rows satisfying the query in ID order, at most query.Limit of them
func (s *Store) FindCandidates(ctx context.Context, query domain.CandidateQuery) ([]domain.ProductRow, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	stmt, args := s.dialect.candidateQuery(query.UPC, query.NameTerms, query.Limit)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, s.wrap(ctx, err)
	}
	defer rows.Close()

	out := []domain.ProductRow{}
	for rows.Next() {
		row, err := scanProduct(rows)
		if err != nil {
			return nil, s.wrap(ctx, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(ctx, err)
	}
	return out, nil
}

// Create inserts a product and returns it with its assigned ID
func (s *Store) Create(ctx context.Context, product domain.ProductRow) (*domain.ProductRow, error) {
	if product.Status == "" {
		product.Status = domain.StatusDraft
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx, s.dialect.insertQuery(),
		product.Name,
		nullString(product.Brand),
		nullString(product.UPC),
		product.Status,
		product.CreatedAt,
	).Scan(&product.ID)
	if err != nil {
		return nil, s.wrap(ctx, err)
	}

	return &product, nil
}

// GetByID returns the product with the given ID
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.ProductRow, error) {
	row, err := scanProduct(s.db.QueryRowContext(ctx, s.dialect.getQuery(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, s.wrap(ctx, err)
	}
	return &row, nil
}

// ListAfter returns up to limit products with an ID greater than afterID, in ID order
func (s *Store) ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.ProductRow, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listQuery(), afterID, limit)
	if err != nil {
		return nil, s.wrap(ctx, err)
	}
	defer rows.Close()

	var out []domain.ProductRow
	for rows.Next() {
		row, err := scanProduct(rows)
		if err != nil {
			return nil, s.wrap(ctx, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(ctx, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(sc scanner) (domain.ProductRow, error) {
	var (
		row   domain.ProductRow
		brand sql.NullString
		upc   sql.NullString
	)
	if err := sc.Scan(&row.ID, &row.Name, &brand, &upc, &row.Status, &row.CreatedAt); err != nil {
		return domain.ProductRow{}, err
	}
	row.Brand = brand.String
	row.UPC = upc.String
	return row, nil
}

// wrap marks driver failures as store unavailability; cancellation is passed through
func (s *Store) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
