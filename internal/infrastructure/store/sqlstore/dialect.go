package sqlstore

import (
	"fmt"
	"strings"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect captures the SQL differences between the supported drivers
type dialect struct {
	name     string
	likeOp   string // case-insensitive pattern operator
	idColumn string
	timeType string
	numbered bool // $1, $2 placeholders instead of ?
}

var (
	sqliteDialect = dialect{
		name:     DriverSQLite,
		likeOp:   "LIKE",
		idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT",
		timeType: "DATETIME",
	}
	postgresDialect = dialect{
		name:     DriverPostgres,
		likeOp:   "ILIKE",
		idColumn: "BIGSERIAL PRIMARY KEY",
		timeType: "TIMESTAMPTZ",
		numbered: true,
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// placeholder returns the bind marker for the n-th (1-based) argument
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d dialect) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS products (
            id %s,
            name TEXT NOT NULL,
            brand TEXT,
            upc TEXT,
            status TEXT NOT NULL DEFAULT 'draft',
            created_at %s NOT NULL
        )`, d.idColumn, d.timeType),
		`CREATE INDEX IF NOT EXISTS idx_products_upc ON products(upc)`,
		`CREATE INDEX IF NOT EXISTS idx_products_status ON products(status)`,
	}
}

// candidateQuery builds the SELECT for a UPC or name-term lookup
func (d dialect) candidateQuery(upc string, terms []string, limit int) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT id, name, brand, upc, status, created_at FROM products WHERE ")
	if upc != "" {
		args = append(args, upc)
		b.WriteString("upc = " + d.placeholder(len(args)))
	} else {
		b.WriteString("(")
		for i, term := range terms {
			if i > 0 {
				b.WriteString(" OR ")
			}
			args = append(args, "%"+escapeLike(strings.ToLower(term))+"%")
			fmt.Fprintf(&b, `name %s %s ESCAPE '\'`, d.likeOp, d.placeholder(len(args)))
		}
		b.WriteString(")")
	}
	b.WriteString(" ORDER BY id ASC")
	if limit > 0 {
		args = append(args, limit)
		b.WriteString(" LIMIT " + d.placeholder(len(args)))
	}
	return b.String(), args
}

func (d dialect) insertQuery() string {
	return fmt.Sprintf(
		"INSERT INTO products (name, brand, upc, status, created_at) VALUES (%s, %s, %s, %s, %s) RETURNING id",
		d.placeholder(1), d.placeholder(2), d.placeholder(3), d.placeholder(4), d.placeholder(5),
	)
}

func (d dialect) listQuery() string {
	return fmt.Sprintf(
		"SELECT id, name, brand, upc, status, created_at FROM products WHERE id > %s ORDER BY id ASC LIMIT %s",
		d.placeholder(1), d.placeholder(2),
	)
}

func (d dialect) getQuery() string {
	return "SELECT id, name, brand, upc, status, created_at FROM products WHERE id = " + d.placeholder(1)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
