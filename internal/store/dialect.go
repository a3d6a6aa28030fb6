package store

import (
	"fmt"
	"strconv"
	"strings"
)

// dialect captures the per-driver SQL differences the store cares about.
type dialect struct {
	name         string
	identQuote   string
	numbered     bool // $1, $2 ... instead of ?
	sqliteFamily bool
}

var dialects = map[string]dialect{
	"sqlite3":  {name: "sqlite3", identQuote: `"`, sqliteFamily: true},
	"sqlite":   {name: "sqlite", identQuote: `"`, sqliteFamily: true},
	"libsql":   {name: "libsql", identQuote: `"`, sqliteFamily: true},
	"pgx":      {name: "pgx", identQuote: `"`, numbered: true},
	"postgres": {name: "postgres", identQuote: `"`, numbered: true},
	"mysql":    {name: "mysql", identQuote: "`"},
}

// SQLDrivers returns the database/sql driver names the store supports.
func SQLDrivers() []string {
	return []string{"sqlite3", "sqlite", "libsql", "pgx", "postgres", "mysql"}
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver %q", driver)
	}
	return d, nil
}

func (d dialect) quote(ident string) string {
	q := d.identQuote
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// predicate renders the positive form of m, with NULLs never matching.
func (d dialect) predicate(m *Match) (string, []any) {
	col := d.quote(m.Field)
	switch {
	case m.Equals != nil:
		return fmt.Sprintf("(%s IS NOT NULL AND %s = %s)", col, col, d.placeholder(1)), []any{m.Equals}
	case len(m.In) > 0:
		phs := make([]string, len(m.In))
		for i := range m.In {
			phs[i] = d.placeholder(i + 1)
		}
		return fmt.Sprintf("(%s IS NOT NULL AND %s IN (%s))", col, col, strings.Join(phs, ", ")), m.In
	default:
		return fmt.Sprintf("(%s IS NOT NULL AND LOWER(%s) LIKE %s)", col, col, d.placeholder(1)),
			[]any{"%" + strings.ToLower(m.Contains) + "%"}
	}
}

func (d dialect) deleteSQL(table string, keep *Match) (string, []any) {
	query := "DELETE FROM " + d.quote(table)
	if keep == nil {
		return query, nil
	}
	pred, args := d.predicate(keep)
	return query + " WHERE NOT " + pred, args
}

func (d dialect) countSQL(table string, match *Match) (string, []any) {
	query := "SELECT COUNT(*) FROM " + d.quote(table)
	if match == nil {
		return query, nil
	}
	pred, args := d.predicate(match)
	return query + " WHERE " + pred, args
}
