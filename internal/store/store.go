// Package store executes bulk deletes and counts against the application
// database. One implementation speaks database/sql (SQLite, libSQL,
// PostgreSQL, MySQL); another speaks MongoDB. Each call is a single
// statement committed on its own; no call is bound to another's success.
package store

import (
	"context"
	"fmt"
	"strings"

	"resetdb/internal/registry"
)

// Store is the persistent store the eraser deletes from.
type Store interface {
	// DeleteAll removes every record of c. When keep is non-nil, records
	// matching it are left in place. Returns the number of records removed.
	DeleteAll(ctx context.Context, c *registry.Collection, keep *Match) (int64, error)

	// Count returns the number of records of c matching match (all records when nil).
	Count(ctx context.Context, c *registry.Collection, match *Match) (int64, error)

	Close() error
}

// Match selects records by one field. Exactly one of Equals, In or
// Contains is used, in that order of precedence.
type Match struct {
	Field    string
	Equals   any
	In       []any
	Contains string // case-insensitive substring
}

// String renders the match for logs and plans.
func (m *Match) String() string {
	if m == nil {
		return "<all>"
	}
	switch {
	case m.Equals != nil:
		return fmt.Sprintf("%s = %v", m.Field, m.Equals)
	case len(m.In) > 0:
		parts := make([]string, len(m.In))
		for i, v := range m.In {
			parts[i] = fmt.Sprint(v)
		}
		return fmt.Sprintf("%s IN (%s)", m.Field, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%s CONTAINS %q", m.Field, m.Contains)
	}
}

func (m *Match) validate() error {
	if m == nil {
		return nil
	}
	if m.Field == "" {
		return fmt.Errorf("match without a field")
	}
	if m.Equals == nil && len(m.In) == 0 && m.Contains == "" {
		return fmt.Errorf("match on %s has no condition", m.Field)
	}
	return nil
}
