package store

import (
	"context"
	"database/sql"
	"fmt"

	"resetdb/internal/logging"
	"resetdb/internal/registry"
)

// SQLStore deletes through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLStore wraps an open handle. driver selects the SQL dialect.
func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// OpenSQL opens and pings a database/sql connection. SQLite-family
// connections are pinned to one connection with foreign keys enforced.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenSQL")
	defer timer.Stop()

	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	logging.Store("Opening %s database", driver)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		logging.Get(logging.CategoryStore).Errorf("Failed to open %s database: %v", driver, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.sqliteFamily {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if d.sqliteFamily {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			logging.StoreDebug("Failed to enable sqlite foreign_keys: %v", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
		}
	}

	return &SQLStore{db: db, dialect: d}, nil
}

// DB exposes the underlying handle (used for schema introspection).
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name the store was opened with.
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

// DeleteAll implements Store.
func (s *SQLStore) DeleteAll(ctx context.Context, c *registry.Collection, keep *Match) (int64, error) {
	if err := keep.validate(); err != nil {
		return 0, err
	}
	query, args := s.dialect.deleteSQL(c.Table, keep)
	logging.StoreDebug("DeleteAll %s: %s", c.ID, query)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for %s: %w", c.Table, err)
	}
	return n, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context, c *registry.Collection, match *Match) (int64, error) {
	if err := match.validate(); err != nil {
		return 0, err
	}
	query, args := s.dialect.countSQL(c.Table, match)

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Table, err)
	}
	return n, nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
