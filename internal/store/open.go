package store

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// DriverMongo selects MongoStore in Open.
const DriverMongo = "mongodb"

// Options selects and configures a backend.
type Options struct {
	Driver   string // one of SQLDrivers() or DriverMongo
	DSN      string
	Database string // MongoDB database name
}

// Open returns the Store for opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("no database DSN configured")
	}
	if opts.Driver == DriverMongo {
		return OpenMongo(ctx, opts.DSN, opts.Database)
	}
	return OpenSQL(ctx, opts.Driver, opts.DSN)
}

// IsSQLiteFamily reports whether driver speaks SQLite (and can be introspected).
func IsSQLiteFamily(driver string) bool {
	d, ok := dialects[driver]
	return ok && d.sqliteFamily
}
