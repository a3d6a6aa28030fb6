package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resetdb/internal/registry"
)

var (
	users = &registry.Collection{ID: registry.CollectionID{Namespace: "accounts", Name: "User"}, Table: "accounts_user"}
	posts = &registry.Collection{ID: registry.CollectionID{Namespace: "blog", Name: "Post"}, Table: "blog_post"}
)

const fixture = `
CREATE TABLE accounts_user (
	id INTEGER PRIMARY KEY,
	is_superuser BOOL,
	role TEXT
);
CREATE TABLE blog_post (
	id INTEGER PRIMARY KEY,
	author_id INTEGER NOT NULL REFERENCES accounts_user(id)
);
INSERT INTO accounts_user (id, is_superuser, role) VALUES
	(1, 1, 'Site Admin'),
	(2, 0, 'member'),
	(3, NULL, NULL),
	(4, 1, 'editor');
INSERT INTO blog_post (id, author_id) VALUES (1, 2);
`

func openFixture(t *testing.T, driver string) *SQLStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "fixture.db")
	s, err := OpenSQL(context.Background(), driver, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.DB().Exec(fixture)
	require.NoError(t, err)
	return s
}

func TestSQLStore_SQLiteDrivers(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := openFixture(t, driver)

			admins := &Match{Field: "is_superuser", Equals: true}
			n, err := s.Count(ctx, users, admins)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			// blog_post still references user 2: foreign keys are enforced
			_, err = s.DeleteAll(ctx, users, admins)
			require.Error(t, err)

			n, err = s.DeleteAll(ctx, posts, nil)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			n, err = s.DeleteAll(ctx, users, admins)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n, "NULL flags are not admins")

			n, err = s.Count(ctx, users, nil)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)
		})
	}
}

func TestSQLStore_ContainsAndIn(t *testing.T) {
	ctx := context.Background()
	s := openFixture(t, "sqlite3")
	_, err := s.DeleteAll(ctx, posts, nil)
	require.NoError(t, err)

	n, err := s.Count(ctx, users, &Match{Field: "role", Contains: "ADMIN"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.DeleteAll(ctx, users, &Match{Field: "role", In: []any{"Site Admin", "editor"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.Count(ctx, users, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestSQLStore_PostgresDialect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLStore(db, "pgx")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "accounts_user" WHERE NOT ("role" IS NOT NULL AND "role" IN ($1, $2))`)).
		WithArgs("admin", "superadmin").
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "accounts_user" WHERE ("is_staff" IS NOT NULL AND "is_staff" = $1)`)).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.DeleteAll(context.Background(), users, &Match{Field: "role", In: []any{"admin", "superadmin"}})
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	n, err = s.Count(context.Background(), users, &Match{Field: "is_staff", Equals: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_MySQLDialect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLStore(db, "mysql")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `blog_post`")).
		WillReturnError(errors.New("Cannot delete or update a parent row"))

	_, err = s.DeleteAll(context.Background(), posts, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blog_post")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialect_QuoteEscapes(t *testing.T) {
	d, err := dialectFor("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, `"we""ird"`, d.quote(`we"ird`))

	_, err = dialectFor("oracle")
	assert.Error(t, err)
}

func TestMatch_Validate(t *testing.T) {
	var none *Match
	assert.NoError(t, none.validate())
	assert.Error(t, (&Match{Equals: true}).validate())
	assert.Error(t, (&Match{Field: "role"}).validate())
	assert.Equal(t, "<all>", none.String())
	assert.Equal(t, "is_staff = true", (&Match{Field: "is_staff", Equals: true}).String())
}

func TestIsSQLiteFamily(t *testing.T) {
	assert.True(t, IsSQLiteFamily("libsql"))
	assert.False(t, IsSQLiteFamily("pgx"))
	assert.False(t, IsSQLiteFamily(DriverMongo))
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{Driver: "sqlite3"})
	assert.Error(t, err, "empty DSN")

	_, err = Open(ctx, Options{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: DriverMongo, DSN: "mongodb://127.0.0.1:1"})
	assert.Error(t, err, "mongodb needs a database name")
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	defer st.Close()

	sqlStore, ok := st.(*SQLStore)
	require.True(t, ok)
	assert.Equal(t, "sqlite", sqlStore.Driver())

	var fk int
	require.NoError(t, sqlStore.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}
