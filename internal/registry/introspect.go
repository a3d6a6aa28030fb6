package registry

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"resetdb/internal/logging"
)

// IntrospectOptions controls how SQLite tables map onto collections.
type IntrospectOptions struct {
	// DriverName is the database/sql driver the handle was opened with.
	DriverName string

	// Namespaces lists known namespace prefixes. A table maps to the longest
	// prefix followed by "_"; tables matching none use their first "_" segment.
	Namespaces []string

	// ExcludeTables are skipped entirely (e.g. a migrations ledger).
	ExcludeTables []string

	// Aliases maps a table name to the "namespace.Name" label it belongs
	// to. They take precedence over prefix splitting, so framework tables
	// such as django_session land in their own namespace.
	Aliases map[string]string
}

type columnInfo struct {
	CID     int            `db:"cid"`
	Name    string         `db:"name"`
	Type    string         `db:"type"`
	NotNull int            `db:"notnull"`
	Default sql.NullString `db:"dflt_value"`
	PK      int            `db:"pk"`
}

type foreignKeyInfo struct {
	ID       int            `db:"id"`
	Seq      int            `db:"seq"`
	Table    string         `db:"table"`
	From     string         `db:"from"`
	To       sql.NullString `db:"to"`
	OnUpdate string         `db:"on_update"`
	OnDelete string         `db:"on_delete"`
	Match    string         `db:"match"`
}

// Introspect builds a Registry from a SQLite-family schema (sqlite3, sqlite, libsql).
func Introspect(ctx context.Context, db *sql.DB, opts IntrospectOptions) (*Registry, error) {
	driver := opts.DriverName
	if driver == "" {
		driver = "sqlite3"
	}
	x := sqlx.NewDb(db, driver)

	var tables []string
	if err := x.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	excluded := make(map[string]bool, len(opts.ExcludeTables))
	for _, t := range opts.ExcludeTables {
		excluded[t] = true
	}

	namespaces := append([]string(nil), opts.Namespaces...)
	sort.Slice(namespaces, func(i, j int) bool { return len(namespaces[i]) > len(namespaces[j]) })

	aliases := make(map[string]CollectionID, len(opts.Aliases))
	for table, label := range opts.Aliases {
		id, err := ParseLabel(label)
		if err != nil {
			return nil, fmt.Errorf("invalid alias for table %s: %w", table, err)
		}
		aliases[table] = id
	}
	n := namer{aliases: aliases, namespaces: namespaces}

	var collections []*Collection
	for _, table := range tables {
		if excluded[table] {
			continue
		}
		id, ok := n.id(table)
		if !ok {
			logging.Get(logging.CategoryRegistry).Warnw("table skipped: no namespace prefix or alias",
				"table", table)
			continue
		}
		c := &Collection{ID: id, Table: table}

		var cols []columnInfo
		if err := x.SelectContext(ctx, &cols,
			`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, table); err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
		}
		var fks []foreignKeyInfo
		if err := x.SelectContext(ctx, &fks,
			`SELECT id, seq, "table", "from", "to", on_update, on_delete, "match" FROM pragma_foreign_key_list(?)`, table); err != nil {
			return nil, fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
		}
		refs := make(map[string]string, len(fks))
		for _, fk := range fks {
			refs[fk.From] = fk.Table
		}

		for _, col := range cols {
			f := Field{Name: col.Name, Kind: kindOf(col.Type)}
			if target, ok := refs[col.Name]; ok {
				if tid, ok := n.id(target); ok {
					f.Kind = FieldReference
					f.References = &tid
				}
			}
			c.Fields = append(c.Fields, f)
		}
		collections = append(collections, c)
	}
	return New(collections)
}

// namer turns table names into collection IDs.
type namer struct {
	aliases    map[string]CollectionID
	namespaces []string // longest first
}

func (n namer) id(table string) (CollectionID, bool) {
	if id, ok := n.aliases[table]; ok {
		return id, true
	}
	return tableID(table, n.namespaces)
}

// tableID maps "shop_order_item" to ("shop", "OrderItem").
func tableID(table string, namespaces []string) (CollectionID, bool) {
	for _, ns := range namespaces {
		if rest, ok := strings.CutPrefix(table, ns+"_"); ok && rest != "" {
			return CollectionID{Namespace: ns, Name: camel(rest)}, true
		}
	}
	ns, rest, ok := strings.Cut(table, "_")
	if !ok || ns == "" || rest == "" {
		return CollectionID{}, false
	}
	return CollectionID{Namespace: ns, Name: camel(rest)}, true
}

func camel(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func kindOf(declared string) FieldKind {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "BOOL"):
		return FieldBool
	case strings.Contains(t, "INT"):
		return FieldInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return FieldString
	default:
		return FieldOther
	}
}
