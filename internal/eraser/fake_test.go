package eraser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"resetdb/internal/registry"
	"resetdb/internal/store"
)

type row map[string]any

// memStore is an in-memory store.Store that records the delete order.
type memStore struct {
	rows    map[registry.CollectionID][]row
	fail    map[registry.CollectionID]error
	deletes []registry.CollectionID
	counts  int
}

func newMemStore() *memStore {
	return &memStore{
		rows: make(map[registry.CollectionID][]row),
		fail: make(map[registry.CollectionID]error),
	}
}

func (m *memStore) seed(id registry.CollectionID, rows ...row) {
	m.rows[id] = append(m.rows[id], rows...)
}

func (m *memStore) DeleteAll(ctx context.Context, c *registry.Collection, keep *store.Match) (int64, error) {
	m.deletes = append(m.deletes, c.ID)
	if err := m.fail[c.ID]; err != nil {
		return 0, err
	}
	var kept []row
	var n int64
	for _, r := range m.rows[c.ID] {
		if keep != nil && matches(r, keep) {
			kept = append(kept, r)
			continue
		}
		n++
	}
	m.rows[c.ID] = kept
	return n, nil
}

func (m *memStore) Count(ctx context.Context, c *registry.Collection, match *store.Match) (int64, error) {
	m.counts++
	var n int64
	for _, r := range m.rows[c.ID] {
		if match == nil || matches(r, match) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Close() error { return nil }

func matches(r row, m *store.Match) bool {
	v, ok := r[m.Field]
	if !ok || v == nil {
		return false
	}
	switch {
	case m.Equals != nil:
		return v == m.Equals
	case len(m.In) > 0:
		for _, want := range m.In {
			if v == want {
				return true
			}
		}
		return false
	default:
		return strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(m.Contains))
	}
}

// recorder captures reporter output as "level: message" lines.
type recorder struct {
	lines []string
}

func (r *recorder) Notice(msg string)  { r.lines = append(r.lines, "notice: "+msg) }
func (r *recorder) Success(msg string) { r.lines = append(r.lines, "success: "+msg) }
func (r *recorder) Warning(msg string) { r.lines = append(r.lines, "warning: "+msg) }
func (r *recorder) Error(msg string)   { r.lines = append(r.lines, "error: "+msg) }

func (r *recorder) has(line string) bool {
	for _, l := range r.lines {
		if l == line {
			return true
		}
	}
	return false
}

func (r *recorder) index(line string) int {
	for i, l := range r.lines {
		if l == line {
			return i
		}
	}
	return -1
}

// scripted answers every confirmation with a fixed result.
type scripted struct {
	answer bool
	err    error
	asked  []string
}

func (s *scripted) Confirm(ctx context.Context, question string) (bool, error) {
	s.asked = append(s.asked, question)
	return s.answer, s.err
}

var (
	orderID    = registry.CollectionID{Namespace: "shop", Name: "Order"}
	customerID = registry.CollectionID{Namespace: "shop", Name: "Customer"}
	userID     = registry.CollectionID{Namespace: "accounts", Name: "User"}
	postID     = registry.CollectionID{Namespace: "blog", Name: "Post"}
	tagID      = registry.CollectionID{Namespace: "blog", Name: "Tag"}
	groupID    = registry.CollectionID{Namespace: "auth", Name: "Group"}
	sessionID  = registry.CollectionID{Namespace: "sessions", Name: "Session"}
)

func ref(id registry.CollectionID) *registry.CollectionID { return &id }

// testRegistry models a small shop with a custom Account collection.
func testRegistry(t *testing.T, userFields ...registry.Field) *registry.Registry {
	t.Helper()
	if len(userFields) == 0 {
		userFields = []registry.Field{
			{Name: "id", Kind: registry.FieldInteger},
			{Name: "is_superuser", Kind: registry.FieldBool},
		}
	}
	reg, err := registry.New([]*registry.Collection{
		{ID: orderID, Table: "shop_order", Fields: []registry.Field{
			{Name: "id", Kind: registry.FieldInteger},
			{Name: "customer_id", Kind: registry.FieldReference, References: ref(customerID)},
		}},
		{ID: customerID, Table: "shop_customer", Fields: []registry.Field{
			{Name: "id", Kind: registry.FieldInteger},
			{Name: "user_id", Kind: registry.FieldReference, References: ref(userID)},
		}},
		{ID: userID, Table: "accounts_user", Fields: userFields},
		{ID: postID, Table: "blog_post", Fields: []registry.Field{
			{Name: "author_id", Kind: registry.FieldReference, References: ref(userID)},
		}},
		{ID: tagID, Table: "blog_tag"},
		{ID: groupID, Table: "auth_group"},
		{ID: sessionID, Table: "sessions_session"},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

var errIntegrity = errors.New("FOREIGN KEY constraint failed")
