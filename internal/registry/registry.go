package registry

import (
	"fmt"
	"sort"
)

// Registry holds every known collection grouped by namespace.
type Registry struct {
	namespaces map[string][]*Collection
}

// New builds a registry from a flat list of collections. Duplicate IDs are rejected.
func New(collections []*Collection) (*Registry, error) {
	r := &Registry{namespaces: make(map[string][]*Collection)}
	seen := make(map[CollectionID]bool, len(collections))
	for _, c := range collections {
		if c == nil {
			continue
		}
		if c.ID.Namespace == "" || c.ID.Name == "" {
			return nil, fmt.Errorf("collection %q: namespace and name are required", c.ID)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate collection %s", c.ID)
		}
		seen[c.ID] = true
		r.namespaces[c.ID.Namespace] = append(r.namespaces[c.ID.Namespace], c)
	}
	for ns := range r.namespaces {
		cs := r.namespaces[ns]
		sort.Slice(cs, func(i, j int) bool { return cs[i].ID.Less(cs[j].ID) })
	}
	return r, nil
}

// Namespaces returns the registered namespace names, sorted.
func (r *Registry) Namespaces() []string {
	names := make([]string, 0, len(r.namespaces))
	for ns := range r.namespaces {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Namespace returns the collections of one namespace in (namespace, name) order.
func (r *Registry) Namespace(name string) ([]*Collection, error) {
	cs, ok := r.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
	}
	out := make([]*Collection, len(cs))
	copy(out, cs)
	return out, nil
}

// Collections returns every collection in (namespace, name) order.
func (r *Registry) Collections() []*Collection {
	var out []*Collection
	for _, ns := range r.Namespaces() {
		out = append(out, r.namespaces[ns]...)
	}
	return out
}

// Lookup resolves an ID. The name comparison is case-insensitive.
func (r *Registry) Lookup(id CollectionID) (*Collection, error) {
	for _, c := range r.namespaces[id.Namespace] {
		if c.ID.matches(id) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, id)
}

// LookupLabel parses and resolves a "namespace.Name" label.
func (r *Registry) LookupLabel(label string) (*Collection, error) {
	id, err := ParseLabel(label)
	if err != nil {
		return nil, err
	}
	return r.Lookup(id)
}

// Len returns the number of collections.
func (r *Registry) Len() int {
	n := 0
	for _, cs := range r.namespaces {
		n += len(cs)
	}
	return n
}
