package eraser

import (
	"strings"

	"resetdb/internal/registry"
	"resetdb/internal/store"
)

// AdminSignal identifies administrator records of the Account collection.
type AdminSignal interface {
	// Name is the field the signal reads.
	Name() string
	// Supports reports whether the collection's schema carries the signal.
	Supports(c *registry.Collection) bool
	// Match selects the admin records of c. Only valid when Supports(c).
	Match(c *registry.Collection) *store.Match
}

// flagSignal is a boolean field that is true for admins.
type flagSignal struct {
	field string
}

func (s flagSignal) Name() string { return s.field }

func (s flagSignal) Supports(c *registry.Collection) bool {
	f, ok := c.Field(s.field)
	return ok && f.Kind == registry.FieldBool
}

func (s flagSignal) Match(*registry.Collection) *store.Match {
	return &store.Match{Field: s.field, Equals: true}
}

// roleSignal is an enumerated role field with at least one admin value.
type roleSignal struct {
	field string
}

func (s roleSignal) Name() string { return s.field }

func (s roleSignal) Supports(c *registry.Collection) bool {
	f, ok := c.Field(s.field)
	if !ok {
		return false
	}
	if len(f.Choices) > 0 {
		return len(adminChoices(f.Choices)) > 0
	}
	return f.Kind == registry.FieldString
}

func (s roleSignal) Match(c *registry.Collection) *store.Match {
	f, _ := c.Field(s.field)
	if choices := adminChoices(f.Choices); len(choices) > 0 {
		in := make([]any, len(choices))
		for i, v := range choices {
			in[i] = v
		}
		return &store.Match{Field: s.field, In: in}
	}
	return &store.Match{Field: s.field, Contains: "admin"}
}

func adminChoices(choices []string) []string {
	var out []string
	for _, v := range choices {
		if strings.Contains(strings.ToLower(v), "admin") {
			out = append(out, v)
		}
	}
	return out
}

// AdminSignals are the supported signals in priority order.
var AdminSignals = []AdminSignal{
	flagSignal{field: "is_superuser"},
	flagSignal{field: "is_admin"},
	flagSignal{field: "is_staff"},
	roleSignal{field: "role"},
}

// DetectAdminSignal returns the first signal c supports, or nil.
func DetectAdminSignal(c *registry.Collection) AdminSignal {
	if c == nil {
		return nil
	}
	for _, s := range AdminSignals {
		if s.Supports(c) {
			return s
		}
	}
	return nil
}
