// Package registry describes the data models ("collections") of an application
// database: which namespaces exist, which collections each holds, and how
// their fields reference one another.
//
// A Registry is built either from a YAML manifest (LoadManifest) or by reading
// a SQLite-family schema (Introspect). It is read-only once built.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedLabel is returned when a label is not of the form "namespace.Name".
	ErrMalformedLabel = errors.New("malformed collection label")
	// ErrUnknownCollection is returned when no collection matches an ID or label.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownNamespace is returned when a namespace is not registered.
	ErrUnknownNamespace = errors.New("unknown namespace")
)

// CollectionID identifies a collection by namespace and name, e.g. ("shop", "Order").
type CollectionID struct {
	Namespace string
	Name      string
}

// String returns the "namespace.Name" label.
func (id CollectionID) String() string {
	return id.Namespace + "." + id.Name
}

// IsZero reports whether the ID is unset.
func (id CollectionID) IsZero() bool {
	return id.Namespace == "" && id.Name == ""
}

// Less orders IDs lexicographically by (namespace, name).
func (id CollectionID) Less(other CollectionID) bool {
	if id.Namespace != other.Namespace {
		return id.Namespace < other.Namespace
	}
	return id.Name < other.Name
}

// matches compares namespaces exactly and names case-insensitively.
func (id CollectionID) matches(other CollectionID) bool {
	return id.Namespace == other.Namespace && strings.EqualFold(id.Name, other.Name)
}

// ParseLabel parses "namespace.Name". Exactly one dot with non-empty parts on
// both sides is accepted.
func ParseLabel(label string) (CollectionID, error) {
	label = strings.TrimSpace(label)
	parts := strings.Split(label, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return CollectionID{}, fmt.Errorf("%w: %q (expected namespace.Name)", ErrMalformedLabel, label)
	}
	return CollectionID{Namespace: parts[0], Name: parts[1]}, nil
}

// FieldKind classifies a field for admin-signal detection and reference tracking.
type FieldKind string

const (
	FieldBool      FieldKind = "bool"
	FieldInteger   FieldKind = "integer"
	FieldString    FieldKind = "string"
	FieldReference FieldKind = "reference"
	FieldOther     FieldKind = "other"
)

// Field is a single column/attribute of a collection.
type Field struct {
	Name    string
	Kind    FieldKind
	Choices []string // enumerated values, if declared

	// References is the target of a foreign key; nil for plain fields.
	References *CollectionID
}

// IsReference reports whether the field points at another collection.
func (f Field) IsReference() bool {
	return f.References != nil
}

// Collection is one data model: its identity, physical storage name and fields.
type Collection struct {
	ID     CollectionID
	Table  string
	Fields []Field
}

// Field returns the named field, or false if the collection has none.
func (c *Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// References reports whether any field of c points directly at target.
func (c *Collection) References(target CollectionID) bool {
	for _, f := range c.Fields {
		if f.References != nil && f.References.matches(target) {
			return true
		}
	}
	return false
}

// ReferenceFields returns the fields that point at other collections.
func (c *Collection) ReferenceFields() []Field {
	var refs []Field
	for _, f := range c.Fields {
		if f.IsReference() {
			refs = append(refs, f)
		}
	}
	return refs
}
