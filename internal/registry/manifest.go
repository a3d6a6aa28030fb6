package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk YAML description of the application's models.
//
//	namespaces:
//	  - name: shop
//	    collections:
//	      - name: Customer
//	        table: shop_customer
//	        fields:
//	          - {name: id, kind: integer}
//	          - {name: user_id, kind: reference, references: accounts.User}
type Manifest struct {
	Namespaces []ManifestNamespace `yaml:"namespaces"`
}

// ManifestNamespace groups collections under one namespace.
type ManifestNamespace struct {
	Name        string               `yaml:"name"`
	Collections []ManifestCollection `yaml:"collections"`
}

// ManifestCollection describes one collection.
type ManifestCollection struct {
	Name   string          `yaml:"name"`
	Table  string          `yaml:"table,omitempty"` // default: <namespace>_<lowercased name>
	Fields []ManifestField `yaml:"fields"`
}

// ManifestField describes one field. References, when set, is a
// "namespace.Name" label and implies kind "reference".
type ManifestField struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind,omitempty"`
	Choices    []string `yaml:"choices,omitempty"`
	References string   `yaml:"references,omitempty"`
}

// LoadManifest reads and parses a manifest file into a Registry.
func LoadManifest(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses YAML manifest bytes into a Registry.
func ParseManifest(data []byte) (*Registry, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m.Build()
}

// Build converts the manifest into a Registry. Reference labels must be
// well-formed but may point at collections outside the manifest.
func (m *Manifest) Build() (*Registry, error) {
	var collections []*Collection
	for _, ns := range m.Namespaces {
		if ns.Name == "" {
			return nil, fmt.Errorf("manifest: namespace without a name")
		}
		for _, mc := range ns.Collections {
			c := &Collection{
				ID:    CollectionID{Namespace: ns.Name, Name: mc.Name},
				Table: mc.Table,
			}
			if c.Table == "" {
				c.Table = ns.Name + "_" + strings.ToLower(mc.Name)
			}
			for _, mf := range mc.Fields {
				f, err := mf.field()
				if err != nil {
					return nil, fmt.Errorf("manifest: %s.%s: %w", c.ID, mf.Name, err)
				}
				c.Fields = append(c.Fields, f)
			}
			collections = append(collections, c)
		}
	}
	return New(collections)
}

func (mf ManifestField) field() (Field, error) {
	if mf.Name == "" {
		return Field{}, fmt.Errorf("field without a name")
	}
	f := Field{Name: mf.Name, Choices: mf.Choices}
	switch strings.ToLower(mf.Kind) {
	case "bool", "boolean":
		f.Kind = FieldBool
	case "int", "integer":
		f.Kind = FieldInteger
	case "string", "text", "enum":
		f.Kind = FieldString
	case "reference", "fk", "foreign_key":
		f.Kind = FieldReference
	case "":
		f.Kind = FieldOther
		if len(mf.Choices) > 0 {
			f.Kind = FieldString
		}
	default:
		f.Kind = FieldOther
	}
	if mf.References != "" {
		target, err := ParseLabel(mf.References)
		if err != nil {
			return Field{}, err
		}
		f.Kind = FieldReference
		f.References = &target
	} else if f.Kind == FieldReference {
		return Field{}, fmt.Errorf("reference field without a target")
	}
	return f, nil
}
