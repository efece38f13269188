package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout accepted by LoadFile. Either section may be omitted, in which
// case the built-in table is used.
type File struct {
	Pillars []Pillar `yaml:"pillars"`
	Cities  []City   `yaml:"cities"`
}

// LoadFile reads pillar and city overrides from a YAML file. An empty path returns the
// built-in tables.
func LoadFile(path string) (*Taxonomy, *Catalog, error) {
	if path == "" {
		return Default(), DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read taxonomy file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a taxonomy YAML document.
func Parse(data []byte) (*Taxonomy, *Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse taxonomy yaml: %w", err)
	}

	tax := Default()
	if len(f.Pillars) > 0 {
		t, err := New(f.Pillars)
		if err != nil {
			return nil, nil, err
		}
		tax = t
	}

	catalog := DefaultCatalog()
	if len(f.Cities) > 0 {
		c, err := NewCatalog(f.Cities)
		if err != nil {
			return nil, nil, err
		}
		catalog = c
	}
	return tax, catalog, nil
}
