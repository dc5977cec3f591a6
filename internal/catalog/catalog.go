// Package catalog declares the served entities and wires them onto the CRUD
// engine at startup.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/catalog/internal/core"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type file struct {
	Entities []entry `yaml:"entities"`
}

type entry struct {
	Name       string   `yaml:"name"`
	Group      string   `yaml:"group"`
	Label      string   `yaml:"label"`
	Collection string   `yaml:"collection"`
	Unique     []string `yaml:"unique"`
	Conflict   string   `yaml:"conflict"`
	Required   []string `yaml:"required"`
	Timestamps bool     `yaml:"timestamps"`
}

// Default returns the built-in catalog.
func Default() ([]core.EntityDefinition, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from path, or the built-in catalog when path is empty.
func LoadFile(path string) ([]core.EntityDefinition, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses and validates a YAML catalog.
func Load(r io.Reader) ([]core.EntityDefinition, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	var errs []string
	seen := make(map[string]bool, len(doc.Entities))
	defs := make([]core.EntityDefinition, 0, len(doc.Entities))

	for i, e := range doc.Entities {
		name := strings.TrimSpace(e.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Sprintf("entity %d: name is required", i))
			continue
		case seen[name]:
			errs = append(errs, fmt.Sprintf("%s: duplicate entity", name))
			continue
		}
		seen[name] = true

		if len(e.Unique) > 0 && strings.TrimSpace(e.Conflict) == "" {
			errs = append(errs, fmt.Sprintf("%s: conflict message is required with unique fields", name))
		}
		for _, f := range e.Unique {
			if strings.TrimSpace(f) == "" {
				errs = append(errs, fmt.Sprintf("%s: empty unique field", name))
			}
		}

		defs = append(defs, core.EntityDefinition{
			Entity:          core.Entity{Name: name, Group: e.Group, Label: e.Label},
			Collection:      e.Collection,
			Unique:          e.Unique,
			ConflictMessage: e.Conflict,
			Required:        e.Required,
			Timestamps:      e.Timestamps,
		})
	}

	if len(defs) == 0 && len(errs) == 0 {
		errs = append(errs, "catalog declares no entities")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return defs, nil
}
