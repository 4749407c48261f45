// Package catalog serves the component catalog shown in the flow editor.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrIncomplete is returned for a catalog that lacks a required component.
var ErrIncomplete = errors.New("catalog is missing required components")

// Required lists the components every catalog must carry, by category.
var Required = map[string][]string{
	"prompts": {"PromptTemplate"},
	"tools":   {"Tool", "PythonFunctionTool", "PythonFunction"},
}

// Catalog maps category to component name to the component's template.
type Catalog map[string]map[string]any

// Load reads the catalog from path, or the embedded default when path is
// empty.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and checks it carries the required
// components.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for category, names := range Required {
		for _, name := range names {
			if !c.Has(category, name) {
				return nil, fmt.Errorf("%w: %s.%s", ErrIncomplete, category, name)
			}
		}
	}
	return c, nil
}

// Has reports whether the catalog lists a component.
func (c Catalog) Has(category, name string) bool {
	_, ok := c[category][name]
	return ok
}

// Categories returns the category names in sorted order.
func (c Catalog) Categories() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Count returns the total number of components.
func (c Catalog) Count() int {
	n := 0
	for _, components := range c {
		n += len(components)
	}
	return n
}
