package service

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/bba_catalog.yaml
var defaultCatalogYAML []byte

// Question is one questionnaire item answered on a 0..10 scale.
type Question struct {
	Key  string `yaml:"key" json:"key"`
	Text string `yaml:"text" json:"text"`
}

// CatalogModule is a diagnostic area of the BBA questionnaire.
type CatalogModule struct {
	Key         string     `yaml:"key" json:"key"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Weight      float64    `yaml:"weight" json:"weight"`
	Questions   []Question `yaml:"questions" json:"questions"`
}

// HasQuestion reports whether key is one of the module's questions.
func (m CatalogModule) HasQuestion(key string) bool {
	for _, q := range m.Questions {
		if q.Key == key {
			return true
		}
	}
	return false
}

// Catalog is the ordered set of diagnostic modules.
type Catalog struct {
	Version string          `yaml:"version" json:"version"`
	Modules []CatalogModule `yaml:"modules" json:"modules"`
}

// Module returns the module with key.
func (c *Catalog) Module(key string) (CatalogModule, bool) {
	for _, m := range c.Modules {
		if m.Key == key {
			return m, true
		}
	}
	return CatalogModule{}, false
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Modules) == 0 {
		return nil, fmt.Errorf("catalog has no modules")
	}
	seen := make(map[string]bool, len(c.Modules))
	for _, m := range c.Modules {
		if m.Key == "" {
			return nil, fmt.Errorf("catalog module without key")
		}
		if seen[m.Key] {
			return nil, fmt.Errorf("duplicate catalog module %q", m.Key)
		}
		seen[m.Key] = true
		if m.Weight <= 0 {
			return nil, fmt.Errorf("catalog module %q: weight must be positive", m.Key)
		}
		if len(m.Questions) == 0 {
			return nil, fmt.Errorf("catalog module %q has no questions", m.Key)
		}
		qs := make(map[string]bool, len(m.Questions))
		for _, q := range m.Questions {
			if q.Key == "" || qs[q.Key] {
				return nil, fmt.Errorf("catalog module %q: missing or duplicate question key %q", m.Key, q.Key)
			}
			qs[q.Key] = true
		}
	}
	return &c, nil
}

// DefaultCatalog returns the built-in diagnostic catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}
