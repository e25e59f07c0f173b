// Package catalog holds the static program to technology mapping used to
// offer technology filter options. The mapping is configuration data and is
// independent of which technologies appear in the stored courses.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Program is one program with its ordered technology labels.
type Program struct {
	Name         string   `yaml:"name" json:"name"`
	Technologies []string `yaml:"technologies" json:"technologies"`
}

// Catalog is the parsed catalog document.
type Catalog struct {
	Branches []string  `yaml:"branches" json:"branches"`
	Programs []Program `yaml:"programs" json:"programs"`

	byName map[string]int
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default is invalid: %v", err))
	}
	return c
}

// Load returns the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(c.Programs) == 0 {
		return nil, fmt.Errorf("at least one program is required")
	}

	c.byName = make(map[string]int, len(c.Programs))
	for i, p := range c.Programs {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("program %d: name is required", i)
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("program %q is listed twice", name)
		}
		for j, tech := range p.Technologies {
			if strings.TrimSpace(tech) == "" {
				return nil, fmt.Errorf("program %q: technology %d is empty", name, j)
			}
		}
		c.Programs[i].Name = name
		c.byName[name] = i
	}
	return &c, nil
}

// Technologies returns the technology labels for program in catalog order.
// It is empty for "All" and for programs the catalog does not know.
func (c *Catalog) Technologies(program string) []string {
	i, ok := c.byName[program]
	if !ok {
		return []string{}
	}
	techs := c.Programs[i].Technologies
	out := make([]string, len(techs))
	copy(out, techs)
	return out
}

// HasProgram reports whether program is listed in the catalog.
func (c *Catalog) HasProgram(program string) bool {
	_, ok := c.byName[program]
	return ok
}

// ProgramNames returns program names in catalog order.
func (c *Catalog) ProgramNames() []string {
	names := make([]string, len(c.Programs))
	for i, p := range c.Programs {
		names[i] = p.Name
	}
	return names
}
