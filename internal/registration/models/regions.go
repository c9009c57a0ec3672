package models

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var defaultRegions []byte

// Region is a region and the divisions that belong to it.
type Region struct {
	Name      string   `yaml:"name" json:"name"`
	Divisions []string `yaml:"divisions" json:"divisions"`
}

// Catalog is the static region to division mapping. It is read-only once
// loaded.
type Catalog struct {
	regions []Region
	index   map[string]int
}

type catalogFile struct {
	Regions []Region `yaml:"regions"`
}

// DefaultCatalog returns the built-in mapping.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultRegions)
	if err != nil {
		panic(fmt.Sprintf("embedded regions.yaml: %v", err))
	}
	return c
}

// LoadCatalog reads the mapping from path, or returns the built-in mapping
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML mapping. Region names must be unique and every
// region needs at least one division.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}
	if len(f.Regions) == 0 {
		return nil, fmt.Errorf("parse regions: no regions defined")
	}
	c := &Catalog{index: make(map[string]int, len(f.Regions))}
	for _, r := range f.Regions {
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			return nil, fmt.Errorf("parse regions: region without a name")
		}
		if _, dup := c.index[r.Name]; dup {
			return nil, fmt.Errorf("parse regions: duplicate region %q", r.Name)
		}
		if len(r.Divisions) == 0 {
			return nil, fmt.Errorf("parse regions: region %q has no divisions", r.Name)
		}
		c.index[r.Name] = len(c.regions)
		c.regions = append(c.regions, Region{Name: r.Name, Divisions: append([]string(nil), r.Divisions...)})
	}
	return c, nil
}

// Regions returns the regions in configured order.
func (c *Catalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	for i, r := range c.regions {
		out[i] = Region{Name: r.Name, Divisions: append([]string(nil), r.Divisions...)}
	}
	return out
}

// Names returns the region names in configured order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.regions))
	for i, r := range c.regions {
		out[i] = r.Name
	}
	return out
}

// Divisions returns the divisions of region, or nil for an unknown region.
func (c *Catalog) Divisions(region string) []string {
	i, ok := c.index[region]
	if !ok {
		return nil
	}
	return append([]string(nil), c.regions[i].Divisions...)
}

func (c *Catalog) HasRegion(region string) bool {
	_, ok := c.index[region]
	return ok
}

// HasDivision reports whether division belongs to region.
func (c *Catalog) HasDivision(region, division string) bool {
	for _, d := range c.Divisions(region) {
		if d == division {
			return true
		}
	}
	return false
}
