// Package catalog loads the list of eras offered to the user.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"chronobooth/internal/domain"
)

//go:embed eras.yaml
var defaultCatalog []byte

type file struct {
	Eras []domain.Era `yaml:"eras"`
}

// Catalog is an ordered, immutable set of eras.
type Catalog struct {
	eras  []domain.Era
	index map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded eras invalid: %v", err))
	}
	return c
}

// Load reads path, or returns the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(f.Eras) == 0 {
		return nil, errors.New("catalog: no eras defined")
	}
	c := &Catalog{index: make(map[string]int, len(f.Eras))}
	for _, era := range f.Eras {
		era.ID = strings.TrimSpace(era.ID)
		era.Directive = strings.TrimSpace(era.Directive)
		if era.ID == "" {
			return nil, errors.New("catalog: era without id")
		}
		if _, dup := c.index[era.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate era %q", era.ID)
		}
		if !era.IsSurprise() && era.Directive == "" {
			return nil, fmt.Errorf("catalog: era %q has no directive", era.ID)
		}
		c.index[era.ID] = len(c.eras)
		c.eras = append(c.eras, era)
	}
	return c, nil
}

// All returns the eras in catalog order.
func (c *Catalog) All() []domain.Era {
	out := make([]domain.Era, len(c.eras))
	copy(out, c.eras)
	return out
}

func (c *Catalog) Lookup(id string) (domain.Era, error) {
	i, ok := c.index[id]
	if !ok {
		return domain.Era{}, fmt.Errorf("%w: %s", domain.ErrUnknownEra, id)
	}
	return c.eras[i], nil
}

func (c *Catalog) Len() int {
	return len(c.eras)
}
