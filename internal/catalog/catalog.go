// Package catalog holds the static fallback hotel inventory. It is parsed once
// at startup and never mutated; every accessor hands out copies.
package catalog

import (
	_ "embed"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"wanderbook/internal/domain"
)

//go:embed hotels.yaml
var hotelsYAML []byte

type Catalog struct {
	hotels []domain.Hotel
	byID   map[int64]int
}

type file struct {
	Hotels []domain.Hotel `yaml:"hotels"`
}

// Load parses the embedded inventory.
func Load() (*Catalog, error) { return Parse(hotelsYAML) }

// MustLoad is Load for process startup.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a catalog from a YAML document with a top-level "hotels" list.
func Parse(b []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "parse hotel catalog")
	}
	if len(f.Hotels) == 0 {
		return nil, errors.New("hotel catalog is empty")
	}
	c := &Catalog{
		hotels: make([]domain.Hotel, 0, len(f.Hotels)),
		byID:   make(map[int64]int, len(f.Hotels)),
	}
	for _, h := range f.Hotels {
		if h.ID <= 0 {
			return nil, errors.Newf("hotel %q has no id", h.Name)
		}
		if _, dup := c.byID[h.ID]; dup {
			return nil, errors.Newf("duplicate hotel id %d", h.ID)
		}
		c.byID[h.ID] = len(c.hotels)
		c.hotels = append(c.hotels, h.Normalize())
	}
	return c, nil
}

func (c *Catalog) All() []domain.Hotel { return domain.CloneHotels(c.hotels) }

func (c *Catalog) Get(id int64) (domain.Hotel, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Hotel{}, false
	}
	return c.hotels[i].Clone(), true
}

// Search matches destination as a case-insensitive substring of city or country.
// With no match the whole catalog is returned.
func (c *Catalog) Search(destination string) []domain.Hotel {
	d := strings.ToLower(strings.TrimSpace(destination))
	var out []domain.Hotel
	if d != "" {
		for _, h := range c.hotels {
			if strings.Contains(strings.ToLower(h.City), d) || strings.Contains(strings.ToLower(h.Country), d) {
				out = append(out, h.Clone())
			}
		}
	}
	if len(out) == 0 {
		return c.All()
	}
	return out
}
