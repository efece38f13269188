package taxonomy

import (
	"fmt"
	"strings"

	"citypulse/internal/models"
)

// City is one selectable city and the keyword used to search for it.
type City struct {
	Name    string `yaml:"name" json:"name"`
	Keyword string `yaml:"keyword" json:"keyword"`
	Flag    string `yaml:"flag" json:"flag,omitempty"`
}

// Catalog is an ordered, immutable set of cities, looked up case-insensitively by name.
type Catalog struct {
	cities []City
	index  map[string]int
}

func NewCatalog(cities []City) (*Catalog, error) {
	if len(cities) == 0 {
		return nil, models.NewConfigurationError("cities", "catalog must define at least one city")
	}
	c := &Catalog{index: make(map[string]int, len(cities))}
	for _, city := range cities {
		city.Name = strings.TrimSpace(city.Name)
		if city.Name == "" {
			return nil, models.NewConfigurationError("cities", "city name cannot be empty")
		}
		key := strings.ToLower(city.Name)
		if _, dup := c.index[key]; dup {
			return nil, models.NewConfigurationError("cities", "duplicate city %q", city.Name)
		}
		city.Keyword = strings.ToLower(strings.TrimSpace(city.Keyword))
		if city.Keyword == "" {
			city.Keyword = key
		}
		c.index[key] = len(c.cities)
		c.cities = append(c.cities, city)
	}
	return c, nil
}

func MustNewCatalog(cities []City) *Catalog {
	c, err := NewCatalog(cities)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup finds a city by name, ignoring case and surrounding space.
func (c *Catalog) Lookup(name string) (City, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return City{}, false
	}
	return c.cities[i], true
}

// All returns the catalog in declaration order.
func (c *Catalog) All() []City {
	return append([]City(nil), c.cities...)
}

// Names returns city names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.cities))
	for i, city := range c.cities {
		names[i] = city.Name
	}
	return names
}

// Resolve maps requested names to catalog entries, keeping request order and dropping
// repeats. An unknown name is a configuration error.
func (c *Catalog) Resolve(names []string) ([]City, error) {
	seen := make(map[string]struct{}, len(names))
	out := make([]City, 0, len(names))
	for _, n := range names {
		city, ok := c.Lookup(n)
		if !ok {
			return nil, &models.ConfigurationError{Field: "cities", Reason: fmt.Sprintf("%q is not in the catalog", n), Err: models.ErrUnknownCity}
		}
		if _, dup := seen[city.Name]; dup {
			continue
		}
		seen[city.Name] = struct{}{}
		out = append(out, city)
	}
	return out, nil
}
