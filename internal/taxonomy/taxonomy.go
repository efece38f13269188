// Package taxonomy holds the static evaluation pillars, the city catalog and the
// keyword classifier that maps content onto pillars.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"

	"citypulse/internal/models"
)

// Pillar is one evaluation theme and the phrases that signal it.
type Pillar struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Taxonomy is an ordered, immutable set of pillars.
type Taxonomy struct {
	pillars []Pillar
	index   map[string]int
}

// New validates pillars and builds a Taxonomy. Keywords are trimmed, lower-cased and
// de-duplicated per pillar; the same keyword may appear under several pillars.
func New(pillars []Pillar) (*Taxonomy, error) {
	if len(pillars) == 0 {
		return nil, models.NewConfigurationError("pillars", "taxonomy must define at least one pillar")
	}
	t := &Taxonomy{
		pillars: make([]Pillar, 0, len(pillars)),
		index:   make(map[string]int, len(pillars)),
	}
	for _, p := range pillars {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, models.NewConfigurationError("pillars", "pillar name cannot be empty")
		}
		if strings.EqualFold(name, models.GeneralPillar) {
			return nil, models.NewConfigurationError("pillars", "%q is reserved for unclassified items", models.GeneralPillar)
		}
		if _, dup := t.index[name]; dup {
			return nil, models.NewConfigurationError("pillars", "duplicate pillar %q", name)
		}

		seen := make(map[string]struct{}, len(p.Keywords))
		keywords := make([]string, 0, len(p.Keywords))
		for _, kw := range p.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, kw)
		}
		if len(keywords) == 0 {
			return nil, models.NewConfigurationError("pillars", "pillar %q has no keywords", name)
		}

		t.index[name] = len(t.pillars)
		t.pillars = append(t.pillars, Pillar{Name: name, Keywords: keywords})
	}
	return t, nil
}

// MustNew is New for static tables known to be valid.
func MustNew(pillars []Pillar) *Taxonomy {
	t, err := New(pillars)
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns pillar names in declaration order.
func (t *Taxonomy) Names() []string {
	names := make([]string, len(t.pillars))
	for i, p := range t.pillars {
		names[i] = p.Name
	}
	return names
}

// Pillars returns a copy of every pillar.
func (t *Taxonomy) Pillars() []Pillar {
	out := make([]Pillar, len(t.pillars))
	for i, p := range t.pillars {
		out[i] = Pillar{Name: p.Name, Keywords: append([]string(nil), p.Keywords...)}
	}
	return out
}

// Has reports whether name is a pillar of this taxonomy.
func (t *Taxonomy) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Keywords returns a copy of the pillar's keywords.
func (t *Taxonomy) Keywords(name string) ([]string, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), t.pillars[i].Keywords...), true
}

// KeywordUnion returns the sorted, de-duplicated union of the keywords of the given
// pillars. Unknown pillar names are ignored.
func (t *Taxonomy) KeywordUnion(pillars []string) []string {
	seen := make(map[string]struct{})
	var union []string
	for _, name := range pillars {
		i, ok := t.index[name]
		if !ok {
			continue
		}
		for _, kw := range t.pillars[i].Keywords {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			union = append(union, kw)
		}
	}
	sort.Strings(union)
	return union
}

// Resolve checks every requested pillar name against the taxonomy and returns them
// de-duplicated, in request order.
func (t *Taxonomy) Resolve(names []string) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if !t.Has(n) {
			return nil, &models.ConfigurationError{Field: "pillars", Reason: fmt.Sprintf("%q is not a pillar", n), Err: models.ErrUnknownPillar}
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

func (t *Taxonomy) String() string {
	return fmt.Sprintf("taxonomy(%d pillars)", len(t.pillars))
}
