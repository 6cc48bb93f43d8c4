// Package catalog holds the list of models an inference server offers and
// selects the model that best serves a label.
package catalog

import (
	"strings"

	"aiaa/pkg/types"
)

// Catalog is an ordered, read-only collection of models.
type Catalog struct {
	models []types.Model
}

// New copies models into a Catalog. Order is preserved and drives tie-breaks.
func New(models []types.Model) *Catalog {
	c := &Catalog{models: make([]types.Model, len(models))}
	copy(c.models, models)
	return c
}

func (c *Catalog) Len() int { return len(c.models) }

// Models returns a copy of the catalog entries.
func (c *Catalog) Models() []types.Model {
	out := make([]types.Model, len(c.models))
	copy(out, c.models)
	return out
}

// Get returns the model with the given name. An exact match wins over a
// case-insensitive one.
func (c *Catalog) Get(name string) (types.Model, bool) {
	for _, m := range c.models {
		if m.Name == name {
			return m, true
		}
	}
	for _, m := range c.models {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return types.Model{}, false
}

// Filter returns models of type t (any when empty) that carry label (any when
// empty), using the same matching rules as BestMatch.
func (c *Catalog) Filter(label string, t types.ModelType) []types.Model {
	var out []types.Model
	for _, m := range c.models {
		if !typeMatches(m, t) {
			continue
		}
		if label != "" && !m.HasLabel(label) && !labelContains(m, label) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// BestMatch selects the model for label among models of type t (any type when
// t is empty). A case-insensitive exact label match wins; otherwise the first
// model with a label containing the query is used. Catalog order breaks ties.
func (c *Catalog) BestMatch(label string, t types.ModelType) (types.Model, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return types.Model{}, false
	}
	for _, m := range c.models {
		if typeMatches(m, t) && m.HasLabel(label) {
			return m, true
		}
	}
	for _, m := range c.models {
		if typeMatches(m, t) && labelContains(m, label) {
			return m, true
		}
	}
	return types.Model{}, false
}

func typeMatches(m types.Model, t types.ModelType) bool {
	return t == "" || strings.EqualFold(string(m.Type), string(t))
}

func labelContains(m types.Model, label string) bool {
	q := strings.ToLower(label)
	for _, l := range m.Labels {
		if strings.Contains(strings.ToLower(l), q) {
			return true
		}
	}
	return false
}
