// Package catalog is the static registry of keyboard sound profiles.
package catalog

import (
	"fmt"

	"keysound/pkg/spec"
)

// Profile describes one recorded keyboard type.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Group    string `json:"group"` // asset folder
	Variants int    `json:"variants"`
}

// Catalog is immutable once built; order follows construction order.
type Catalog struct {
	list  []Profile
	index map[string]int
}

// New builds a catalog. Duplicate ids or non-positive variant counts panic.
func New(profiles ...Profile) *Catalog {
	c := &Catalog{
		list:  make([]Profile, 0, len(profiles)),
		index: make(map[string]int, len(profiles)),
	}
	for _, p := range profiles {
		if _, dup := c.index[p.ID]; dup {
			panic(fmt.Sprintf("catalog: duplicate profile %q", p.ID))
		}
		if p.Variants <= 0 {
			panic(fmt.Sprintf("catalog: profile %q has no variants", p.ID))
		}
		c.index[p.ID] = len(c.list)
		c.list = append(c.list, p)
	}
	return c
}

var builtin = New(
	Profile{ID: "alpaca", Name: "Alpaca", Group: "alpaca", Variants: 5},
	Profile{ID: "blackink", Name: "Black Ink", Group: "blackink", Variants: 5},
	Profile{ID: "bluealps", Name: "Blue Alps", Group: "bluealps", Variants: 5},
	Profile{ID: "boxnavy", Name: "Box Navy", Group: "boxnavy", Variants: 5},
	Profile{ID: "buckling", Name: "Buckling Spring", Group: "buckling", Variants: 5},
	Profile{ID: "cream", Name: "Cream", Group: "cream", Variants: 5},
	Profile{ID: "holypanda", Name: "Holy Panda", Group: "holypanda", Variants: 5},
	Profile{ID: "mxblack", Name: "Cherry MX Black", Group: "mxblack", Variants: 5},
	Profile{ID: "mxblue", Name: "Cherry MX Blue", Group: "mxblue", Variants: 5},
	Profile{ID: "mxbrown", Name: "Cherry MX Brown", Group: "mxbrown", Variants: 5},
	Profile{ID: "redink", Name: "Red Ink", Group: "redink", Variants: 5},
	Profile{ID: spec.DefaultProfile, Name: "Topre", Group: "topre", Variants: 5},
	Profile{ID: "turquoise", Name: "Turquoise", Group: "turquoise", Variants: 5},
)

// Default returns the built-in catalog.
func Default() *Catalog { return builtin }

// List returns a copy of all profiles in catalog order.
func (c *Catalog) List() []Profile {
	out := make([]Profile, len(c.list))
	copy(out, c.list)
	return out
}

// IDs returns profile ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.list))
	for i, p := range c.list {
		ids[i] = p.ID
	}
	return ids
}

func (c *Catalog) Lookup(id string) (Profile, bool) {
	i, ok := c.index[id]
	if !ok {
		return Profile{}, false
	}
	return c.list[i], true
}

func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

func (c *Catalog) Len() int { return len(c.list) }
