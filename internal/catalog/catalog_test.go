package catalog

import (
	"testing"

	"keysound/pkg/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ContainsDefaultProfile(t *testing.T) {
	c := Default()
	require.Equal(t, 13, c.Len())

	p, ok := c.Lookup(spec.DefaultProfile)
	require.True(t, ok)
	assert.Equal(t, "Topre", p.Name)
	assert.Equal(t, 5, p.Variants)
}

func TestDefault_OrderIsStable(t *testing.T) {
	ids := Default().IDs()
	assert.Equal(t, "alpaca", ids[0])
	assert.Equal(t, "turquoise", ids[len(ids)-1])
	assert.Equal(t, ids, Default().IDs())
}

func TestList_ReturnsCopy(t *testing.T) {
	c := New(Profile{ID: "a", Name: "A", Group: "a", Variants: 1})
	list := c.List()
	list[0].Name = "mutated"

	p, _ := c.Lookup("a")
	assert.Equal(t, "A", p.Name)
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := Default().Lookup("nope")
	assert.False(t, ok)
	assert.False(t, Default().Contains(""))
}

func TestNew_PanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		New(
			Profile{ID: "a", Variants: 1},
			Profile{ID: "a", Variants: 2},
		)
	})
}

func TestNew_PanicsOnZeroVariants(t *testing.T) {
	assert.Panics(t, func() {
		New(Profile{ID: "a"})
	})
}
