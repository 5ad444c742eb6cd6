package datagrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPassesOnWellFormedGrid(t *testing.T) {
	g := buildBinaryGrid(t)
	assert.NoError(t, g.Check())
}

func TestCheckDetectsPartFrequencyMismatch(t *testing.T) {
	g := buildBinaryGrid(t)
	cells := g.Cells()
	cells[0].frequency += 1 // corrupt directly, bypassing AddFrequency
	// keep the cell's own target-frequency sum consistent, so the failure
	// comes from the part frequencies no longer matching their cells.
	cells[0].targetFrequency[0] += 1

	err := g.Check()
	require.Error(t, err)
}

func TestCheckDetectsMissingStarValue(t *testing.T) {
	g := Initialize(1, 0)
	a, _ := g.AddAttribute()
	require.NoError(t, g.SetAttributeName(a, "A"))
	require.NoError(t, g.SetAttributeType(a, Symbol, nil))
	a.AddGroupPart(&ValueSet{Values: []*Value{{Symbol: "V1"}}})

	err := g.Check()
	assert.Error(t, err)
}

func TestCheckDetectsNonContiguousIntervals(t *testing.T) {
	g := Initialize(1, 0)
	a, _ := g.AddAttribute()
	require.NoError(t, g.SetAttributeName(a, "A"))
	require.NoError(t, g.SetAttributeType(a, Continuous, nil))
	a.AddContinuousPart(NegInf, 1, false)
	a.AddContinuousPart(2, PosInf, false) // gap between 1 and 2

	err := g.Check()
	assert.Error(t, err)
}
