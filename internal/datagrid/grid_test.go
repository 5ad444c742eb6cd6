package datagrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinaryGrid constructs a fixture with target {T1, T2}; A1 (Symbol)
// with parts {V1}, {V2, Star}; A2 (Continuous) with intervals ]-Inf,1]
// and ]1,+Inf]. Four cells, total frequency 5.
func buildBinaryGrid(t *testing.T) *DataGrid {
	t.Helper()
	g := Initialize(2, 2)

	a1, err := g.AddAttribute()
	require.NoError(t, err)
	require.NoError(t, g.SetAttributeName(a1, "A1"))
	require.NoError(t, g.SetAttributeType(a1, Symbol, nil))
	p1 := a1.AddGroupPart(&ValueSet{Values: []*Value{{Symbol: "V1"}}})
	p2 := a1.AddGroupPart(&ValueSet{IsDefault: true, Values: []*Value{{Symbol: "V2"}, {IsStar: true}}})
	require.NoError(t, a1.BuildIndex())

	a2, err := g.AddAttribute()
	require.NoError(t, err)
	require.NoError(t, g.SetAttributeName(a2, "A2"))
	require.NoError(t, g.SetAttributeType(a2, Continuous, nil))
	p3 := a2.AddContinuousPart(NegInf, 1, false)
	p4 := a2.AddContinuousPart(1, PosInf, false)
	require.NoError(t, a2.BuildIndex())

	require.NoError(t, g.SetCellUpdateMode(true))
	cells := []struct {
		parts  []*Part
		freq   int64
		t1, t2 int64
	}{
		{[]*Part{p1, p3}, 2, 2, 0},
		{[]*Part{p1, p4}, 1, 0, 1},
		{[]*Part{p2, p3}, 1, 1, 0},
		{[]*Part{p2, p4}, 1, 0, 1},
	}
	for _, spec := range cells {
		c, err := g.AddCell(spec.parts)
		require.NoError(t, err)
		c.AddFrequency(spec.t1, 0)
		c.AddFrequency(spec.t2, 1)
	}
	require.NoError(t, g.SetCellUpdateMode(false))
	return g
}

func TestInitializeCreatesEmptyAttributes(t *testing.T) {
	g := Initialize(3, 0)
	assert.Equal(t, 3, g.K())
	assert.Equal(t, Structural, g.State())
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0, g.GetAttributeAt(i).PartCount())
	}
}

func TestBinaryGridFrequencies(t *testing.T) {
	g := buildBinaryGrid(t)
	assert.Equal(t, int64(5), g.Frequency())
	assert.Equal(t, 4, g.CellCount())
	require.NoError(t, g.Check())
}

func TestAddCellRequiresCellUpdateMode(t *testing.T) {
	g := Initialize(1, 0)
	a, _ := g.AddAttribute()
	require.NoError(t, g.SetAttributeName(a, "A"))
	require.NoError(t, g.SetAttributeType(a, Continuous, nil))
	p := a.AddContinuousPart(NegInf, PosInf, false)

	_, err := g.AddCell([]*Part{p})
	assert.Error(t, err)
}

func TestAddCellRejectsDuplicateTuple(t *testing.T) {
	g := Initialize(1, 0)
	a, _ := g.AddAttribute()
	require.NoError(t, g.SetAttributeName(a, "A"))
	require.NoError(t, g.SetAttributeType(a, Continuous, nil))
	p := a.AddContinuousPart(NegInf, PosInf, false)

	require.NoError(t, g.SetCellUpdateMode(true))
	_, err := g.AddCell([]*Part{p})
	require.NoError(t, err)
	_, err = g.AddCell([]*Part{p})
	assert.Error(t, err)
}

func TestSetCellUpdateModeIsIdempotentAtSemanticLevel(t *testing.T) {
	g := buildBinaryGrid(t)
	freqBefore := g.Frequency()
	partsBefore := g.TotalPartNumber()

	require.NoError(t, g.SetCellUpdateMode(true))
	require.NoError(t, g.SetCellUpdateMode(false))

	assert.Equal(t, freqBefore, g.Frequency())
	assert.Equal(t, partsBefore, g.TotalPartNumber())
}

func TestDeleteCellRemovesFromAllChains(t *testing.T) {
	g := buildBinaryGrid(t)
	require.NoError(t, g.SetCellUpdateMode(true))
	cells := g.Cells()
	victim := cells[0]
	require.NoError(t, g.DeleteCell(victim))
	_, found := g.LookupCell(victim.Parts())
	assert.False(t, found)
	assert.Equal(t, 3, g.CellCount())
	require.NoError(t, g.SetCellUpdateMode(false))
	assert.Equal(t, int64(5)-victim.Frequency(), g.Frequency())
}

func TestDeleteAllResetsToEmpty(t *testing.T) {
	g := buildBinaryGrid(t)
	g.DeleteAll()
	assert.Equal(t, Empty, g.State())
	assert.Equal(t, 0, g.K())
}
