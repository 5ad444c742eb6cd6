package prepare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxos/snbgrid/internal/cancel"
	"github.com/arxos/snbgrid/internal/colstore"
	"github.com/arxos/snbgrid/internal/config"
	"github.com/arxos/snbgrid/internal/datagrid"
)

// buildBinaryGrid mirrors datagrid's own scenario 1 fixture: target
// {T1, T2}; A1 (Symbol) with parts {V1}, {V2, Star}; A2 (Continuous) with
// intervals ]-Inf,1] and ]1,+Inf]. Four cells, total frequency 5.
func buildBinaryGrid(t *testing.T) *datagrid.DataGrid {
	t.Helper()
	g := datagrid.Initialize(2, 2)

	a1, err := g.AddAttribute()
	require.NoError(t, err)
	require.NoError(t, g.SetAttributeName(a1, "A1"))
	require.NoError(t, g.SetAttributeType(a1, datagrid.Symbol, nil))
	p1 := a1.AddGroupPart(&datagrid.ValueSet{Values: []*datagrid.Value{{Symbol: "V1"}}})
	p2 := a1.AddGroupPart(&datagrid.ValueSet{IsDefault: true, Values: []*datagrid.Value{{Symbol: "V2"}, {IsStar: true}}})
	require.NoError(t, a1.BuildIndex())

	a2, err := g.AddAttribute()
	require.NoError(t, err)
	require.NoError(t, g.SetAttributeName(a2, "A2"))
	require.NoError(t, g.SetAttributeType(a2, datagrid.Continuous, nil))
	p3 := a2.AddContinuousPart(datagrid.NegInf, 1, false)
	p4 := a2.AddContinuousPart(1, datagrid.PosInf, false)
	require.NoError(t, a2.BuildIndex())

	require.NoError(t, g.SetCellUpdateMode(true))
	cells := []struct {
		parts  []*datagrid.Part
		t1, t2 int64
	}{
		{[]*datagrid.Part{p1, p3}, 2, 0},
		{[]*datagrid.Part{p1, p4}, 0, 1},
		{[]*datagrid.Part{p2, p3}, 1, 0},
		{[]*datagrid.Part{p2, p4}, 0, 1},
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

func TestBuildPreparedAttributesShapesMatchPartCounts(t *testing.T) {
	g := buildBinaryGrid(t)
	attrs, err := BuildPreparedAttributes(g)
	require.NoError(t, err)
	require.Len(t, attrs, 2)

	assert.Equal(t, "A1", attrs[0].Name)
	assert.Equal(t, 2, attrs[0].PartCount)
	require.Len(t, attrs[0].ConditionalLnProbs, 2)
	for _, row := range attrs[0].ConditionalLnProbs {
		assert.Len(t, row, 2)
	}

	assert.Equal(t, "A2", attrs[1].Name)
	assert.Equal(t, 2, attrs[1].PartCount)
}

func TestBuildPreparedAttributesFavorsTheInformativePart(t *testing.T) {
	g := buildBinaryGrid(t)
	attrs, err := BuildPreparedAttributes(g)
	require.NoError(t, err)

	// A1's first part (V1) co-occurs mostly with target T1 (2 of its 3
	// instances); its log P(part0 | Y=0) should exceed its log P(part0 | Y=1).
	row := attrs[0].ConditionalLnProbs[0]
	assert.Greater(t, row[0], row[1])
}

func TestGridRowIteratorExpandsToTotalFrequency(t *testing.T) {
	g := buildBinaryGrid(t)
	it, err := NewGridRowIterator(g)
	require.NoError(t, err)
	assert.Equal(t, 5, it.InstanceCount())

	row := make([]int32, 3)
	count := 0
	targetCounts := map[int32]int{}
	for {
		ok, err := it.Next(row)
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
		targetCounts[row[2]]++
		assert.GreaterOrEqual(t, row[0], int32(1))
		assert.LessOrEqual(t, row[0], int32(2))
		assert.GreaterOrEqual(t, row[1], int32(1))
		assert.LessOrEqual(t, row[1], int32(2))
	}
	assert.Equal(t, 5, count)
	assert.Equal(t, 3, targetCounts[1])
	assert.Equal(t, 2, targetCounts[2])
}

func TestGridRowIteratorFeedsColstore(t *testing.T) {
	g := buildBinaryGrid(t)
	attrs, err := BuildPreparedAttributes(g)
	require.NoError(t, err)

	it, err := NewGridRowIterator(g)
	require.NoError(t, err)

	s := colstore.New(config.DefaultStoreConfig(), cancel.New(0), nil)
	require.NoError(t, s.SetUsedAttributes(attrs))
	require.NoError(t, s.ComputePreparedData(it, it.InstanceCount()))

	out := make([]int32, it.InstanceCount())
	require.NoError(t, s.FillRecodingIndexesAt(0, out))
	assert.False(t, s.IsFillError())
}
