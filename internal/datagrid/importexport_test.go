package datagrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeContinuousStats builds a fixture of 3 Continuous attributes
// partitioned into {2,3,2} intervals, target of 2 Symbol values via the
// implicit target-value vector.
func threeContinuousStats() *DataGridStats {
	cells := make([]int64, 2*3*2*2)
	// Spread a handful of nonzero cells across the grid deterministically.
	dims := []int{2, 3, 2, 2}
	set := func(a0, a1, a2, tj int, freq int64) {
		cells[encodeIndex([]int{a0, a1, a2, tj}, dims)] = freq
	}
	set(0, 0, 0, 0, 3)
	set(0, 1, 1, 1, 2)
	set(1, 2, 0, 0, 4)
	set(1, 0, 1, 1, 1)

	return &DataGridStats{
		Attributes: []AttributeStats{
			{Name: "A1", Type: Continuous, Discretization: &DiscretizationStats{InteriorBounds: []float64{0}}},
			{Name: "A2", Type: Continuous, Discretization: &DiscretizationStats{InteriorBounds: []float64{-1, 1}}},
			{Name: "A3", Type: Continuous, Discretization: &DiscretizationStats{InteriorBounds: []float64{5}}},
		},
		SourceAttributeCount: 3,
		TargetAttributeCount: 0,
		TargetValues:         []string{"T1", "T2"},
		CellFrequencies:      cells,
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	stats := threeContinuousStats()

	g, err := ImportDataGridStats(stats)
	require.NoError(t, err)
	require.NoError(t, g.Check())

	out, err := ExportDataGridStats(g)
	require.NoError(t, err)

	assert.Equal(t, stats.SourceAttributeCount, out.SourceAttributeCount)
	assert.Equal(t, stats.TargetAttributeCount, out.TargetAttributeCount)
	assert.Equal(t, stats.TargetValues, out.TargetValues)
	assert.Equal(t, stats.CellFrequencies, out.CellFrequencies)
	require.Len(t, out.Attributes, 3)
	for i, a := range out.Attributes {
		assert.Equal(t, stats.Attributes[i].Name, a.Name)
		assert.Equal(t, stats.Attributes[i].Discretization.InteriorBounds, a.Discretization.InteriorBounds)
	}
}

func TestImportBuildsExpectedPartCounts(t *testing.T) {
	g, err := ImportDataGridStats(threeContinuousStats())
	require.NoError(t, err)

	a1, _ := g.SearchAttribute("A1")
	a2, _ := g.SearchAttribute("A2")
	a3, _ := g.SearchAttribute("A3")
	assert.Equal(t, 2, a1.PartCount())
	assert.Equal(t, 3, a2.PartCount())
	assert.Equal(t, 2, a3.PartCount())
}

func TestImportWithExplicitTargetAttribute(t *testing.T) {
	cells := make([]int64, 2*2)
	dims := []int{2, 2}
	cells[encodeIndex([]int{0, 0}, dims)] = 3
	cells[encodeIndex([]int{1, 1}, dims)] = 4

	stats := &DataGridStats{
		Attributes: []AttributeStats{
			{Name: "A1", Type: Continuous, Discretization: &DiscretizationStats{InteriorBounds: []float64{0}}},
			{Name: "Target", Type: Symbol, Grouping: &GroupingStats{
				Values:            []string{"T1", "T2"},
				Groups:            []GroupRange{{0, 0}, {1, 1}},
				GarbageGroupIndex: -1,
				StarGroupIndex:    1,
			}},
		},
		SourceAttributeCount: 1,
		TargetAttributeCount: 1,
		CellFrequencies:      cells,
	}

	g, err := ImportDataGridStats(stats)
	require.NoError(t, err)
	require.NoError(t, g.Check())
	assert.Equal(t, int64(7), g.Frequency())

	out, err := ExportDataGridStats(g)
	require.NoError(t, err)
	assert.Equal(t, 1, out.TargetAttributeCount)
	assert.Equal(t, cells, out.CellFrequencies)
}
