// Package prepare bridges a stable DataGrid into the colstore.Store
// input shape expected by the SelectionOptimizer: per-attribute
// Laplace-smoothed conditional log-probability tables, plus a
// RecordIterator replaying the grid's cells one instance at a time.
//
// Grounded on datagrid's own SourceEntropy/TargetEntropy (stats.go), which
// already walk the same cell/part structures to compute empirical
// distributions; this package performs the analogous per-attribute,
// per-part walk but keeps counts instead of folding them into an entropy.
//
// Scope: only grids in implicit-target-value mode (TargetValueCount() >
// 0) are supported. A grid using an explicit trailing target Attribute
// instead has no per-cell TargetFrequency vector to draw supervised
// counts from, and bridging that mode would require a second pass over
// the target attribute's own parts; out of scope for this engine's
// command-line entry points.
package prepare

import (
	"math"

	"github.com/arxos/snbgrid/internal/colstore"
	"github.com/arxos/snbgrid/internal/datagrid"
	"github.com/arxos/snbgrid/internal/snberr"
)

// laplaceEpsilon is a pseudo-count of 0.5 divided by the attribute's part
// count, so an unseen (part, target) pair gets a small nonzero probability
// instead of -Inf.
func laplaceEpsilon(partCount int) float64 {
	if partCount <= 0 {
		return 0.5
	}
	return 0.5 / float64(partCount)
}

// BuildPreparedAttributes computes one colstore.PreparedAttribute per
// source attribute of g, in grid order, from the empirical per-part,
// per-target-value cell frequencies.
func BuildPreparedAttributes(g *datagrid.DataGrid) ([]*colstore.PreparedAttribute, error) {
	j := g.TargetValueCount()
	if j == 0 {
		return nil, snberr.New(snberr.CodeConfiguration, "prepare requires a grid with an implicit target-value vector")
	}
	if g.State() != datagrid.Stable {
		return nil, snberr.New(snberr.CodeConfiguration, "prepare requires a Stable grid")
	}

	attrs := g.Attributes()
	if len(attrs) == 0 {
		return nil, nil
	}

	totals := targetTotals(attrs[0], j)

	out := make([]*colstore.PreparedAttribute, len(attrs))
	for ai, a := range attrs {
		parts := a.Parts()
		eps := laplaceEpsilon(len(parts))
		table := make([][]float64, len(parts))
		for pi, p := range parts {
			counts := make([]int64, j)
			for _, c := range p.Cells() {
				for jv, f := range c.TargetFrequency() {
					counts[jv] += f
				}
			}
			row := make([]float64, j)
			for jv := range row {
				denom := float64(totals[jv]) + float64(len(parts))*eps
				num := float64(counts[jv]) + eps
				row[jv] = math.Log(num / denom)
			}
			table[pi] = row
		}
		out[ai] = &colstore.PreparedAttribute{
			Name:               a.Name(),
			PartCount:          len(parts),
			ConditionalLnProbs: table,
		}
	}
	return out, nil
}

// targetTotals sums target-value frequencies across every cell, walking
// any one attribute's parts since every attribute's part list threads the
// same underlying cell set.
func targetTotals(a *datagrid.Attribute, j int) []int64 {
	totals := make([]int64, j)
	for _, p := range a.Parts() {
		for _, c := range p.Cells() {
			for jv, f := range c.TargetFrequency() {
				totals[jv] += f
			}
		}
	}
	return totals
}

// GridRowIterator replays a DataGrid's cells as colstore.RecordIterator
// rows: one row per unit of cell frequency, expanding each cell's joint
// frequency into that many repeated instances and its target-frequency
// vector into one target draw per unit (in ascending target-value
// order, an arbitrary but deterministic expansion since colstore only
// needs the per-instance target index, not which physical record it
// came from).
type GridRowIterator struct {
	grid  *datagrid.DataGrid
	attrs []*datagrid.Attribute
	cells []*datagrid.Cell

	// positions[d] maps a Part pointer in attrs[d]'s partition to its
	// 0-based recoding index, built once so Next doesn't rescan each
	// attribute's part list per row.
	positions []map[*datagrid.Part]int

	cellIdx    int
	unitsLeft  int64
	targetIdx  int
	targetLeft int64
}

// NewGridRowIterator builds an iterator over g's cells. g must be Stable
// and in implicit-target-value mode.
func NewGridRowIterator(g *datagrid.DataGrid) (*GridRowIterator, error) {
	if g.TargetValueCount() == 0 {
		return nil, snberr.New(snberr.CodeConfiguration, "prepare requires a grid with an implicit target-value vector")
	}
	attrs := g.Attributes()
	positions := make([]map[*datagrid.Part]int, len(attrs))
	for d, a := range attrs {
		m := make(map[*datagrid.Part]int, a.PartCount())
		for i, p := range a.Parts() {
			m[p] = i
		}
		positions[d] = m
	}
	return &GridRowIterator{
		grid:      g,
		attrs:     attrs,
		cells:     g.Cells(),
		positions: positions,
	}, nil
}

// InstanceCount returns the total expanded row count (sum of cell
// frequencies), the instanceCount argument ComputePreparedData expects.
func (it *GridRowIterator) InstanceCount() int {
	var n int64
	for _, c := range it.cells {
		n += c.Frequency()
	}
	return int(n)
}

// Next fills row with the next instance's 1-based recoding indices (one
// per source attribute) plus a trailing 1-based target index, per
// colstore.RecordIterator.
func (it *GridRowIterator) Next(row []int32) (bool, error) {
	for it.unitsLeft <= 0 {
		if it.cellIdx >= len(it.cells) {
			return false, nil
		}
		c := it.cells[it.cellIdx]
		it.unitsLeft = c.Frequency()
		it.targetIdx = 0
		it.targetLeft = 0
		it.cellIdx++
		if it.unitsLeft <= 0 {
			continue
		}
		it.advanceToNonzeroTarget(c)
	}

	c := it.cells[it.cellIdx-1]
	for d, p := range c.Parts() {
		row[d] = int32(it.positions[d][p] + 1)
	}
	row[len(it.attrs)] = int32(it.targetIdx + 1)

	it.unitsLeft--
	it.targetLeft--
	if it.targetLeft <= 0 && it.unitsLeft > 0 {
		it.targetIdx++
		it.advanceToNonzeroTarget(c)
	}
	return true, nil
}

// advanceToNonzeroTarget scans forward from the current target index for
// the next target value with remaining frequency in c.
func (it *GridRowIterator) advanceToNonzeroTarget(c *datagrid.Cell) {
	tf := c.TargetFrequency()
	for ; it.targetIdx < len(tf); it.targetIdx++ {
		if tf[it.targetIdx] > 0 {
			it.targetLeft = tf[it.targetIdx]
			return
		}
	}
}
