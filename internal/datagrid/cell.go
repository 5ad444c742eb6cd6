package datagrid

// Cell is a k-tuple of Part pointers (one per grid attribute) with a joint
// frequency and, in supervised mode, a per-target-value frequency vector.
// It is chained per-grid (gridPrev/gridNext) and per-attribute
// (attrPrev/attrNext, one pair per dimension) so it can be removed from
// all k+1 lists in O(1) without walking any of them.
type Cell struct {
	grid *DataGrid

	parts []*Part

	frequency       int64
	targetFrequency []int64 // len == grid.targetValueCount, nil if unsupervised

	gridPrev *Cell
	gridNext *Cell

	attrPrev []*Cell
	attrNext []*Cell
}

// Parts returns the cell's k-tuple of parts.
func (c *Cell) Parts() []*Part { return c.parts }

// Frequency returns the cell's joint frequency.
func (c *Cell) Frequency() int64 { return c.frequency }

// TargetFrequency returns the per-target-value frequency vector, or nil.
func (c *Cell) TargetFrequency() []int64 { return c.targetFrequency }

// PartAt returns the part of this cell along dimension i.
func (c *Cell) PartAt(i int) *Part { return c.parts[i] }

// AddFrequency increments the cell's frequency, and if j >= 0, that
// target value's frequency too.
func (c *Cell) AddFrequency(delta int64, j int) {
	c.frequency += delta
	if j >= 0 && c.targetFrequency != nil {
		c.targetFrequency[j] += delta
	}
}
