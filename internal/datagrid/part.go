package datagrid

// Part is one cell of a univariate partition: either a Continuous
// Interval or a groupable ValueSet. Parts are doubly linked
// within their owning Attribute's part list (head/tail maintained on the
// Attribute) so Import can append them in partition order in O(1).
type Part struct {
	id        uint64
	attribute *Attribute
	prev      *Part
	next      *Part

	interval *Interval // non-nil iff Continuous
	values   *ValueSet // non-nil iff groupable (Symbol/VarPart)

	frequency int64

	// cellHead/cellTail thread the cells that reference this part in this
	// part's own dimension. The prev/next links live on the Cell (one pair
	// per grid dimension), not on the Part, so removing a cell from k
	// part-lists simultaneously is O(1) without walking any list; the Part
	// only needs its own list's head/tail.
	cellHead *Cell
	cellTail *Cell
	cellSize int
}

// Attribute returns the Part's owning Attribute.
func (p *Part) Attribute() *Attribute { return p.attribute }

// Interval returns the part's interval and true, or the zero Interval and
// false if this part is not Continuous.
func (p *Part) Interval() (Interval, bool) {
	if p.interval == nil {
		return Interval{}, false
	}
	return *p.interval, true
}

// Values returns the part's ValueSet, or nil if this part is Continuous.
func (p *Part) Values() *ValueSet { return p.values }

// Frequency returns the part's cached frequency (sum of its cells'
// frequencies), valid in Stable state.
func (p *Part) Frequency() int64 { return p.frequency }

// CellCount returns the number of cells currently chained to this part.
func (p *Part) CellCount() int { return p.cellSize }

// Cells returns a snapshot of the cells referencing this part, in
// chain order.
func (p *Part) Cells() []*Cell {
	cells := make([]*Cell, 0, p.cellSize)
	for c := p.cellHead; c != nil; c = c.attrNext[p.attribute.index] {
		cells = append(cells, c)
	}
	return cells
}

func (p *Part) attachCell(c *Cell) {
	dim := p.attribute.index
	c.attrPrev[dim] = p.cellTail
	c.attrNext[dim] = nil
	if p.cellTail != nil {
		p.cellTail.attrNext[dim] = c
	} else {
		p.cellHead = c
	}
	p.cellTail = c
	p.cellSize++
}

func (p *Part) detachCell(c *Cell) {
	dim := p.attribute.index
	prev, next := c.attrPrev[dim], c.attrNext[dim]
	if prev != nil {
		prev.attrNext[dim] = next
	} else {
		p.cellHead = next
	}
	if next != nil {
		next.attrPrev[dim] = prev
	} else {
		p.cellTail = prev
	}
	c.attrPrev[dim], c.attrNext[dim] = nil, nil
	p.cellSize--
}
