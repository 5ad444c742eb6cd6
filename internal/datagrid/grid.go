package datagrid

import (
	"math"
	"strings"
	"sync/atomic"

	"github.com/arxos/snbgrid/internal/snberr"
)

// State is the grid-level lifecycle state machine: Empty -> Structural ->
// CellUpdate -> Stable, with Stable <-> CellUpdate cycles and a
// deleteAll transition back to Empty from any state.
type State int

const (
	Empty State = iota
	Structural
	CellUpdate
	Stable
)

// nextGridID hands out process-unique grid identities for the memo cache.
var nextGridID atomic.Int64

// DataGrid is the k-dimensional sparse contingency structure.
type DataGrid struct {
	id           int64
	attributes   []*Attribute
	byName       map[string]*Attribute
	targetValues []string // optional implicit target-value vector (Symbol)

	targetAttrIndex  int // index of the explicit target Attribute, or -1
	varPartAttrIndex int // index of the VarPart Attribute, or -1

	granularity int
	sortKey     string

	// definedAttrs tracks how many of the slots pre-created by Initialize
	// have been handed out by AddAttribute.
	definedAttrs int

	state State

	gridHead *Cell
	gridTail *Cell
	cellSize int

	// sorted-cell index, present only in CellUpdate mode.
	cellIndex map[string]*Cell

	// cached statistics, valid in Stable state.
	totalFrequency     int64
	logCellProductSize float64
	informativeAttrNum int
	totalParts         int

	// version bumps every time recomputeStatistics runs (i.e. every
	// Stable re-entry), invalidating the memo cache's entries for this
	// grid without needing to hash the cell/part contents themselves.
	version int64
}

// Initialize resets the grid to k empty attributes with no parts and no
// cells. targetValueCount sets the length of the
// implicit per-cell target-frequency vector; 0 means unsupervised or
// explicit-target-attribute mode.
func Initialize(k int, targetValueCount int) *DataGrid {
	g := &DataGrid{
		id:               nextGridID.Add(1),
		byName:           make(map[string]*Attribute),
		targetAttrIndex:  -1,
		varPartAttrIndex: -1,
		state:            Structural,
	}
	if targetValueCount > 0 {
		g.targetValues = make([]string, targetValueCount)
	}
	for i := 0; i < k; i++ {
		g.addAttributeAt(i)
	}
	return g
}

func (g *DataGrid) addAttributeAt(index int) *Attribute {
	a := &Attribute{grid: g, index: index}
	g.attributes = append(g.attributes, a)
	return a
}

// AddAttribute returns the next attribute slot pre-created by Initialize,
// or appends a fresh one once all k slots have been handed out. Legal
// only in Structural state.
func (g *DataGrid) AddAttribute() (*Attribute, error) {
	if g.state != Structural {
		return nil, snberr.InvariantViolation("DataGrid", len(g.attributes), "AddAttribute requires Structural state")
	}
	if g.definedAttrs < len(g.attributes) {
		a := g.attributes[g.definedAttrs]
		g.definedAttrs++
		return a, nil
	}
	g.definedAttrs++
	return g.addAttributeAt(len(g.attributes)), nil
}

// SetAttributeName assigns a's name, enforcing grid-wide uniqueness.
func (g *DataGrid) SetAttributeName(a *Attribute, name string) error {
	if _, exists := g.byName[name]; exists {
		return snberr.InvariantViolation("Attribute", a.index, "duplicate attribute name "+name)
	}
	a.name = name
	g.byName[name] = a
	return nil
}

// SetAttributeType sets a's type, and if VarPart, wires inner. At most one
// attribute may be VarPart.
func (g *DataGrid) SetAttributeType(a *Attribute, typ AttributeType, inner *InnerAttributes) error {
	if typ == VarPart {
		if g.varPartAttrIndex != -1 && g.varPartAttrIndex != a.index {
			return snberr.InvariantViolation("DataGrid", a.index, "at most one VarPart attribute allowed")
		}
		if inner == nil {
			return snberr.InvariantViolation("Attribute", a.index, "VarPart attribute requires InnerAttributes")
		}
		inner.Retain()
		a.inner = inner
		g.varPartAttrIndex = a.index
		for _, ia := range inner.attributes {
			ia.ownerAttributeName = a.name
		}
	}
	a.typ = typ
	return nil
}

// SetTargetAttribute marks a as the grid's explicit target attribute. At
// most one target attribute is allowed, it must be last, and it is
// mutually exclusive with the implicit target-value vector.
func (g *DataGrid) SetTargetAttribute(a *Attribute) error {
	if len(g.targetValues) > 0 {
		return snberr.InvariantViolation("DataGrid", a.index, "target attribute and implicit target values are mutually exclusive")
	}
	if a.index != len(g.attributes)-1 {
		return snberr.InvariantViolation("Attribute", a.index, "target attribute must be last")
	}
	g.targetAttrIndex = a.index
	return nil
}

// SearchAttribute finds an attribute by name.
func (g *DataGrid) SearchAttribute(name string) (*Attribute, bool) {
	a, ok := g.byName[name]
	return a, ok
}

// GetAttributeAt returns the attribute at position i.
func (g *DataGrid) GetAttributeAt(i int) *Attribute { return g.attributes[i] }

// Attributes returns all attributes, in grid order.
func (g *DataGrid) Attributes() []*Attribute { return g.attributes }

// K returns the number of attributes (grid dimensionality).
func (g *DataGrid) K() int { return len(g.attributes) }

// TargetValues returns the implicit target-value vector, or nil.
func (g *DataGrid) TargetValues() []string { return g.targetValues }

// TargetValueCount returns len(TargetValues()).
func (g *DataGrid) TargetValueCount() int { return len(g.targetValues) }

// State returns the grid's current lifecycle state.
func (g *DataGrid) State() State { return g.state }

// Frequency returns the grid's total frequency (sum of all cell
// frequencies), valid in Stable state.
func (g *DataGrid) Frequency() int64 { return g.totalFrequency }

// TotalPartNumber returns the total number of parts across all attributes.
func (g *DataGrid) TotalPartNumber() int { return g.totalParts }

// InformativeAttributeNumber returns the count of attributes with more
// than one part (i.e. that carry information).
func (g *DataGrid) InformativeAttributeNumber() int { return g.informativeAttrNum }

// LogCellProductSize returns the cached sum of log(partCount) across
// attributes, used by the selection cost model's modelCost term.
func (g *DataGrid) LogCellProductSize() float64 { return g.logCellProductSize }

// cellKey builds the sorted-cell-index key for a part tuple from each
// part's stable identity (attribute name, part id) — the Go analogue of
// keying on pointer tuples, robust to part reallocation across imports.
func cellKey(parts []*Part) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(p.attribute.name)
		b.WriteByte(':')
		b.WriteString(uitoa(p.id))
	}
	return b.String()
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[pos:])
}

// SetCellUpdateMode transitions the grid between CellUpdate and Stable.
// Entering build mode constructs the sorted-cell index by iterating the
// existing per-grid cell chain; leaving it destroys the index and
// recomputes cached statistics.
func (g *DataGrid) SetCellUpdateMode(on bool) error {
	if on {
		switch g.state {
		case Structural, Stable:
		default:
			return snberr.InvariantViolation("DataGrid", 0, "SetCellUpdateMode(true) requires Structural or Stable state")
		}
		g.cellIndex = make(map[string]*Cell, g.cellSize)
		for c := g.gridHead; c != nil; c = c.gridNext {
			g.cellIndex[cellKey(c.parts)] = c
		}
		g.state = CellUpdate
		return nil
	}

	if g.state != CellUpdate {
		return snberr.InvariantViolation("DataGrid", 0, "SetCellUpdateMode(false) requires CellUpdate state")
	}
	g.cellIndex = nil
	g.recomputeStatistics()
	g.state = Stable
	return nil
}

func (g *DataGrid) recomputeStatistics() {
	g.version++
	g.totalFrequency = 0
	for _, a := range g.attributes {
		for p := a.partHead; p != nil; p = p.next {
			var sum int64
			for c := p.cellHead; c != nil; c = c.attrNext[a.index] {
				sum += c.frequency
			}
			p.frequency = sum
		}
	}
	for c := g.gridHead; c != nil; c = c.gridNext {
		g.totalFrequency += c.frequency
	}
	g.informativeAttrNum = 0
	g.totalParts = 0
	g.logCellProductSize = 0
	for _, a := range g.attributes {
		g.totalParts += a.partCount
		if a.partCount > 1 {
			g.informativeAttrNum++
		}
		if a.partCount > 0 {
			g.logCellProductSize += math.Log(float64(a.partCount))
		}
	}
}

// AddCell inserts a new cell with the given k-tuple of parts, requiring
// cell-update mode and that no cell with the same tuple already exists.
// The cell is appended at the grid tail and threaded onto each part's
// per-attribute cell list at that part's tail.
func (g *DataGrid) AddCell(parts []*Part) (*Cell, error) {
	if g.state != CellUpdate {
		return nil, snberr.InvariantViolation("DataGrid", 0, "AddCell requires CellUpdate state")
	}
	if len(parts) != len(g.attributes) {
		return nil, snberr.InvariantViolation("DataGrid", 0, "AddCell requires exactly k parts")
	}
	if _, exists := g.LookupCell(parts); exists {
		return nil, snberr.InvariantViolation("DataGrid", 0, "AddCell: cell with this part tuple already exists")
	}

	c := &Cell{
		grid:     g,
		parts:    append([]*Part(nil), parts...),
		attrPrev: make([]*Cell, len(parts)),
		attrNext: make([]*Cell, len(parts)),
	}
	if len(g.targetValues) > 0 {
		c.targetFrequency = make([]int64, len(g.targetValues))
	}

	c.gridPrev = g.gridTail
	if g.gridTail != nil {
		g.gridTail.gridNext = c
	} else {
		g.gridHead = c
	}
	g.gridTail = c
	g.cellSize++

	for _, p := range parts {
		p.attachCell(c)
	}

	g.cellIndex[cellKey(parts)] = c
	return c, nil
}

// LookupCell finds the cell with the given part tuple via the cell
// index. Only available in cell-update mode.
func (g *DataGrid) LookupCell(parts []*Part) (*Cell, bool) {
	if g.cellIndex == nil {
		return nil, false
	}
	c, ok := g.cellIndex[cellKey(parts)]
	return c, ok
}

// DeleteCell removes c from the grid, its sorted-cell index, and every
// part's per-attribute cell list. Requires cell-update mode.
func (g *DataGrid) DeleteCell(c *Cell) error {
	if g.state != CellUpdate {
		return snberr.InvariantViolation("DataGrid", 0, "DeleteCell requires CellUpdate state")
	}
	delete(g.cellIndex, cellKey(c.parts))

	if c.gridPrev != nil {
		c.gridPrev.gridNext = c.gridNext
	} else {
		g.gridHead = c.gridNext
	}
	if c.gridNext != nil {
		c.gridNext.gridPrev = c.gridPrev
	} else {
		g.gridTail = c.gridPrev
	}
	g.cellSize--

	for _, p := range c.parts {
		p.detachCell(c)
	}
	return nil
}

// Cells returns a snapshot of all cells in grid chain order.
func (g *DataGrid) Cells() []*Cell {
	cells := make([]*Cell, 0, g.cellSize)
	for c := g.gridHead; c != nil; c = c.gridNext {
		cells = append(cells, c)
	}
	return cells
}

// CellCount returns the number of cells currently in the grid.
func (g *DataGrid) CellCount() int { return g.cellSize }

// DeleteAll resets the grid to Empty, detaching its InnerAttributes if
// unshared.
func (g *DataGrid) DeleteAll() {
	for _, a := range g.attributes {
		if a.inner != nil && a.inner.Release() {
			// last holder: the shared universe is now unreferenced.
			a.inner = nil
		}
	}
	g.attributes = nil
	g.definedAttrs = 0
	g.byName = make(map[string]*Attribute)
	g.targetValues = nil
	g.targetAttrIndex = -1
	g.varPartAttrIndex = -1
	g.gridHead, g.gridTail = nil, nil
	g.cellSize = 0
	g.cellIndex = nil
	g.totalFrequency = 0
	g.totalParts = 0
	g.informativeAttrNum = 0
	g.version++
	g.state = Empty
}
