package datagrid

import (
	"math"
	"sort"
	"strconv"

	"github.com/arxos/snbgrid/internal/snberr"
)

// Attribute is one dimension of a DataGrid: a name-unique, typed sequence
// of Parts.
type Attribute struct {
	grid  *DataGrid
	index int // position within grid.attributes

	name string
	typ  AttributeType

	partHead   *Part
	partTail   *Part
	partCount  int
	nextPartID uint64

	garbagePart *Part // optional, Symbol/VarPart only

	// indexing structures, built on demand (Build/Delete lifecycle),
	// independent of the grid's cell-update-mode lifecycle.
	indexBuilt  bool
	sortedParts []*Part          // Continuous: ascending by Upper, for binary search
	valueIndex  map[string]*Part // Symbol: value -> part
	defaultPart *Part            // Symbol/VarPart: the part holding StarValue / catching unseen values

	ownerAttributeName string           // set iff this is an inner attribute of a VarPart attribute
	inner              *InnerAttributes // non-nil iff typ == VarPart
}

// Name returns the attribute's name.
func (a *Attribute) Name() string { return a.name }

// Type returns the attribute's type.
func (a *Attribute) Type() AttributeType { return a.typ }

// Index returns the attribute's 0-based position in its grid.
func (a *Attribute) Index() int { return a.index }

// PartCount returns the number of parts in this attribute's partition.
func (a *Attribute) PartCount() int { return a.partCount }

// GarbagePart returns the attribute's garbage part, or nil.
func (a *Attribute) GarbagePart() *Part { return a.garbagePart }

// Inner returns the shared InnerAttributes universe for a VarPart
// attribute, or nil.
func (a *Attribute) Inner() *InnerAttributes { return a.inner }

// OwnerAttributeName returns the name of the VarPart attribute this inner
// attribute belongs to, or "" for a top-level attribute.
func (a *Attribute) OwnerAttributeName() string { return a.ownerAttributeName }

// Parts returns a snapshot of this attribute's parts in list order.
func (a *Attribute) Parts() []*Part {
	parts := make([]*Part, 0, a.partCount)
	for p := a.partHead; p != nil; p = p.next {
		parts = append(parts, p)
	}
	return parts
}

// addPart appends a new part to the attribute's doubly-linked part list
// and returns it. Only legal in Structural state, before cell-update
// mode is entered: attributes are created and their parts added before
// any cell ever references them.
func (a *Attribute) addPart() *Part {
	p := &Part{id: a.nextPartID, attribute: a}
	a.nextPartID++
	if a.partTail != nil {
		a.partTail.next = p
		p.prev = a.partTail
	} else {
		a.partHead = p
	}
	a.partTail = p
	a.partCount++
	return p
}

// AddContinuousPart appends a part with the given interval.
func (a *Attribute) AddContinuousPart(lower, upper float64, missing bool) *Part {
	p := a.addPart()
	iv := Interval{Lower: lower, Upper: upper, IsMissing: missing}
	p.interval = &iv
	return p
}

// AddGroupPart appends a part with the given ValueSet. If vs.IsDefault is
// set and the attribute had no garbage part recorded yet, nothing special
// happens here; default-part bookkeeping happens in BuildIndex.
func (a *Attribute) AddGroupPart(vs *ValueSet) *Part {
	p := a.addPart()
	p.values = vs
	return p
}

// SetGarbagePart marks p as this attribute's (at most one) garbage part.
func (a *Attribute) SetGarbagePart(p *Part) { a.garbagePart = p }

// BuildIndex constructs the Lookup index for this attribute: a sorted
// array keyed by upper bound for Continuous attributes, or a value->part
// hash map plus default-part pointer for groupable attributes. Indexing
// must not be live while parts mutate; callers must not call BuildIndex
// before the attribute's parts are final.
func (a *Attribute) BuildIndex() error {
	switch a.typ {
	case Continuous:
		// the missing-value part is found by LookupContinuous's NaN path
		// and stays out of the bound-ordered index.
		a.sortedParts = nil
		for p := a.partHead; p != nil; p = p.next {
			if !p.interval.IsMissing {
				a.sortedParts = append(a.sortedParts, p)
			}
		}
		sort.Slice(a.sortedParts, func(i, j int) bool {
			return a.sortedParts[i].interval.Upper < a.sortedParts[j].interval.Upper
		})
	case Symbol, VarPart:
		a.valueIndex = make(map[string]*Part)
		a.defaultPart = nil
		for p := a.partHead; p != nil; p = p.next {
			if p.values == nil {
				return snberr.InvariantViolation("Attribute", a.index, "groupable part missing ValueSet")
			}
			if p.values.IsDefault {
				a.defaultPart = p
			}
			for _, v := range p.values.Values {
				if a.typ == Symbol {
					if v.IsStar {
						continue
					}
					a.valueIndex[v.Symbol] = p
				} else {
					a.valueIndex[innerRefKey(v.VarPartRef)] = p
				}
			}
		}
	}
	a.indexBuilt = true
	return nil
}

// DeleteIndex discards the Lookup index, allowing parts to mutate again.
func (a *Attribute) DeleteIndex() {
	a.sortedParts = nil
	a.valueIndex = nil
	a.defaultPart = nil
	a.indexBuilt = false
}

func innerRefKey(r VarPartRef) string {
	return r.InnerAttributeName + "#" + strconv.Itoa(r.PartIndex)
}

// LookupContinuous finds the part containing c. Sequential scan for small
// partitions (<=10 parts), binary search otherwise.
func (a *Attribute) LookupContinuous(c float64) (*Part, bool) {
	if math.IsNaN(c) {
		for p := a.partHead; p != nil; p = p.next {
			if p.interval.IsMissing {
				return p, true
			}
		}
		return nil, false
	}
	if len(a.sortedParts) <= 10 {
		for _, p := range a.sortedParts {
			if p.interval.Contains(c) {
				return p, true
			}
		}
		return nil, false
	}
	lo, hi := 0, len(a.sortedParts)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if c <= a.sortedParts[mid].interval.Upper {
			if mid == 0 || c > a.sortedParts[mid-1].interval.Upper {
				return a.sortedParts[mid], true
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return nil, false
}

// LookupSymbol finds the part containing the given symbol value, falling
// back to the default part on miss.
func (a *Attribute) LookupSymbol(value string) (*Part, bool) {
	if p, ok := a.valueIndex[value]; ok {
		return p, true
	}
	if a.defaultPart != nil {
		return a.defaultPart, true
	}
	return nil, false
}

// LookupVarPart finds the part containing the given inner-attribute
// reference, falling back to the default part on miss.
func (a *Attribute) LookupVarPart(ref VarPartRef) (*Part, bool) {
	if p, ok := a.valueIndex[innerRefKey(ref)]; ok {
		return p, true
	}
	if a.defaultPart != nil {
		return a.defaultPart, true
	}
	return nil, false
}
