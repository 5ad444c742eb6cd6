// Import/export bridges between the live DataGrid and the frozen
// DataGridStats partition representation.
//
// Follows the shape of a Khiops-style ImportDataGridStats/
// ExportDataGridStats pair for how discretization/grouping tables become
// Interval/ValueSet parts.
package datagrid

import (
	"github.com/arxos/snbgrid/internal/snberr"
)

// ImportDataGridStats builds a fresh grid from a frozen partition: creates
// attributes, builds parts from the per-attribute discretization/grouping
// tables, then enters cell-update mode and inserts every non-zero cell of
// the flat frequency array, accumulating per-target frequencies when the
// grid is in implicit-target-value mode.
func ImportDataGridStats(stats *DataGridStats) (*DataGrid, error) {
	k := len(stats.Attributes)
	g := Initialize(k, len(stats.TargetValues))
	copy(g.targetValues, stats.TargetValues)
	g.granularity = stats.Granularity

	dims := make([]int, 0, k+1)
	attrParts := make([][]*Part, k)

	for i, as := range stats.Attributes {
		a, err := g.AddAttribute()
		if err != nil {
			return nil, err
		}
		if err := g.SetAttributeName(a, as.Name); err != nil {
			return nil, err
		}
		inner, err := buildInnerAttributesFromStats(as.InnerAttributes, as.InnerGranularity)
		if err != nil {
			return nil, err
		}
		if err := g.SetAttributeType(a, as.Type, inner); err != nil {
			return nil, err
		}
		if err := buildAttributeParts(a, &as); err != nil {
			return nil, err
		}
		attrParts[i] = a.Parts()
		dims = append(dims, a.PartCount())
	}

	if stats.TargetAttributeCount == 1 {
		if err := g.SetTargetAttribute(g.attributes[k-1]); err != nil {
			return nil, err
		}
	} else if len(stats.TargetValues) > 0 {
		dims = append(dims, len(stats.TargetValues))
	}

	if err := g.SetCellUpdateMode(true); err != nil {
		return nil, err
	}

	implicitTarget := stats.TargetAttributeCount == 0 && len(stats.TargetValues) > 0
	for flat, freq := range stats.CellFrequencies {
		if freq == 0 {
			continue
		}
		idx := decodeIndex(flat, dims)
		parts := make([]*Part, k)
		for d := 0; d < k; d++ {
			parts[d] = attrParts[d][idx[d]]
		}
		c, ok := g.LookupCell(parts)
		if !ok {
			var err error
			c, err = g.AddCell(parts)
			if err != nil {
				return nil, err
			}
		}
		if implicitTarget {
			c.AddFrequency(freq, idx[k])
		} else {
			c.AddFrequency(freq, -1)
		}
	}

	if err := g.SetCellUpdateMode(false); err != nil {
		return nil, err
	}
	return g, nil
}

// buildAttributeParts dispatches to the Continuous or groupable builder
// according to as.Type, synthesizing bounds/value sets from the
// appropriate frozen table.
func buildAttributeParts(a *Attribute, as *AttributeStats) error {
	switch as.Type {
	case Continuous:
		return buildContinuousParts(a, as)
	case Symbol, VarPart:
		return buildGroupableParts(a, as)
	}
	return snberr.InvariantViolation("Attribute", a.index, "unknown attribute type")
}

func buildContinuousParts(a *Attribute, as *AttributeStats) error {
	var bounds []float64
	switch {
	case as.Discretization != nil:
		bounds = as.Discretization.InteriorBounds
	case as.ContinuousValues != nil:
		vals := as.ContinuousValues.Values
		for i := 0; i < len(vals)-1; i++ {
			bounds = append(bounds, (vals[i]+vals[i+1])/2)
		}
	default:
		return snberr.InvariantViolation("Attribute", a.index, "Continuous attribute requires Discretization or ContinuousValues")
	}

	lower := NegInf
	for _, b := range bounds {
		a.AddContinuousPart(lower, b, false)
		lower = b
	}
	a.AddContinuousPart(lower, PosInf, false)

	if as.HasMissingValuePart {
		a.AddContinuousPart(0, 0, true)
	}
	return a.BuildIndex()
}

func buildGroupableParts(a *Attribute, as *AttributeStats) error {
	switch {
	case as.Grouping != nil:
		return buildFromGrouping(a, as.Grouping)
	case as.SymbolValues != nil:
		return buildFromSymbolValues(a, as.SymbolValues)
	case as.VarPartGrouping != nil:
		return buildFromVarPartGrouping(a, as.VarPartGrouping)
	}
	return snberr.InvariantViolation("Attribute", a.index, "groupable attribute requires a partition table")
}

func buildFromGrouping(a *Attribute, gr *GroupingStats) error {
	for gi, rng := range gr.Groups {
		vs := &ValueSet{IsDefault: gi == gr.StarGroupIndex}
		for vi := rng.FirstValueIndex; vi <= rng.LastValueIndex; vi++ {
			vs.Values = append(vs.Values, &Value{Symbol: gr.Values[vi]})
		}
		if gi == gr.StarGroupIndex {
			vs.Values = append(vs.Values, &Value{IsStar: true})
		}
		p := a.AddGroupPart(vs)
		if gi == gr.GarbageGroupIndex {
			a.SetGarbagePart(p)
		}
	}
	return a.BuildIndex()
}

func buildFromSymbolValues(a *Attribute, sv *SymbolValuesStats) error {
	for _, s := range sv.Values {
		a.AddGroupPart(&ValueSet{Values: []*Value{{Symbol: s}}})
	}
	a.AddGroupPart(&ValueSet{IsDefault: true, Values: []*Value{{IsStar: true}}})
	return a.BuildIndex()
}

func buildFromVarPartGrouping(a *Attribute, vg *VarPartGroupingStats) error {
	for gi, rng := range vg.Groups {
		vs := &ValueSet{IsDefault: gi == vg.GarbageGroupIndex}
		for vi := rng.FirstValueIndex; vi <= rng.LastValueIndex; vi++ {
			vs.Values = append(vs.Values, &Value{VarPartRef: vg.Refs[vi]})
		}
		p := a.AddGroupPart(vs)
		if gi == vg.GarbageGroupIndex {
			a.SetGarbagePart(p)
		}
	}
	return a.BuildIndex()
}

// buildInnerAttributesFromStats constructs a freestanding InnerAttributes
// universe from its frozen sub-attribute descriptions. Inner attributes
// have no owning grid; they are built with the same part-construction
// helpers used for top-level attributes.
func buildInnerAttributesFromStats(specs []AttributeStats, granularity int) (*InnerAttributes, error) {
	if specs == nil {
		return nil, nil
	}
	ia := NewInnerAttributes(granularity)
	for i := range specs {
		as := &specs[i]
		a := &Attribute{index: i, name: as.Name, typ: as.Type}
		if !ia.Add(a) {
			return nil, snberr.InvariantViolation("InnerAttributes", i, "duplicate inner attribute name "+as.Name)
		}
		if err := buildAttributeParts(a, as); err != nil {
			return nil, err
		}
	}
	return ia, nil
}

// ExportDataGridStats reads back a Stable grid into the frozen partition
// representation. Continuous attributes
// are always exported as Discretization (interior bounds), since the
// ContinuousValues input form is synthesizable and not round-trippable
// byte-for-byte.
func ExportDataGridStats(g *DataGrid) (*DataGridStats, error) {
	stats := &DataGridStats{
		SourceAttributeCount: len(g.attributes),
		Granularity:          g.granularity,
	}
	if g.targetAttrIndex != -1 {
		stats.TargetAttributeCount = 1
		stats.SourceAttributeCount--
	} else if len(g.targetValues) > 0 {
		stats.TargetValues = append([]string(nil), g.targetValues...)
	}

	dims := make([]int, 0, len(g.attributes)+1)
	partIndexOf := make([]map[uint64]int, len(g.attributes))
	for _, a := range g.attributes {
		as, err := exportAttributeStats(a)
		if err != nil {
			return nil, err
		}
		stats.Attributes = append(stats.Attributes, *as)
		dims = append(dims, a.PartCount())

		idxMap := make(map[uint64]int, a.partCount)
		i := 0
		for p := a.partHead; p != nil; p = p.next {
			idxMap[p.id] = i
			i++
		}
		partIndexOf[a.index] = idxMap
	}

	implicitTarget := g.targetAttrIndex == -1 && len(g.targetValues) > 0
	if implicitTarget {
		dims = append(dims, len(g.targetValues))
	}

	total := 1
	for _, d := range dims {
		total *= d
	}
	stats.CellFrequencies = make([]int64, total)

	for c := g.gridHead; c != nil; c = c.gridNext {
		idx := make([]int, len(dims))
		for d, p := range c.parts {
			idx[d] = partIndexOf[d][p.id]
		}
		if implicitTarget {
			for j, f := range c.targetFrequency {
				if f == 0 {
					continue
				}
				idx[len(c.parts)] = j
				stats.CellFrequencies[encodeIndex(idx, dims)] = f
			}
		} else {
			stats.CellFrequencies[encodeIndex(idx, dims)] = c.frequency
		}
	}

	return stats, nil
}

func exportAttributeStats(a *Attribute) (*AttributeStats, error) {
	as := &AttributeStats{Name: a.name, Type: a.typ}
	switch a.typ {
	case Continuous:
		var ordered []*Part
		for p := a.partHead; p != nil; p = p.next {
			if p.interval.IsMissing {
				as.HasMissingValuePart = true
				continue
			}
			ordered = append(ordered, p)
		}
		var bounds []float64
		for i := 0; i < len(ordered)-1; i++ {
			bounds = append(bounds, ordered[i].interval.Upper)
		}
		as.Discretization = &DiscretizationStats{InteriorBounds: bounds}
	case Symbol, VarPart:
		if err := exportGroupingInto(a, as); err != nil {
			return nil, err
		}
		if a.typ == VarPart && a.inner != nil {
			as.InnerGranularity = a.inner.granularity
			for _, ia := range a.inner.attributes {
				innerStats, err := exportAttributeStats(ia)
				if err != nil {
					return nil, err
				}
				as.InnerAttributes = append(as.InnerAttributes, *innerStats)
			}
		}
	}
	return as, nil
}

func exportGroupingInto(a *Attribute, as *AttributeStats) error {
	if a.typ == Symbol {
		gr := &GroupingStats{GarbageGroupIndex: -1, StarGroupIndex: -1}
		gi := 0
		for p := a.partHead; p != nil; p = p.next {
			start := len(gr.Values)
			for _, v := range p.values.Values {
				if v.IsStar {
					gr.StarGroupIndex = gi
					continue
				}
				gr.Values = append(gr.Values, v.Symbol)
			}
			gr.Groups = append(gr.Groups, GroupRange{FirstValueIndex: start, LastValueIndex: len(gr.Values) - 1})
			if p == a.garbagePart {
				gr.GarbageGroupIndex = gi
			}
			gi++
		}
		as.Grouping = gr
		return nil
	}

	vg := &VarPartGroupingStats{GarbageGroupIndex: -1}
	gi := 0
	for p := a.partHead; p != nil; p = p.next {
		start := len(vg.Refs)
		for _, v := range p.values.Values {
			vg.Refs = append(vg.Refs, v.VarPartRef)
		}
		vg.Groups = append(vg.Groups, GroupRange{FirstValueIndex: start, LastValueIndex: len(vg.Refs) - 1})
		if p == a.garbagePart {
			vg.GarbageGroupIndex = gi
		}
		gi++
	}
	as.VarPartGrouping = vg
	return nil
}

func decodeIndex(flat int, dims []int) []int {
	idx := make([]int, len(dims))
	for d := len(dims) - 1; d >= 0; d-- {
		idx[d] = flat % dims[d]
		flat /= dims[d]
	}
	return idx
}

func encodeIndex(idx []int, dims []int) int {
	flat := 0
	for d := 0; d < len(dims); d++ {
		flat = flat*dims[d] + idx[d]
	}
	return flat
}
