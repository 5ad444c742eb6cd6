package datagrid

// GroupRange is a contiguous slice [FirstValueIndex, LastValueIndex] into a
// GroupingStats.Values (or VarPartGroupingStats.Refs) array, identifying
// one group's member values.
type GroupRange struct {
	FirstValueIndex int
	LastValueIndex  int
}

// DiscretizationStats is the frozen partition of a Continuous attribute
// with more than one interior part: interior bounds only, the core
// synthesizes the ±∞ sentinel ends.
type DiscretizationStats struct {
	InteriorBounds []float64
}

// ContinuousValuesStats is the frozen partition of a Continuous attribute
// whose parts are singleton point values; the core synthesizes interval
// bounds as the midpoint of successive values.
type ContinuousValuesStats struct {
	Values []float64
}

// GroupingStats is the frozen partition of a Symbol attribute with
// possibly multi-valued groups.
type GroupingStats struct {
	Values            []string
	Groups            []GroupRange
	GarbageGroupIndex int // -1 if none
	StarGroupIndex    int // -1 if no StarValue; else the group holding it
}

// SymbolValuesStats is the frozen partition of a Symbol attribute whose
// groups are all singletons; the core appends a StarValue singleton
// default part.
type SymbolValuesStats struct {
	Values []string
}

// VarPartGroupingStats is the frozen partition of a VarPart attribute:
// like GroupingStats but over inner-attribute part references instead of
// symbols, and with no StarValue.
type VarPartGroupingStats struct {
	Refs              []VarPartRef
	Groups            []GroupRange
	GarbageGroupIndex int
}

// AttributeStats is the frozen per-attribute partition description.
// Exactly one of Discretization / ContinuousValues / Grouping /
// SymbolValues / VarPartGrouping is set, matching Type.
type AttributeStats struct {
	Name string
	Type AttributeType

	Discretization   *DiscretizationStats
	ContinuousValues *ContinuousValuesStats
	Grouping         *GroupingStats
	SymbolValues     *SymbolValuesStats
	VarPartGrouping  *VarPartGroupingStats

	// HasMissingValuePart records whether this Continuous attribute also
	// carries a distinguished missing-value part, in addition to its
	// regular bound-defined partition.
	HasMissingValuePart bool

	// InnerAttributes is the frozen universe a VarPart attribute's parts
	// reference (non-nil iff Type == VarPart).
	InnerAttributes  []AttributeStats
	InnerGranularity int
}

// DataGridStats is the compact, immutable frozen-partition
// representation: the input to ImportDataGridStats and the output of
// ExportDataGridStats.
type DataGridStats struct {
	Attributes           []AttributeStats
	SourceAttributeCount int
	TargetAttributeCount int      // 0 or 1
	TargetValues         []string // non-empty iff TargetAttributeCount == 0 and supervised
	Granularity          int

	// CellFrequencies is the flat, row-major product of per-attribute
	// part counts (plus a trailing implicit-target dimension of size
	// len(TargetValues) when TargetAttributeCount == 0 and TargetValues
	// is non-empty).
	CellFrequencies []int64
}
