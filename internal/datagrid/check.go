package datagrid

import (
	"fmt"
	"math"
	"sort"

	"github.com/arxos/snbgrid/internal/snberr"
)

// Check validates every structural invariant (O(k·n²) in the number of
// cells n and attributes k, since part-partition checks scan every part's
// full cell list). It is the expensive, opt-in counterpart to the cheap
// precondition asserts each mutator already performs inline.
//
// Modeled on a Khiops-style CheckAll pass, collapsed here into one
// ordered sequence so the first violation found is returned immediately.
func (g *DataGrid) Check() error {
	if outcome, ok := memoGetCheck(g); ok {
		if outcome.failed {
			return snberr.New(snberr.CodeInvariantViolation, outcome.message)
		}
		return nil
	}

	err := g.runCheck()
	outcome := checkOutcome{}
	if err != nil {
		outcome.failed = true
		if se, ok := err.(*snberr.Error); ok {
			outcome.message = se.Message
		} else {
			outcome.message = err.Error()
		}
	}
	memoSetCheck(g, outcome)
	return err
}

// runCheck performs the actual O(k·n²) validation pass; Check() wraps it
// with the memo cache keyed on the grid's version.
func (g *DataGrid) runCheck() error {
	if err := g.checkAttributePartitions(); err != nil {
		return err
	}
	if err := g.checkTargetAttributeUniqueness(); err != nil {
		return err
	}
	if err := g.checkVarPartUniqueness(); err != nil {
		return err
	}
	if err := g.checkFrequencies(); err != nil {
		return err
	}
	if err := g.checkCellUniqueness(); err != nil {
		return err
	}
	return nil
}

// checkAttributePartitions validates the Continuous partition invariant
// and the groupable partition invariant.
func (g *DataGrid) checkAttributePartitions() error {
	for _, a := range g.attributes {
		switch a.typ {
		case Continuous:
			if err := checkContinuousPartition(a); err != nil {
				return err
			}
		case Symbol, VarPart:
			if err := checkGroupablePartition(a); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkContinuousPartition(a *Attribute) error {
	parts := a.Parts()
	if len(parts) == 0 {
		return nil
	}
	sortedParts := append([]*Part(nil), parts...)
	sort.Slice(sortedParts, func(i, j int) bool {
		return sortedParts[i].interval.Upper < sortedParts[j].interval.Upper
	})
	var first, last *Part
	for _, p := range sortedParts {
		if p.interval.IsMissing {
			continue
		}
		if first == nil {
			first = p
		}
		last = p
	}
	if first != nil && first.interval.Lower != NegInf {
		return snberr.InvariantViolation("Attribute", a.index, "first Continuous interval must start at -Inf")
	}
	if last != nil && last.interval.Upper != PosInf {
		return snberr.InvariantViolation("Attribute", a.index, "last Continuous interval must end at +Inf")
	}
	prevUpper := math.Inf(-1)
	seenFirst := false
	for _, p := range sortedParts {
		if p.interval.IsMissing {
			continue
		}
		if seenFirst && p.interval.Lower != prevUpper {
			return snberr.InvariantViolation("Attribute", a.index, "adjacent Continuous intervals must share a bound")
		}
		prevUpper = p.interval.Upper
		seenFirst = true
	}
	return nil
}

func checkGroupablePartition(a *Attribute) error {
	starCount := 0
	defaultCount := 0
	seen := make(map[string]bool)
	for p := a.partHead; p != nil; p = p.next {
		if p.values == nil {
			return snberr.InvariantViolation("Attribute", a.index, "groupable part missing ValueSet")
		}
		if p.values.IsDefault {
			defaultCount++
		}
		for _, v := range p.values.Values {
			key := v.Symbol
			if a.typ == VarPart {
				key = innerRefKey(v.VarPartRef)
			}
			if !v.IsStar {
				if seen[key] {
					return snberr.InvariantViolation("Attribute", a.index, "value assigned to more than one part: "+key)
				}
				seen[key] = true
			} else {
				starCount++
				if !p.values.IsDefault {
					return snberr.InvariantViolation("Attribute", a.index, "StarValue must live in the default part")
				}
			}
		}
	}
	if a.typ == Symbol && starCount != 1 {
		return snberr.InvariantViolation("Attribute", a.index, fmt.Sprintf("exactly one StarValue required, found %d", starCount))
	}
	if defaultCount > 1 {
		return snberr.InvariantViolation("Attribute", a.index, "at most one default part allowed")
	}
	return nil
}

// checkTargetAttributeUniqueness validates invariant 6.
func (g *DataGrid) checkTargetAttributeUniqueness() error {
	if g.targetAttrIndex == -1 {
		return nil
	}
	if len(g.targetValues) > 0 {
		return snberr.InvariantViolation("DataGrid", g.targetAttrIndex, "target attribute and implicit target values are mutually exclusive")
	}
	if g.targetAttrIndex != len(g.attributes)-1 {
		return snberr.InvariantViolation("Attribute", g.targetAttrIndex, "target attribute must be last")
	}
	return nil
}

// checkVarPartUniqueness validates invariant 7.
func (g *DataGrid) checkVarPartUniqueness() error {
	count := 0
	for _, a := range g.attributes {
		if a.typ == VarPart {
			count++
			if a.inner == nil {
				return snberr.InvariantViolation("Attribute", a.index, "VarPart attribute requires non-null InnerAttributes")
			}
		}
	}
	if count > 1 {
		return snberr.InvariantViolation("DataGrid", 0, "at most one VarPart attribute allowed")
	}
	return nil
}

// checkFrequencies validates the cell target-frequency sum, the
// part-frequency sum, and the grid-frequency sum, each recomputed fresh
// rather than trusting cached values.
func (g *DataGrid) checkFrequencies() error {
	var gridTotal int64
	for c := g.gridHead; c != nil; c = c.gridNext {
		if len(c.targetFrequency) > 0 {
			var sum int64
			for _, f := range c.targetFrequency {
				sum += f
			}
			if sum != c.frequency {
				return snberr.InvariantViolation("Cell", 0, "cell frequency must equal sum of target frequencies")
			}
		}
		gridTotal += c.frequency
	}

	for _, a := range g.attributes {
		var attrTotal int64
		for p := a.partHead; p != nil; p = p.next {
			var partTotal int64
			for c := p.cellHead; c != nil; c = c.attrNext[a.index] {
				partTotal += c.frequency
			}
			if partTotal != p.frequency {
				return snberr.InvariantViolation("Part", int(p.id), fmt.Sprintf("part frequency %d does not match summed cell frequency %d", p.frequency, partTotal))
			}
			attrTotal += partTotal
		}
		if attrTotal != gridTotal {
			return snberr.InvariantViolation("Attribute", a.index, "attribute's summed part frequency does not match grid frequency")
		}
	}
	return nil
}

// checkCellUniqueness validates invariant 5 (distinct part tuples).
func (g *DataGrid) checkCellUniqueness() error {
	seen := make(map[string]bool)
	for c := g.gridHead; c != nil; c = c.gridNext {
		key := cellKey(c.parts)
		if seen[key] {
			return snberr.InvariantViolation("Cell", 0, "duplicate part tuple: "+key)
		}
		seen[key] = true
		if len(c.parts) != len(g.attributes) {
			return snberr.InvariantViolation("Cell", 0, "cell must reference exactly k parts")
		}
		for i, p := range c.parts {
			if p.attribute.index != i {
				return snberr.InvariantViolation("Cell", 0, "cell part at position i must belong to attribute i")
			}
		}
	}
	return nil
}
