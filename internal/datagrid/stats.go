package datagrid

import "math"

const ln2 = math.Ln2

// SourceEntropy returns the empirical entropy (in bits) of the joint
// source-attribute distribution, i.e. the entropy over cells weighted by
// cell frequency.
func (g *DataGrid) SourceEntropy() float64 {
	if v, ok := memoGetFloat(g, "SourceEntropy"); ok {
		return v
	}
	if g.totalFrequency == 0 {
		return 0
	}
	var h float64
	n := float64(g.totalFrequency)
	for c := g.gridHead; c != nil; c = c.gridNext {
		if c.frequency == 0 {
			continue
		}
		p := float64(c.frequency) / n
		h -= p * math.Log(p)
	}
	result := clampNonNegative(h / ln2)
	memoSetFloat(g, "SourceEntropy", result)
	return result
}

// TargetEntropy returns the empirical entropy (in bits) of the target
// distribution, summing the per-cell target-frequency vectors of the
// implicit-target-value mode. It returns 0 for a grid without implicit
// target values, including one with an explicit target attribute.
func (g *DataGrid) TargetEntropy() float64 {
	if g.totalFrequency == 0 || len(g.targetValues) == 0 {
		return 0
	}
	if v, ok := memoGetFloat(g, "TargetEntropy"); ok {
		return v
	}
	totals := make([]int64, len(g.targetValues))
	for c := g.gridHead; c != nil; c = c.gridNext {
		for j, f := range c.targetFrequency {
			totals[j] += f
		}
	}
	var h float64
	n := float64(g.totalFrequency)
	for _, t := range totals {
		if t == 0 {
			continue
		}
		p := float64(t) / n
		h -= p * math.Log(p)
	}
	result := clampNonNegative(h / ln2)
	memoSetFloat(g, "TargetEntropy", result)
	return result
}

// MutualEntropy returns source entropy + target entropy − joint entropy
// (in bits), i.e. the information the source attributes carry about the
// target.
func (g *DataGrid) MutualEntropy() float64 {
	joint := g.SourceEntropy()
	if len(g.targetValues) == 0 {
		return 0
	}
	return clampNonNegative(joint + g.TargetEntropy() - g.jointEntropyWithTarget())
}

// jointEntropyWithTarget is the entropy of the (cell, targetValue) joint
// distribution, summing over every (cell, j) pair with nonzero frequency.
func (g *DataGrid) jointEntropyWithTarget() float64 {
	if g.totalFrequency == 0 {
		return 0
	}
	if v, ok := memoGetFloat(g, "JointEntropyWithTarget"); ok {
		return v
	}
	var h float64
	n := float64(g.totalFrequency)
	for c := g.gridHead; c != nil; c = c.gridNext {
		for _, f := range c.targetFrequency {
			if f == 0 {
				continue
			}
			p := float64(f) / n
			h -= p * math.Log(p)
		}
	}
	result := clampNonNegative(h / ln2)
	memoSetFloat(g, "JointEntropyWithTarget", result)
	return result
}

// clampNonNegative guards against log(0) contributions and tiny negative
// numerical noise.
func clampNonNegative(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}
