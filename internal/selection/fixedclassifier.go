package selection

import (
	"math"

	"github.com/arxos/snbgrid/internal/colstore"
	"github.com/arxos/snbgrid/internal/snberr"
)

// FixedClassifier is the target-partition variant for a Symbol target with
// one part per target value: a fixed-size array of
// per-target-value score vectors, one entry per instance. Score vectors
// are initialized with the target prior log(N_j/N), so each running score
// is log(P(Y_j)) + Σ_i log P(X_i | Y_j) over the selected attributes.
type FixedClassifier struct {
	store    *colstore.Store
	j        int // target value count
	n        int // instance count
	scores   [][]float64
	selected []int
	inSel    map[int]bool
}

// NewFixedClassifier builds an empty FixedClassifier bound to store, whose
// target has j distinct values over n materialized instances.
func NewFixedClassifier(store *colstore.Store, j, n int) *FixedClassifier {
	counts := make([]int64, j)
	for i := 0; i < n; i++ {
		counts[store.TargetIndexAt(i)]++
	}
	scores := make([][]float64, j)
	for k := range scores {
		prior := math.Inf(-1)
		if counts[k] > 0 {
			prior = math.Log(float64(counts[k]) / float64(n))
		}
		v := make([]float64, n)
		for i := range v {
			v[i] = prior
		}
		scores[k] = v
	}
	return &FixedClassifier{store: store, j: j, n: n, scores: scores, inSel: map[int]bool{}}
}

// AddAttribute accumulates log P(X_attr | Y_j) into every target value's
// score vector.
func (f *FixedClassifier) AddAttribute(attrIdx int) error {
	if f.inSel[attrIdx] {
		return snberr.InvariantViolation("FixedClassifier", attrIdx, "attribute already selected")
	}
	for j := 0; j < f.j; j++ {
		if err := f.store.UpgradeTargetConditionalLnProbsAt(attrIdx, j, 1, f.scores[j], f.scores[j]); err != nil {
			return err
		}
	}
	f.inSel[attrIdx] = true
	f.selected = append(f.selected, attrIdx)
	return nil
}

// RemoveAttribute subtracts a previously added attribute's contribution.
func (f *FixedClassifier) RemoveAttribute(attrIdx int) error {
	if !f.inSel[attrIdx] {
		return snberr.InvariantViolation("FixedClassifier", attrIdx, "attribute not selected")
	}
	for j := 0; j < f.j; j++ {
		if err := f.store.UpgradeTargetConditionalLnProbsAt(attrIdx, j, -1, f.scores[j], f.scores[j]); err != nil {
			return err
		}
	}
	delete(f.inSel, attrIdx)
	for i, a := range f.selected {
		if a == attrIdx {
			f.selected = append(f.selected[:i], f.selected[i+1:]...)
			break
		}
	}
	return nil
}

// DataCost computes -Σ_n log(laplaceNumerator / laplaceDenominator) with
// additive smoothing ε = 0.5/J over the N-scaled posterior:
// numerator N·P(Y_true|X) + ε, denominator N + J·ε. The posterior itself
// is computed with the standard log-sum-exp shift so exp() stays finite
// regardless of how large the accumulated scores grow.
func (f *FixedClassifier) DataCost() float64 {
	eps := laplaceEpsilon(f.j)
	n := float64(f.n)
	denominator := n + float64(f.j)*eps
	total := 0.0
	for i := 0; i < f.n; i++ {
		trueJ := int(f.store.TargetIndexAt(i))
		max := math.Inf(-1)
		for j := 0; j < f.j; j++ {
			if f.scores[j][i] > max {
				max = f.scores[j][i]
			}
		}
		sumExp := 0.0
		for j := 0; j < f.j; j++ {
			sumExp += math.Exp(f.scores[j][i] - max)
		}
		numerator := n*math.Exp(f.scores[trueJ][i]-max)/sumExp + eps
		total -= math.Log(numerator)
	}
	total += n * math.Log(denominator)
	return total
}

// Check verifies every score vector still has one entry per instance.
func (f *FixedClassifier) Check() error {
	if len(f.scores) != f.j {
		return snberr.InvariantViolation("FixedClassifier", 0, "score vector count does not match target value count")
	}
	for j, v := range f.scores {
		if len(v) != f.n {
			return snberr.InvariantViolation("FixedClassifier", j, "score vector length does not match instance count")
		}
	}
	return nil
}

// Selected returns the attributes currently folded in, add order.
func (f *FixedClassifier) Selected() []int {
	out := make([]int, len(f.selected))
	copy(out, f.selected)
	return out
}
