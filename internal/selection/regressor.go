package selection

import (
	"math"

	"github.com/arxos/snbgrid/internal/colstore"
	"github.com/arxos/snbgrid/internal/snberr"
)

// targetInterval is one part of the regression target partition: an
// interval of rank-ordered instances identified by its cumulative
// frequency, carrying a per-instance score vector and a reference count
// of how many selected attributes' univariate partitions end a part at
// this interval's upper bound.
type targetInterval struct {
	prev, next *targetInterval

	frequency int64
	cumFreq   int64
	refCount  int
	scores    []float64
}

// Regressor is the target-partition variant for a Continuous target,
// rank-discretized upstream so each instance's target index is its rank.
// The multivariate target partition is a doubly-linked list of intervals:
// adding an attribute refines it, splitting any interval straddling one
// of the attribute's cumulative-frequency cut points (children inherit
// the parent's score vector); removing an attribute decrements each
// shared bound's reference count and merges the intervals around bounds
// that drop to zero. Scores accumulate in place per interval via the
// column store's conditional-probability upgrade, with the attribute's
// own target part index as the j coordinate.
type Regressor struct {
	store *colstore.Store
	n     int // instance count

	head, tail    *targetInterval
	intervalCount int
	selected      []int
	inSel         map[int]bool
}

// NewRegressor builds the single-interval initial partition over n
// materialized instances.
func NewRegressor(store *colstore.Store, n int) *Regressor {
	root := &targetInterval{
		frequency: int64(n),
		cumFreq:   int64(n),
		refCount:  1,
		scores:    make([]float64, n),
	}
	return &Regressor{
		store:         store,
		n:             n,
		head:          root,
		tail:          root,
		intervalCount: 1,
		inSel:         map[int]bool{},
	}
}

// IntervalCount returns the current number of intervals in the target
// partition.
func (r *Regressor) IntervalCount() int { return r.intervalCount }

func (r *Regressor) targetPartFrequencies(attrIdx int) ([]int64, error) {
	freqs := r.store.UsedAttribute(attrIdx).TargetPartFrequencies
	if len(freqs) == 0 {
		return nil, snberr.InvariantViolation("Regressor", attrIdx, "prepared attribute carries no target part frequencies")
	}
	return freqs, nil
}

func (r *Regressor) insertBefore(nv, at *targetInterval) {
	nv.next = at
	nv.prev = at.prev
	if at.prev != nil {
		at.prev.next = nv
	} else {
		r.head = nv
	}
	at.prev = nv
	r.intervalCount++
}

func (r *Regressor) remove(iv *targetInterval) {
	if iv.prev != nil {
		iv.prev.next = iv.next
	} else {
		r.head = iv.next
	}
	if iv.next != nil {
		iv.next.prev = iv.prev
	} else {
		r.tail = iv.prev
	}
	r.intervalCount--
}

// AddAttribute refines the partition along attrIdx's cumulative target
// part bounds, then accumulates the attribute's conditional
// log-probabilities into every interval's score vector.
func (r *Regressor) AddAttribute(attrIdx int) error {
	if r.inSel[attrIdx] {
		return snberr.InvariantViolation("Regressor", attrIdx, "attribute already selected")
	}
	freqs, err := r.targetPartFrequencies(attrIdx)
	if err != nil {
		return err
	}

	// Synchronized walk over the attribute's cut points and the interval
	// list: a cut strictly inside an interval splits it (the new left
	// child inherits the score vector); a cut landing on an existing
	// bound increments that interval's reference count.
	cur := r.head
	var cum int64
	for _, f := range freqs {
		cum += f
		for cur.cumFreq < cum {
			cur = cur.next
		}
		if cur.cumFreq > cum {
			nv := &targetInterval{
				frequency: cum - (cur.cumFreq - cur.frequency),
				cumFreq:   cum,
				refCount:  1,
				scores:    append([]float64(nil), cur.scores...),
			}
			cur.frequency -= nv.frequency
			r.insertBefore(nv, cur)
		} else {
			cur.refCount++
		}
	}

	if err := r.upgrade(attrIdx, freqs, 1); err != nil {
		return err
	}
	r.inSel[attrIdx] = true
	r.selected = append(r.selected, attrIdx)
	return nil
}

// RemoveAttribute subtracts attrIdx's score contributions, then walks its
// cut points decrementing reference counts and merging each interval
// whose count drops to zero into its successor.
func (r *Regressor) RemoveAttribute(attrIdx int) error {
	if !r.inSel[attrIdx] {
		return snberr.InvariantViolation("Regressor", attrIdx, "attribute not selected")
	}
	freqs, err := r.targetPartFrequencies(attrIdx)
	if err != nil {
		return err
	}
	if err := r.upgrade(attrIdx, freqs, -1); err != nil {
		return err
	}

	cur := r.head
	var cum int64
	for _, f := range freqs {
		cum += f
		for cur.cumFreq < cum {
			cur = cur.next
		}
		cur.refCount--
		if cur.refCount == 0 {
			// after the subtraction above, no remaining attribute
			// distinguishes across this bound: fold into the successor.
			next := cur.next
			next.frequency += cur.frequency
			r.remove(cur)
			cur = next
		} else {
			if cur.next != nil {
				cur = cur.next
			}
		}
	}

	delete(r.inSel, attrIdx)
	for i, a := range r.selected {
		if a == attrIdx {
			r.selected = append(r.selected[:i], r.selected[i+1:]...)
			break
		}
	}
	return nil
}

// upgrade applies w times attrIdx's conditional log-probabilities to every
// interval's score vector, with the attribute target part containing the
// interval as the j coordinate.
func (r *Regressor) upgrade(attrIdx int, freqs []int64, w float64) error {
	part := 0
	var partCum int64 = freqs[0]
	for iv := r.head; iv != nil; iv = iv.next {
		for partCum < iv.cumFreq {
			part++
			partCum += freqs[part]
		}
		if err := r.store.UpgradeTargetConditionalLnProbsAt(attrIdx, part, w, iv.scores, iv.scores); err != nil {
			return err
		}
	}
	return nil
}

// DataCost computes -Σ_n log P(Y_n | X_n, S) under the rank model:
// intervals contribute their frequency-weighted exponentiated score
// deltas, and the Laplace estimator (N·p + ε)/(N + N·ε) with
// ε = 0.5/(N+1) smooths the per-rank probability. Exponentials are
// clipped at maxExpScore so the sum stays finite.
func (r *Regressor) DataCost() float64 {
	n := float64(r.n)
	eps := 0.5 / (n + 1)
	denominator := n + eps*n
	maxExpScore := math.MaxFloat64 / n
	maxScore := math.Log(maxExpScore)

	// Index the interval list and map each rank to its interval.
	intervals := make([]*targetInterval, 0, r.intervalCount)
	rankPart := make([]int, r.n)
	rank := int64(0)
	for iv := r.head; iv != nil; iv = iv.next {
		idx := len(intervals)
		intervals = append(intervals, iv)
		for ; rank < iv.cumFreq; rank++ {
			rankPart[rank] = idx
		}
	}

	total := 0.0
	for i := 0; i < r.n; i++ {
		actual := intervals[rankPart[r.store.TargetIndexAt(i)]]
		actualScore := actual.scores[i]
		inverseProb := 0.0
		for _, iv := range intervals {
			if iv == actual {
				inverseProb += float64(iv.frequency)
				continue
			}
			delta := iv.scores[i] - actualScore
			if delta >= maxScore {
				inverseProb += float64(iv.frequency) * maxExpScore
			} else {
				inverseProb += float64(iv.frequency) * math.Exp(delta)
			}
		}
		total -= math.Log(n/inverseProb + eps)
	}
	total += n * math.Log(denominator)
	return total
}

// Check verifies the interval list: positive frequencies, consistent
// cumulative frequencies ending at the instance count, reference counts
// of at least one, and full-length score vectors.
func (r *Regressor) Check() error {
	var cum int64
	for iv := r.head; iv != nil; iv = iv.next {
		if iv.frequency <= 0 {
			return snberr.InvariantViolation("Regressor", 0, "target interval frequency must be strictly positive")
		}
		cum += iv.frequency
		if iv.cumFreq != cum {
			return snberr.InvariantViolation("Regressor", 0, "target interval cumulative frequency is inconsistent")
		}
		if iv.refCount < 1 {
			return snberr.InvariantViolation("Regressor", 0, "target interval reference count must be at least 1")
		}
		if len(iv.scores) != r.n {
			return snberr.InvariantViolation("Regressor", 0, "score vector length does not match instance count")
		}
	}
	if cum != int64(r.n) {
		return snberr.InvariantViolation("Regressor", 0, "target intervals do not cover every instance")
	}
	return nil
}

// Selected returns the attributes currently folded in, add order.
func (r *Regressor) Selected() []int {
	out := make([]int, len(r.selected))
	copy(out, r.selected)
	return out
}
