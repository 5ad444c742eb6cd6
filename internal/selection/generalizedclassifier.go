package selection

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/arxos/snbgrid/internal/colstore"
	"github.com/arxos/snbgrid/internal/snberr"
)

// valueSetPart is one part of the target-value partition: a set of target
// values sharing a signature (the per-selected-attribute target group
// index), with the part's instance frequency and its per-instance score
// vector Σ_i log P(X_i | part).
type valueSetPart struct {
	signature []int
	frequency int64
	scores    []float64
}

func signatureKey(sig []int) string {
	var b strings.Builder
	for k, g := range sig {
		if k > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(g))
	}
	return b.String()
}

// GeneralizedClassifier is the target-partition variant for a Symbol
// target with grouped target values. The partition over target values is
// keyed by signature: the tuple, per selected attribute, of the target
// group that attribute assigns to the value. Adding an attribute splits
// every part along the attribute's target value grouping (children
// inherit the parent's score vector, then accumulate the attribute's
// conditional log-probabilities in place); removing an attribute drops
// its signature component and merges parts whose remaining signatures
// coincide. A sorted part list keyed by signature enforces uniqueness.
type GeneralizedClassifier struct {
	store *colstore.Store
	j     int // target value count
	n     int // instance count

	selected   []int           // attr indices, in signature-component order
	valueParts []*valueSetPart // per target value: its current part
	parts      []*valueSetPart // the partition, sorted by signature
	valueFreq  []int64         // per target value instance count
}

// NewGeneralizedClassifier builds the single-part initial partition over a
// j-valued target across n materialized instances.
func NewGeneralizedClassifier(store *colstore.Store, j, n int) *GeneralizedClassifier {
	g := &GeneralizedClassifier{store: store, j: j, n: n}
	g.valueFreq = make([]int64, j)
	for i := 0; i < n; i++ {
		g.valueFreq[store.TargetIndexAt(i)]++
	}
	root := &valueSetPart{frequency: int64(n), scores: make([]float64, n)}
	g.parts = []*valueSetPart{root}
	g.valueParts = make([]*valueSetPart, j)
	for v := range g.valueParts {
		g.valueParts[v] = root
	}
	return g
}

// matchingFor returns attrIdx's target value -> target group index vector,
// defaulting to singleton groups (identity) when the prepared attribute
// carries no explicit matching.
func (g *GeneralizedClassifier) matchingFor(attrIdx int) []int {
	if m := g.store.UsedAttribute(attrIdx).TargetValueGroupMatching; m != nil {
		return m
	}
	identity := make([]int, g.j)
	for v := range identity {
		identity[v] = v
	}
	return identity
}

func (g *GeneralizedClassifier) selectedPos(attrIdx int) int {
	for k, a := range g.selected {
		if a == attrIdx {
			return k
		}
	}
	return -1
}

func (g *GeneralizedClassifier) sortParts() {
	sort.Slice(g.parts, func(i, j int) bool {
		return signatureKey(g.parts[i].signature) < signatureKey(g.parts[j].signature)
	})
}

// AddAttribute splits every part along attrIdx's target value grouping,
// then accumulates log P(X_attr | group) into each part's score vector.
func (g *GeneralizedClassifier) AddAttribute(attrIdx int) error {
	if g.selectedPos(attrIdx) != -1 {
		return snberr.InvariantViolation("GeneralizedClassifier", attrIdx, "attribute already selected")
	}
	matching := g.matchingFor(attrIdx)

	// Split pass: walk values, bucketing each part by the group index the
	// new attribute assigns. The first bucket of a part reuses the part
	// itself; further buckets get fresh parts inheriting the parent's
	// score vector.
	subparts := map[*valueSetPart]map[int]*valueSetPart{}
	baseSig := map[*valueSetPart][]int{}
	newValueParts := make([]*valueSetPart, g.j)
	for v := 0; v < g.j; v++ {
		old := g.valueParts[v]
		gi := matching[v]
		m, seen := subparts[old]
		if !seen {
			m = map[int]*valueSetPart{}
			subparts[old] = m
			baseSig[old] = old.signature
			old.signature = append(append([]int(nil), baseSig[old]...), gi)
			old.frequency = 0
			m[gi] = old
		}
		p := m[gi]
		if p == nil {
			p = &valueSetPart{
				signature: append(append([]int(nil), baseSig[old]...), gi),
				scores:    append([]float64(nil), old.scores...),
			}
			m[gi] = p
		}
		p.frequency += g.valueFreq[v]
		newValueParts[v] = p
	}
	g.valueParts = newValueParts
	g.parts = g.parts[:0]
	for _, m := range subparts {
		for _, p := range m {
			g.parts = append(g.parts, p)
		}
	}
	g.sortParts()
	g.selected = append(g.selected, attrIdx)

	// Score pass: each part's group under the new attribute is its last
	// signature component.
	for _, p := range g.parts {
		group := p.signature[len(p.signature)-1]
		if err := g.store.UpgradeTargetConditionalLnProbsAt(attrIdx, group, 1, p.scores, p.scores); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAttribute subtracts attrIdx's score contributions, drops its
// signature component (the last component takes its place), and merges
// parts whose truncated signatures coincide.
func (g *GeneralizedClassifier) RemoveAttribute(attrIdx int) error {
	pos := g.selectedPos(attrIdx)
	if pos == -1 {
		return snberr.InvariantViolation("GeneralizedClassifier", attrIdx, "attribute not selected")
	}

	for _, p := range g.parts {
		group := p.signature[pos]
		if err := g.store.UpgradeTargetConditionalLnProbsAt(attrIdx, group, -1, p.scores, p.scores); err != nil {
			return err
		}
	}

	// Truncate signatures: the last component takes the removed slot.
	last := len(g.selected) - 1
	for _, p := range g.parts {
		p.signature[pos] = p.signature[last]
		p.signature = p.signature[:last]
	}
	g.selected[pos] = g.selected[last]
	g.selected = g.selected[:last]

	// Merge parts with equal truncated signatures; after the subtraction
	// above their score vectors are equal, so the first part found for a
	// signature absorbs the others' frequency.
	merged := map[string]*valueSetPart{}
	for _, p := range g.parts {
		key := signatureKey(p.signature)
		if kept, ok := merged[key]; ok {
			kept.frequency += p.frequency
		} else {
			merged[key] = p
		}
	}
	for v := 0; v < g.j; v++ {
		g.valueParts[v] = merged[signatureKey(g.valueParts[v].signature)]
	}
	g.parts = g.parts[:0]
	for _, p := range merged {
		g.parts = append(g.parts, p)
	}
	g.sortParts()
	return nil
}

// DataCost computes -Σ_n log P(Y_n | X_n, S) under the part-level naive
// Bayes posterior: parts contribute their frequency-weighted exponentiated
// score deltas, the true value's within-part probability is its value
// frequency over the part frequency, and the Laplace estimator
// (N·p + ε)/(N + J·ε) with ε = 0.5/J smooths the result. Exponentials are
// clipped at maxExpScore so the sum stays finite.
func (g *GeneralizedClassifier) DataCost() float64 {
	eps := laplaceEpsilon(g.j)
	n := float64(g.n)
	denominator := n + float64(g.j)*eps
	maxExpScore := math.MaxFloat64 / n
	maxScore := math.Log(maxExpScore)

	total := 0.0
	for i := 0; i < g.n; i++ {
		trueV := int(g.store.TargetIndexAt(i))
		actual := g.valueParts[trueV]
		actualScore := actual.scores[i]
		inverseProb := 0.0
		for _, p := range g.parts {
			if p == actual {
				inverseProb += float64(p.frequency)
				continue
			}
			delta := p.scores[i] - actualScore
			if delta >= maxScore {
				inverseProb += float64(p.frequency) * maxExpScore
			} else {
				inverseProb += float64(p.frequency) * math.Exp(delta)
			}
		}
		inverseProb /= float64(g.valueFreq[trueV])
		total -= math.Log(n/inverseProb + eps)
	}
	total += n * math.Log(denominator)
	return total
}

// Check verifies the partition: signatures match the selected attributes'
// matchings, signatures are unique across parts, part frequencies sum to
// the instance count, and every score vector spans every instance.
func (g *GeneralizedClassifier) Check() error {
	matchings := make([][]int, len(g.selected))
	for k, a := range g.selected {
		matchings[k] = g.matchingFor(a)
	}
	for v := 0; v < g.j; v++ {
		p := g.valueParts[v]
		if len(p.signature) != len(g.selected) {
			return snberr.InvariantViolation("GeneralizedClassifier", v, "signature length does not match selection size")
		}
		for k := range g.selected {
			if p.signature[k] != matchings[k][v] {
				return snberr.InvariantViolation("GeneralizedClassifier", v, "value assigned to a part with a mismatched signature")
			}
		}
	}
	seen := map[string]bool{}
	var totalFreq int64
	for _, p := range g.parts {
		key := signatureKey(p.signature)
		if seen[key] {
			return snberr.InvariantViolation("GeneralizedClassifier", 0, "duplicate part signature "+key)
		}
		seen[key] = true
		totalFreq += p.frequency
		if len(p.scores) != g.n {
			return snberr.InvariantViolation("GeneralizedClassifier", 0, "score vector length does not match instance count")
		}
	}
	if totalFreq != int64(g.n) {
		return snberr.InvariantViolation("GeneralizedClassifier", 0, "part frequencies do not sum to the instance count")
	}
	if len(g.parts) > g.j {
		return snberr.InvariantViolation("GeneralizedClassifier", 0, "more parts than target values")
	}
	return nil
}

// Selected returns the attributes currently folded in, signature order.
func (g *GeneralizedClassifier) Selected() []int {
	out := make([]int, len(g.selected))
	copy(out, g.selected)
	return out
}
