package selection

import "math"

// WeightMethod selects the model-averaging weighting scheme.
type WeightMethod string

const (
	WeightNone                     WeightMethod = "None"
	WeightPredictorCompressionRate WeightMethod = "PredictorCompressionRate"
	WeightPredictorProb            WeightMethod = "PredictorProb"
)

// weightEvent is one recorded evaluation: the attribute set whose weights
// the evaluation contributes to, and the evaluated selection's cost. The
// per-event weight cannot be computed eagerly for PredictorProb (it needs
// the final cost, known only when the search ends), so every method
// defers to Finalize.
type weightEvent struct {
	attrs []int
	cost  float64
}

// WeightManager accumulates a per-attribute weight vector across the
// optimizer's evaluations, for model-averaging predictors.
// With method WeightNone it records nothing.
type WeightManager struct {
	method      WeightMethod
	initialCost float64
	finalCost   float64
	n           int
	events      []weightEvent
}

// NewWeightManager creates a manager for the given method. initialCost is
// cost(∅); n is the instance count, used for the post-search zeroing
// threshold 1/(N+1).
func NewWeightManager(method WeightMethod, initialCost float64, n int) *WeightManager {
	return &WeightManager{method: method, initialCost: initialCost, n: n}
}

// SetFinalCost records the search's final accepted cost, needed by the
// PredictorProb weighting formula.
func (w *WeightManager) SetFinalCost(cost float64) { w.finalCost = cost }

func (w *WeightManager) weightOf(cost float64) float64 {
	switch w.method {
	case WeightPredictorCompressionRate:
		wt := (w.initialCost - cost) / w.initialCost
		if wt < 0 {
			wt = 0
		}
		return wt
	case WeightPredictorProb:
		return math.Exp(w.finalCost - cost)
	default:
		return 0
	}
}

// OnAdd records an Add evaluation: the evaluation's weight accrues to
// every currently selected attribute plus the newly considered candidate.
func (w *WeightManager) OnAdd(currentlySelected []int, candidate int, trialCost float64) {
	if w.method == WeightNone {
		return
	}
	attrs := make([]int, 0, len(currentlySelected)+1)
	for _, a := range currentlySelected {
		if a == candidate {
			continue
		}
		attrs = append(attrs, a)
	}
	attrs = append(attrs, candidate)
	w.events = append(w.events, weightEvent{attrs: attrs, cost: trialCost})
}

// OnRemove records a Remove evaluation: the evaluation's weight accrues to
// every selected attribute except the one being considered for removal.
func (w *WeightManager) OnRemove(currentlySelected []int, removing int, trialCost float64) {
	if w.method == WeightNone {
		return
	}
	attrs := make([]int, 0, len(currentlySelected))
	for _, a := range currentlySelected {
		if a == removing {
			continue
		}
		attrs = append(attrs, a)
	}
	w.events = append(w.events, weightEvent{attrs: attrs, cost: trialCost})
}

// OnForcedEvaluation records an unconditional evaluation of the current
// selection (e.g. a committed accepted move): the weight accrues to every
// selected attribute.
func (w *WeightManager) OnForcedEvaluation(currentlySelected []int, trialCost float64) {
	if w.method == WeightNone {
		return
	}
	attrs := append([]int(nil), currentlySelected...)
	w.events = append(w.events, weightEvent{attrs: attrs, cost: trialCost})
}

// Finalize replays the recorded evaluations with the final cost known,
// zeroes weights below 1/(N+1), and renormalizes the remainder to sum to
// 1. Returns nil for WeightNone.
func (w *WeightManager) Finalize() map[int]float64 {
	if w.method == WeightNone {
		return nil
	}
	weights := map[int]float64{}
	for _, ev := range w.events {
		wt := w.weightOf(ev.cost)
		for _, a := range ev.attrs {
			weights[a] += wt
		}
	}
	threshold := 1 / float64(w.n+1)
	sum := 0.0
	for a, wt := range weights {
		if wt < threshold {
			delete(weights, a)
			continue
		}
		sum += wt
	}
	if sum == 0 {
		return weights
	}
	for a := range weights {
		weights[a] /= sum
	}
	return weights
}
