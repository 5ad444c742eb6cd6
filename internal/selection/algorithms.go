package selection

import "math"

// runFW implements FW: repeatedly add the single unselected
// attribute giving the largest cost drop, until no add improves by more
// than epsilon.
func (o *Optimizer) runFW() (Result, error) {
	for {
		if o.stopped() || o.atMaxSelected() {
			break
		}
		candidates := o.unselected()
		if len(candidates) == 0 {
			break
		}
		currentCost := o.cost()
		bestDelta := math.Inf(-1)
		bestAttr := -1
		for _, a := range candidates {
			if o.stopped() {
				break
			}
			trialCost, err := o.evalAdd(a)
			if err != nil {
				return Result{}, err
			}
			delta := currentCost - trialCost
			if delta > bestDelta {
				bestDelta, bestAttr = delta, a
			}
		}
		if bestAttr == -1 || bestDelta <= o.epsilon {
			break
		}
		if err := o.commitAdd(bestAttr); err != nil {
			return Result{}, err
		}
		o.weightMgr.OnForcedEvaluation(o.partition.Selected(), currentCost-bestDelta)
	}
	return o.result(), nil
}

// runFWBW implements FWBW: like FW, but at each step also
// considers removing any currently selected attribute, accepting whichever
// single move (add or remove) yields the best delta under the add/remove
// acceptance thresholds.
func (o *Optimizer) runFWBW() (Result, error) {
	for {
		if o.stopped() {
			break
		}
		currentCost := o.cost()
		bestDelta := math.Inf(-1)
		bestAttr := -1
		bestIsAdd := true

		for _, a := range o.unselected() {
			if o.atMaxSelected() {
				break
			}
			if o.stopped() {
				break
			}
			trialCost, err := o.evalAdd(a)
			if err != nil {
				return Result{}, err
			}
			delta := currentCost - trialCost
			if delta > o.epsilon && delta > bestDelta {
				bestDelta, bestAttr, bestIsAdd = delta, a, true
			}
		}
		for _, a := range o.partition.Selected() {
			if o.stopped() {
				break
			}
			trialCost, err := o.evalRemove(a)
			if err != nil {
				return Result{}, err
			}
			delta := currentCost - trialCost
			// Remove is accepted if it does not worsen cost by more than
			// epsilon; ties against an equally good add favor the remove
			// (smaller model), so use >= here against an add's >.
			if delta >= -o.epsilon && delta >= bestDelta {
				bestDelta, bestAttr, bestIsAdd = delta, a, false
			}
		}

		if bestAttr == -1 {
			break
		}
		if bestIsAdd {
			if err := o.commitAdd(bestAttr); err != nil {
				return Result{}, err
			}
		} else {
			if err := o.commitRemove(bestAttr); err != nil {
				return Result{}, err
			}
		}
		o.weightMgr.OnForcedEvaluation(o.partition.Selected(), currentCost-bestDelta)
	}
	return o.result(), nil
}

// runFFWPass implements FFW: a single pass over order,
// committing each improving add immediately without rescanning.
func (o *Optimizer) runFFWPass(order []int) (Result, error) {
	in := o.selectedSet()
	for _, a := range order {
		if o.stopped() || o.atMaxSelected() {
			break
		}
		if in[a] {
			continue
		}
		currentCost := o.cost()
		trialCost, err := o.evalAdd(a)
		if err != nil {
			return Result{}, err
		}
		if currentCost-trialCost > o.epsilon {
			if err := o.commitAdd(a); err != nil {
				return Result{}, err
			}
		}
	}
	return o.result(), nil
}

// runFBWPass implements FBW: a single pass over the currently
// selected attributes, committing each improving (or non-worsening)
// remove immediately.
func (o *Optimizer) runFBWPass(order []int) (Result, error) {
	sel := append([]int(nil), o.partition.Selected()...)
	for _, a := range sel {
		if o.stopped() {
			break
		}
		currentCost := o.cost()
		trialCost, err := o.evalRemove(a)
		if err != nil {
			return Result{}, err
		}
		if currentCost-trialCost >= -o.epsilon {
			if err := o.commitRemove(a); err != nil {
				return Result{}, err
			}
		}
	}
	return o.result(), nil
}

// runFFWBW implements FFWBW: alternates FFW and FBW passes, up
// to maxPasses times, shuffling the attribute order between passes.
func (o *Optimizer) runFFWBW(maxPasses int) (Result, error) {
	order := o.universe
	for pass := 0; pass < maxPasses; pass++ {
		if o.stopped() {
			break
		}
		if _, err := o.runFFWPass(order); err != nil {
			return Result{}, err
		}
		order = o.nextOrder()
		if o.stopped() {
			break
		}
		if _, err := o.runFBWPass(order); err != nil {
			return Result{}, err
		}
		order = o.nextOrder()
	}
	return o.result(), nil
}

// runMSFFWBW implements MS_FFWBW: the first start uses the
// natural order, subsequent starts reset the selection to empty and
// shuffle the order; each start runs FFWBW, keeping the best result found
// across starts that beats the running best by more than epsilon.
func (o *Optimizer) runMSFFWBW() (Result, error) {
	starts := o.numStarts()
	o.trace(1, "multi-start search: %d starts over %d attributes", starts, len(o.universe))

	order := o.universe
	best := Result{Cost: math.Inf(1)}
	for start := 0; start < starts; start++ {
		if o.stopped() {
			break
		}
		o.sink.OnProgress(start * 100 / starts)
		if start > 0 {
			for _, a := range o.partition.Selected() {
				if err := o.partition.RemoveAttribute(a); err != nil {
					return Result{}, err
				}
			}
			order = o.nextOrder()
			if o.metrics != nil {
				o.metrics.Restarts.Inc()
			}
		}
		savedOrder := o.universe
		o.universe = order
		res, err := o.runFFWBW(2)
		o.universe = savedOrder
		if err != nil {
			return Result{}, err
		}
		if best.Selected == nil || res.Cost < best.Cost-o.epsilon {
			best = res
			if o.metrics != nil {
				o.metrics.BestCost.Set(best.Cost)
			}
		}
	}
	// leave the partition holding the best selection found.
	return o.restoreSelection(best)
}

// numStarts computes MS_FFWBW start count: optimizationLevel-1
// (minimum 1) if configured, else ceil(log2(N+1) + log2(K+1)).
func (o *Optimizer) numStarts() int {
	if o.cfg.OptimizationLevel > 0 {
		if n := o.cfg.OptimizationLevel - 1; n > 0 {
			return n
		}
		return 1
	}
	n := float64(o.instanceCount)
	k := float64(len(o.universe))
	return int(math.Ceil(math.Log2(n+1) + math.Log2(k+1)))
}

// restoreSelection resets the partition to exactly best.Selected,
// undoing/redoing adds as needed, and returns best with weights
// finalized against the restored state.
func (o *Optimizer) restoreSelection(best Result) (Result, error) {
	for _, a := range o.partition.Selected() {
		if err := o.partition.RemoveAttribute(a); err != nil {
			return Result{}, err
		}
	}
	for _, a := range best.Selected {
		if err := o.partition.AddAttribute(a); err != nil {
			return Result{}, err
		}
	}
	return o.result(), nil
}

// runOPT implements OPT: exhaustive search over all 2^K subsets
// via single-bit Gray-code transitions, each step toggling exactly one
// attribute in or out.
func (o *Optimizer) runOPT() (Result, error) {
	k := len(o.universe)
	best := Result{Cost: math.Inf(1)}

	var prevGray uint64
	total := uint64(1) << uint(k)
	for i := uint64(0); i < total; i++ {
		if o.stopped() {
			break
		}
		gray := i ^ (i >> 1)
		if i > 0 {
			diff := gray ^ prevGray
			bit := 0
			for diff > 1 {
				diff >>= 1
				bit++
			}
			attr := o.universe[bit]
			if gray&(1<<uint(bit)) != 0 {
				if err := o.partition.AddAttribute(attr); err != nil {
					return Result{}, err
				}
			} else {
				if err := o.partition.RemoveAttribute(attr); err != nil {
					return Result{}, err
				}
			}
		}
		prevGray = gray
		if o.metrics != nil {
			o.metrics.AttributeEvaluations.Inc()
		}
		cost := o.cost()
		if cost < best.Cost {
			selected := append([]int(nil), o.partition.Selected()...)
			best = Result{Selected: selected, Cost: cost}
			if o.metrics != nil {
				o.metrics.BestCost.Set(cost)
			}
		}
	}
	return o.restoreSelection(best)
}

func (o *Optimizer) atMaxSelected() bool {
	max := o.cfg.MaxSelectedAttributeNumber
	return max > 0 && len(o.partition.Selected()) >= max
}
