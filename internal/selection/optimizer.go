// Package selection implements the attribute-selection optimizer: a
// greedy/exhaustive search over subsets of used attributes minimizing a
// MAP cost, with three pluggable target-partition cost managers
// (FixedClassifier, Regressor, GeneralizedClassifier) that maintain their
// per-instance scores incrementally. The search loop is single-threaded
// and cooperative: every evaluation polls a cancel.Token and reports to
// an optional metrics.Optimizer.
package selection

import (
	"math"
	"math/rand"

	"github.com/arxos/snbgrid/internal/cancel"
	"github.com/arxos/snbgrid/internal/config"
	"github.com/arxos/snbgrid/internal/logger"
	"github.com/arxos/snbgrid/internal/metrics"
	"github.com/arxos/snbgrid/internal/snberr"
)

// Result is the outcome of a completed or cancelled search.
type Result struct {
	Selected []int
	Cost     float64
	Weights  map[int]float64
}

// AttributeOrderer supplies the evaluation order of used attributes.
// colstore.Store satisfies it: its shuffle permutes whole chunks first,
// then columns within each chunk, so the optimizer's random-order passes
// stay cache-coherent against the on-disk chunk layout.
type AttributeOrderer interface {
	ShuffleUsedAttributes(rng *rand.Rand)
	RestoreUsedAttributes()
	UsedAttributeCount() int
	AttributeIndexAt(i int) int
}

// Optimizer runs the configured attribute-selection search.
type Optimizer struct {
	cfg       *config.SelectionConfig
	partition TargetPartition
	weightMgr *WeightManager
	metrics   *metrics.Optimizer
	token     *cancel.Token
	sink      cancel.ProgressSink
	orderer   AttributeOrderer
	rng       *rand.Rand

	initialAttributeCount int
	instanceCount         int
	attrCosts             map[int]*AttrCost // optional, nil entries fall back
	nullPreparationCost   float64

	universe []int // all selectable attribute indices, natural order
	epsilon  float64
}

// New creates an Optimizer over universe (all selectable attribute
// indices), bound to partition's incremental cost machinery. instanceCount
// is N in the epsilon and weight-zeroing formulas below.
func New(cfg *config.SelectionConfig, partition TargetPartition, universe []int, instanceCount int, weightMethod WeightMethod, m *metrics.Optimizer, tok *cancel.Token, rng *rand.Rand) *Optimizer {
	if cfg == nil {
		cfg = config.DefaultSelectionConfig()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	u := make([]int, len(universe))
	copy(u, universe)
	if max := cfg.MaxEvaluatedAttributeNumber; max > 0 && len(u) > max {
		// universe arrives in natural order (by univariate importance), so
		// capping evaluation keeps the most promising prefix.
		u = u[:max]
	}
	o := &Optimizer{
		cfg:                   cfg,
		partition:             partition,
		metrics:               m,
		token:                 tok,
		sink:                  cancel.NoopSink{},
		rng:                   rng,
		initialAttributeCount: len(universe),
		instanceCount:         instanceCount,
		attrCosts:             map[int]*AttrCost{},
		universe:              u,
	}
	initialCost := o.cost()
	o.epsilon = (1 + math.Abs(initialCost)) * 1e-2 / (1 + float64(instanceCount))
	o.weightMgr = NewWeightManager(weightMethod, initialCost, instanceCount)
	return o
}

// SetAttrCost registers the optional per-attribute construction/
// preparation cost for attrIdx.
func (o *Optimizer) SetAttrCost(attrIdx int, c *AttrCost) { o.attrCosts[attrIdx] = c }

// SetNullPreparationCost registers the preparation cost charged to the
// empty selection in place of the selection code.
func (o *Optimizer) SetNullPreparationCost(c float64) { o.nullPreparationCost = c }

// SetProgressSink replaces the optimizer's progress sink (NoopSink by
// default).
func (o *Optimizer) SetProgressSink(sink cancel.ProgressSink) {
	if sink != nil {
		o.sink = sink
	}
}

// SetAttributeOrderer routes the search's shuffled evaluation orders
// through the column store's chunk-coherent attribute shuffle instead of
// a plain slice shuffle. The store's order is restored when Optimize
// returns.
func (o *Optimizer) SetAttributeOrderer(orderer AttributeOrderer) { o.orderer = orderer }

// nextOrder returns a fresh shuffled evaluation order over the universe,
// chunk-coherent when an orderer is wired.
func (o *Optimizer) nextOrder() []int {
	if o.orderer == nil {
		return shuffled(o.rng, o.universe)
	}
	o.orderer.ShuffleUsedAttributes(o.rng)
	in := make(map[int]bool, len(o.universe))
	for _, a := range o.universe {
		in[a] = true
	}
	out := make([]int, 0, len(o.universe))
	for i := 0; i < o.orderer.UsedAttributeCount(); i++ {
		if a := o.orderer.AttributeIndexAt(i); in[a] {
			out = append(out, a)
		}
	}
	return out
}

// trace emits a level-gated search-trace line.
func (o *Optimizer) trace(level int, format string, args ...interface{}) {
	if o.cfg.TraceLevel >= level {
		logger.Info(format, args...)
	}
}

// cost returns cost(S) for the partition's current selection.
func (o *Optimizer) cost() float64 {
	selected := o.partition.Selected()
	total := modelCost(o.cfg.PriorWeight, len(selected), o.nullPreparationCost)
	for _, a := range selected {
		total += attrModelCost(o.cfg.PriorWeight, o.cfg.ConstructionCost, o.cfg.PreparationCost, o.initialAttributeCount, o.attrCosts[a])
	}
	total += o.partition.DataCost()
	return total
}

func (o *Optimizer) stopped() bool {
	return o.token.IsInterruptionRequested()
}

func (o *Optimizer) selectedSet() map[int]bool {
	set := map[int]bool{}
	for _, a := range o.partition.Selected() {
		set[a] = true
	}
	return set
}

func (o *Optimizer) unselected() []int {
	in := o.selectedSet()
	var out []int
	for _, a := range o.universe {
		if !in[a] {
			out = append(out, a)
		}
	}
	return out
}

// evalAdd trial-adds attrIdx, records the resulting cost, then always
// undoes the mutation — the caller commits separately if it decides to
// keep the move. This keeps the partition's in-place score vectors
// consistent with property 9 (add;remove is a no-op at the score level).
func (o *Optimizer) evalAdd(attrIdx int) (float64, error) {
	if err := o.partition.AddAttribute(attrIdx); err != nil {
		return 0, err
	}
	if o.metrics != nil {
		o.metrics.AttributeEvaluations.Inc()
	}
	c := o.cost()
	if err := o.partition.RemoveAttribute(attrIdx); err != nil {
		return 0, err
	}
	o.weightMgr.OnAdd(o.partition.Selected(), attrIdx, c)
	return c, nil
}

func (o *Optimizer) evalRemove(attrIdx int) (float64, error) {
	if err := o.partition.RemoveAttribute(attrIdx); err != nil {
		return 0, err
	}
	if o.metrics != nil {
		o.metrics.AttributeEvaluations.Inc()
	}
	c := o.cost()
	if err := o.partition.AddAttribute(attrIdx); err != nil {
		return 0, err
	}
	o.weightMgr.OnRemove(o.partition.Selected(), attrIdx, c)
	return c, nil
}

func (o *Optimizer) commitAdd(attrIdx int) error {
	if err := o.partition.AddAttribute(attrIdx); err != nil {
		return err
	}
	if o.metrics != nil {
		o.metrics.AcceptedAdds.Inc()
	}
	o.trace(2, "accepted add of attribute %d (selection size %d)", attrIdx, len(o.partition.Selected()))
	return nil
}

func (o *Optimizer) commitRemove(attrIdx int) error {
	if err := o.partition.RemoveAttribute(attrIdx); err != nil {
		return err
	}
	if o.metrics != nil {
		o.metrics.AcceptedRemoves.Inc()
	}
	o.trace(2, "accepted remove of attribute %d (selection size %d)", attrIdx, len(o.partition.Selected()))
	return nil
}

// result packages the current selection, cost, and finalized weights.
func (o *Optimizer) result() Result {
	cost := o.cost()
	o.weightMgr.SetFinalCost(cost)
	selected := o.partition.Selected()
	if o.cfg.TraceSelectedAttributes {
		logger.Info("selected attributes: %v (cost %.6f)", selected, cost)
	}
	return Result{Selected: selected, Cost: cost, Weights: o.weightMgr.Finalize()}
}

// Optimize runs the configured algorithm and returns the best
// selection found, honoring cancellation at every attribute evaluation.
func (o *Optimizer) Optimize() (Result, error) {
	cfg := o.cfg
	o.sink.OnMainLabel("attribute selection (" + string(cfg.OptimizationAlgorithm) + ")")
	if o.orderer != nil {
		defer o.orderer.RestoreUsedAttributes()
	}
	switch cfg.OptimizationAlgorithm {
	case config.AlgoFW:
		return o.runFW()
	case config.AlgoFWBW:
		return o.runFWBW()
	case config.AlgoFFW:
		return o.runFFWPass(o.universe)
	case config.AlgoFBW:
		return o.runFBWPass(o.universe)
	case config.AlgoFFWBW:
		return o.runFFWBW(2)
	case config.AlgoMSFFWBW:
		return o.runMSFFWBW()
	case config.AlgoOPT:
		if len(o.universe) > 25 {
			logger.Warn("OPT requires K <= 25 (got %d), falling back to MS_FFWBW", len(o.universe))
			return o.runMSFFWBW()
		}
		return o.runOPT()
	default:
		return Result{}, snberr.New(snberr.CodeConfiguration, "unknown optimization algorithm "+string(cfg.OptimizationAlgorithm))
	}
}

// WeightMethodFor maps the configured selection criterion to its
// model-averaging weight scheme: MAP records nothing, MA weights by
// predictor probability, CMA by compression rate.
func WeightMethodFor(criterion config.Criterion) WeightMethod {
	switch criterion {
	case config.CriterionMA:
		return WeightPredictorProb
	case config.CriterionCMA:
		return WeightPredictorCompressionRate
	default:
		return WeightNone
	}
}

func shuffled(rng *rand.Rand, in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
