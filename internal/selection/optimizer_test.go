package selection

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxos/snbgrid/internal/cancel"
	"github.com/arxos/snbgrid/internal/colstore"
	"github.com/arxos/snbgrid/internal/config"
)

// fixedRowIterator replays a fixed slice of pre-built rows.
type fixedRowIterator struct {
	rows [][]int32
	idx  int
}

func (it *fixedRowIterator) Next(out []int32) (bool, error) {
	if it.idx >= len(it.rows) {
		return false, nil
	}
	copy(out, it.rows[it.idx])
	it.idx++
	return true, nil
}

// buildTwoAttributeStore prepares N instances, 2 attributes, target J=2:
// attr0 is perfectly informative (its recoding index always equals the
// target index), attr1 is pure noise with a single constant value.
func buildTwoAttributeStore(t *testing.T, n int) *colstore.Store {
	t.Helper()
	s := colstore.New(config.DefaultStoreConfig(), cancel.New(0), nil)
	log99, log01 := math.Log(0.99), math.Log(0.01)
	attrs := []*colstore.PreparedAttribute{
		{Name: "informative", PartCount: 2, ConditionalLnProbs: [][]float64{
			{log99, log01},
			{log01, log99},
		}},
		{Name: "noise", PartCount: 1, ConditionalLnProbs: [][]float64{
			{0, 0},
		}},
	}
	require.NoError(t, s.SetUsedAttributes(attrs))

	rows := make([][]int32, n)
	for i := 0; i < n; i++ {
		target := int32(i % 2)
		rows[i] = []int32{target + 1, 1, target + 1}
	}
	require.NoError(t, s.ComputePreparedData(&fixedRowIterator{rows: rows}, n))
	return s
}

func TestFixedClassifierDataCostLowerWithInformativeAttribute(t *testing.T) {
	n := 20
	s := buildTwoAttributeStore(t, n)

	withInformative := NewFixedClassifier(s, 2, n)
	require.NoError(t, withInformative.AddAttribute(0))
	costInformative := withInformative.DataCost()

	withNoise := NewFixedClassifier(s, 2, n)
	require.NoError(t, withNoise.AddAttribute(1))
	costNoise := withNoise.DataCost()

	assert.Less(t, costInformative, costNoise)
}

func TestAddThenRemoveRestoresDataCost(t *testing.T) {
	n := 20
	s := buildTwoAttributeStore(t, n)
	fc := NewFixedClassifier(s, 2, n)

	before := fc.DataCost()
	require.NoError(t, fc.AddAttribute(0))
	require.NoError(t, fc.RemoveAttribute(0))
	after := fc.DataCost()

	assert.InDelta(t, before, after, 1e-9)
	assert.NoError(t, fc.Check())
}

func TestFWSelectsTheInformativeAttribute(t *testing.T) {
	n := 20
	s := buildTwoAttributeStore(t, n)
	fc := NewFixedClassifier(s, 2, n)
	cfg := &config.SelectionConfig{OptimizationAlgorithm: config.AlgoFW, SelectionCriterion: config.CriterionMAP, PriorWeight: 0.25}

	opt := New(cfg, fc, []int{0, 1}, n, WeightNone, nil, cancel.New(0), rand.New(rand.NewSource(1)))
	res, err := opt.Optimize()
	require.NoError(t, err)

	assert.Contains(t, res.Selected, 0)
	assert.NotContains(t, res.Selected, 1)
}

func TestOPTAndMSFFWBWAgreeOnSmallUniverse(t *testing.T) {
	n := 20
	s := buildTwoAttributeStore(t, n)

	fcOPT := NewFixedClassifier(s, 2, n)
	cfgOPT := &config.SelectionConfig{OptimizationAlgorithm: config.AlgoOPT, SelectionCriterion: config.CriterionMAP, PriorWeight: 0.25}
	optOPT := New(cfgOPT, fcOPT, []int{0, 1}, n, WeightNone, nil, cancel.New(0), rand.New(rand.NewSource(1)))
	resOPT, err := optOPT.Optimize()
	require.NoError(t, err)

	fcMS := NewFixedClassifier(s, 2, n)
	cfgMS := &config.SelectionConfig{OptimizationAlgorithm: config.AlgoMSFFWBW, SelectionCriterion: config.CriterionMAP, PriorWeight: 0.25, OptimizationLevel: 8}
	optMS := New(cfgMS, fcMS, []int{0, 1}, n, WeightNone, nil, cancel.New(0), rand.New(rand.NewSource(2)))
	optMS.SetAttributeOrderer(s) // restart shuffles go through the store's chunk-coherent order
	resMS, err := optMS.Optimize()
	require.NoError(t, err)

	assert.InDelta(t, resOPT.Cost, resMS.Cost, optOPT.epsilon)
}

func TestCancellationReturnsBestAcceptedSoFar(t *testing.T) {
	n := 20
	s := buildTwoAttributeStore(t, n)
	fc := NewFixedClassifier(s, 2, n)
	cfg := &config.SelectionConfig{OptimizationAlgorithm: config.AlgoFW, SelectionCriterion: config.CriterionMAP, PriorWeight: 0.25}

	tok := cancel.New(0)
	opt := New(cfg, fc, []int{0, 1}, n, WeightNone, nil, tok, rand.New(rand.NewSource(1)))
	tok.Cancel()
	res, err := opt.Optimize()
	require.NoError(t, err)

	assert.NoError(t, fc.Check())
	// With the flag already set before the first evaluation, nothing is
	// accepted and the selection stays empty.
	assert.Empty(t, res.Selected)
}
