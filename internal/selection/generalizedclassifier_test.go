package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arxos/snbgrid/internal/cancel"
	"github.com/arxos/snbgrid/internal/colstore"
	"github.com/arxos/snbgrid/internal/config"
)

func TestGeneralizedClassifierGroupsBySignature(t *testing.T) {
	n := 20
	s := buildTwoAttributeStore(t, n)
	gc := NewGeneralizedClassifier(s, 2, n)

	before := gc.DataCost()
	require.NoError(t, gc.AddAttribute(0))
	after := gc.DataCost()

	assert.Less(t, after, before)
	assert.NoError(t, gc.Check())

	require.NoError(t, gc.RemoveAttribute(0))
	assert.InDelta(t, before, gc.DataCost(), 1e-9)
}

func TestGeneralizedClassifierRejectsDoubleAdd(t *testing.T) {
	n := 10
	s := buildTwoAttributeStore(t, n)
	gc := NewGeneralizedClassifier(s, 2, n)
	require.NoError(t, gc.AddAttribute(0))
	assert.Error(t, gc.AddAttribute(0))
}

// buildRegressionStore prepares n instances with a rank target: instance
// i's target index is its rank i. attr0's univariate target partition
// splits the ranks in two halves and its recoding tracks the half, attr1
// is a single uninformative part spanning every rank.
func buildRegressionStore(t *testing.T, n int) *colstore.Store {
	t.Helper()
	s := colstore.New(config.DefaultStoreConfig(), cancel.New(0), nil)
	log99, log01 := math.Log(0.99), math.Log(0.01)
	half := int64(n / 2)
	attrs := []*colstore.PreparedAttribute{
		{Name: "halves", PartCount: 2, TargetPartFrequencies: []int64{half, int64(n) - half},
			ConditionalLnProbs: [][]float64{
				{log99, log01},
				{log01, log99},
			}},
		{Name: "flat", PartCount: 1, TargetPartFrequencies: []int64{int64(n)},
			ConditionalLnProbs: [][]float64{
				{0},
			}},
	}
	require.NoError(t, s.SetUsedAttributes(attrs))

	rows := make([][]int32, n)
	for i := 0; i < n; i++ {
		part := int32(1)
		if int64(i) >= half {
			part = 2
		}
		rows[i] = []int32{part, 1, int32(i + 1)}
	}
	require.NoError(t, s.ComputePreparedData(&fixedRowIterator{rows: rows}, n))
	return s
}

func TestRegressorRefinesOnAddAndMergesOnRemove(t *testing.T) {
	n := 20
	s := buildRegressionStore(t, n)
	reg := NewRegressor(s, n)
	require.NoError(t, reg.Check())
	assert.Equal(t, 1, reg.IntervalCount())
	before := reg.DataCost()

	require.NoError(t, reg.AddAttribute(0))
	require.NoError(t, reg.Check())
	assert.Equal(t, 2, reg.IntervalCount())
	assert.Less(t, reg.DataCost(), before)

	// the flat attribute's only bound coincides with the final one, so
	// the partition does not grow.
	require.NoError(t, reg.AddAttribute(1))
	require.NoError(t, reg.Check())
	assert.Equal(t, 2, reg.IntervalCount())

	require.NoError(t, reg.RemoveAttribute(0))
	require.NoError(t, reg.Check())
	assert.Equal(t, 1, reg.IntervalCount())

	require.NoError(t, reg.RemoveAttribute(1))
	require.NoError(t, reg.Check())
	assert.Equal(t, 1, reg.IntervalCount())
	assert.InDelta(t, before, reg.DataCost(), 1e-9)
}

func TestRegressorAddThenRemoveRestoresDataCost(t *testing.T) {
	n := 20
	s := buildRegressionStore(t, n)
	reg := NewRegressor(s, n)
	before := reg.DataCost()
	require.NoError(t, reg.AddAttribute(0))
	require.NoError(t, reg.RemoveAttribute(0))
	assert.InDelta(t, before, reg.DataCost(), 1e-9)
	assert.NoError(t, reg.Check())
}

func TestRegressorRejectsAttributeWithoutTargetPartition(t *testing.T) {
	n := 20
	s := buildTwoAttributeStore(t, n) // classification attrs, no target part frequencies
	reg := NewRegressor(s, n)
	assert.Error(t, reg.AddAttribute(0))
}

func TestWeightManagerPredictorProbNormalizesToOne(t *testing.T) {
	n := 20
	s := buildTwoAttributeStore(t, n)
	fc := NewFixedClassifier(s, 2, n)
	cfg := &config.SelectionConfig{OptimizationAlgorithm: config.AlgoFFW, SelectionCriterion: config.CriterionMA, PriorWeight: 0.25}

	opt := New(cfg, fc, []int{0, 1}, n, WeightPredictorProb, nil, cancel.New(0), nil)
	res, err := opt.Optimize()
	require.NoError(t, err)

	if len(res.Weights) > 0 {
		sum := 0.0
		for _, w := range res.Weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}
