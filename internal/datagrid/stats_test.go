package datagrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceEntropyOfUniformGridIsLog2N(t *testing.T) {
	g := Initialize(1, 0)
	a, _ := g.AddAttribute()
	_ = g.SetAttributeName(a, "A")
	_ = g.SetAttributeType(a, Continuous, nil)
	p1 := a.AddContinuousPart(NegInf, 0, false)
	p2 := a.AddContinuousPart(0, PosInf, false)
	_ = a.BuildIndex()

	_ = g.SetCellUpdateMode(true)
	c1, _ := g.AddCell([]*Part{p1})
	c1.AddFrequency(5, -1)
	c2, _ := g.AddCell([]*Part{p2})
	c2.AddFrequency(5, -1)
	_ = g.SetCellUpdateMode(false)

	assert.InDelta(t, 1.0, g.SourceEntropy(), 1e-9)
}

func TestTargetEntropyOfBinaryTargetIsBetweenZeroAndOne(t *testing.T) {
	g := buildBinaryGrid(t)
	h := g.TargetEntropy()
	assert.GreaterOrEqual(t, h, 0.0)
	assert.LessOrEqual(t, h, 1.0)
}

func TestMutualEntropyNonNegative(t *testing.T) {
	g := buildBinaryGrid(t)
	assert.GreaterOrEqual(t, g.MutualEntropy(), 0.0)
}

func TestEntropyOfEmptyGridIsZero(t *testing.T) {
	g := Initialize(1, 0)
	assert.Equal(t, 0.0, g.SourceEntropy())
	assert.Equal(t, 0.0, g.TargetEntropy())
}
