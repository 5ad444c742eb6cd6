package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelCostZeroAttributesUsesNullPreparationCost(t *testing.T) {
	c := modelCost(0.25, 0, 1.0)
	assert.InDelta(t, 0.25*(nullConstructionCostNats+1.0), c, 1e-9)
}

func TestUniversalIntegerCodeGrowsWithSelectionSize(t *testing.T) {
	// modelCost itself is not monotone in m: its -logFactorial(m) term
	// outgrows the universal code, so only the code's growth is checked.
	c1 := modelCost(0.25, 1, 0)
	c5 := modelCost(0.25, 5, 0)
	assert.Greater(t, universalIntegerCode(5), universalIntegerCode(1))
	_ = c1
	_ = c5
}

func TestUniversalIntegerCodeIsZeroAtZero(t *testing.T) {
	assert.Equal(t, 0.0, universalIntegerCode(0))
	assert.Greater(t, universalIntegerCode(1), 0.0)
}

func TestLogFactorialMatchesKnownValues(t *testing.T) {
	assert.InDelta(t, 0.0, logFactorial(0), 1e-9)
	assert.InDelta(t, 0.0, logFactorial(1), 1e-9)
	// ln(5!) = ln(120)
	assert.InDelta(t, 4.787491742782046, logFactorial(5), 1e-6)
}

func TestAttrModelCostFallsBackToLogInitialAttributeCount(t *testing.T) {
	c := attrModelCost(1.0, true, false, 10, nil)
	assert.Greater(t, c, 0.0)
}

func TestAttrModelCostZeroWhenBothTogglesOff(t *testing.T) {
	c := attrModelCost(1.0, false, false, 10, &AttrCost{Construction: 5, Preparation: 3})
	assert.Equal(t, 0.0, c)
}

func TestAttrModelCostUsesSuppliedCosts(t *testing.T) {
	c := attrModelCost(1.0, true, true, 10, &AttrCost{Construction: 5, NullConstruction: 1, Preparation: 2})
	assert.InDelta(t, (5-1)+2, c, 1e-9)
}
