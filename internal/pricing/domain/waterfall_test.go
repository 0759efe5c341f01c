package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeWaterfallKnownValues(t *testing.T) {
	w := ComputeWaterfall(100, 0.20, 0.03, 0.05, 30)

	assert.Equal(t, 80.0, w.InvoicePrice)
	assert.Equal(t, 2.4, w.GPOAdminFee)
	assert.Equal(t, 4.0, w.RebateAmount)
	assert.Equal(t, 73.6, w.LowestNetPrice)
	assert.Equal(t, 43.6, w.Margin)
	assert.Equal(t, 59.2, w.MarginPct)
	assert.Equal(t, 0.264, w.TotalDiscountPct)
}

func TestComputeWaterfallStagesReconcile(t *testing.T) {
	cases := []struct {
		list, discount, fee, rebate, cost float64
	}{
		{14999.99, 0.40, 0.03, 0.06, 5230.17},
		{500, 0.02, 0.015, 0.01, 180.55},
		{29.99, 0.12, 0.02, 0.035, 9.41},
		{2000, 0.33, 0.025, 0.045, 640},
	}

	for _, tc := range cases {
		w := ComputeWaterfall(tc.list, tc.discount, tc.fee, tc.rebate, tc.cost)
		assert.InDelta(t, Round2(w.InvoicePrice-w.GPOAdminFee-w.RebateAmount), w.LowestNetPrice, 1e-9)
		assert.InDelta(t, Round2(w.LowestNetPrice-w.UnitCost), w.Margin, 1e-9)
	}
}

func TestComputeWaterfallMarginPctZeroWhenNetNotPositive(t *testing.T) {
	// Fee and rebate rates large enough to push the net below zero.
	w := ComputeWaterfall(100, 0, 0.5, 0.6, 10)

	assert.Less(t, w.LowestNetPrice, 0.0)
	assert.Equal(t, 0.0, w.MarginPct)
}

func TestComputeWaterfallZeroListPrice(t *testing.T) {
	w := ComputeWaterfall(0, 0.2, 0.03, 0.05, 10)

	assert.Equal(t, 0.0, w.TotalDiscountPct)
	assert.Equal(t, 0.0, w.MarginPct)
}

func TestRoundingHelpers(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2349))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, 4.6, Round1(4.56))
	assert.Equal(t, 0.123, Round3(0.12345))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.02, Clamp(-0.5, 0.02, 0.40))
	assert.Equal(t, 0.40, Clamp(0.9, 0.02, 0.40))
	assert.Equal(t, 0.21, Clamp(0.21, 0.02, 0.40))
}
