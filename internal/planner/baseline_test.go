package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedianOfOdd(t *testing.T) {
	assert.Equal(t, 3.0, medianOf([]float64{5, 1, 3, 2, 4}))
}

func TestMedianOfEven(t *testing.T) {
	assert.Equal(t, 2.5, medianOf([]float64{1, 2, 3, 4}))
}

func TestMedianOfEmpty(t *testing.T) {
	assert.Equal(t, 0.0, medianOf(nil))
}

func TestMadOfConstant(t *testing.T) {
	values := []float64{50, 50, 50, 50}
	center := medianOf(values)
	assert.Equal(t, 0.0, madOf(values, center))
}

func TestBaselineStatsZeroSigmaWhenFlat(t *testing.T) {
	baseline, sigma := baselineStats([]float64{50, 50, 50, 50, 50})
	assert.Equal(t, 50.0, baseline)
	assert.Equal(t, 0.0, sigma)
}

func TestBaselineStatsWithSpread(t *testing.T) {
	baseline, sigma := baselineStats([]float64{40, 45, 50, 55, 60})
	assert.Equal(t, 50.0, baseline)
	assert.Greater(t, sigma, 0.0)
}
