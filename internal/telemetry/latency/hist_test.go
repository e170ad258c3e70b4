package latency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentileLinearInterpolation(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	// index = 0.95 * 9 = 8.55 -> between values[8]=90 and values[9]=100
	p95 := Percentile(values, 0.95)
	assert.InDelta(t, 95.5, p95, 0.001)
}

func TestPercentileSingleValue(t *testing.T) {
	assert.Equal(t, 42.0, Percentile([]float64{42}, 0.95))
}

func TestPercentileEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 0.95))
}

func TestAverage(t *testing.T) {
	assert.InDelta(t, 20.0, Average([]float64{10, 20, 30}), 0.001)
	assert.Equal(t, 0.0, Average(nil))
}
