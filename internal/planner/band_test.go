package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBandInitWhenNoBaseline(t *testing.T) {
	assert.Equal(t, BandInit, ClassifyBand(10, 0))
	assert.Equal(t, BandInit, ClassifyBand(10, -1))
}

func TestClassifyBandThresholds(t *testing.T) {
	assert.Equal(t, BandVeryHigh, ClassifyBand(8.0, 100))
	assert.Equal(t, BandHigh, ClassifyBand(3.0, 100))
	assert.Equal(t, BandMid, ClassifyBand(1.5, 100))
	assert.Equal(t, BandNear, ClassifyBand(0.9, 100))
	assert.Equal(t, BandLow, ClassifyBand(0.5, 100))
}

func TestMakeBandKeyChangesWithReplicasAndFlags(t *testing.T) {
	k1 := MakeBandKey(BandLow, 2, []bool{true, true, false})
	k2 := MakeBandKey(BandLow, 3, []bool{true, true, false})
	k3 := MakeBandKey(BandLow, 2, []bool{true, true, true})
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)

	k4 := MakeBandKey(BandLow, 2, []bool{true, true, false})
	assert.Equal(t, k1, k4)
}
