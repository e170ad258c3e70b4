package planner

import (
	"testing"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
	"github.com/stretchr/testify/assert"
)

func baseInputs() HeuristicInputs {
	return HeuristicInputs{
		P95MS:        100,
		Baseline:     100,
		Sigma:        10,
		Replicas:     3,
		HaveBaseline: true,
		LowFlags:     []bool{false, false, false},
		AlphaUp:      8.0,
		LowNeedN:     3,
		MinReplicas:  2,
		MaxReplicas:  10,
	}
}

func TestHeuristicWarmingWhenNoBaseline(t *testing.T) {
	in := baseInputs()
	in.HaveBaseline = false
	d := Heuristic(in)
	assert.Equal(t, busmsg.ActionNoop, d.Action)
	assert.Equal(t, "warming", d.Reason)
}

func TestHeuristicScaleUpOnRatio(t *testing.T) {
	in := baseInputs()
	in.P95MS = 2400 // ratio 24x
	d := Heuristic(in)
	assert.Equal(t, busmsg.ActionScaleUp, d.Action)
	assert.Equal(t, "24.0x baseline", d.Reason)
}

func TestHeuristicScaleUpOnZScore(t *testing.T) {
	in := baseInputs()
	in.Baseline = 100
	in.Sigma = 5
	in.P95MS = 140 // z = (140-100)/5 = 8 >= 6
	d := Heuristic(in)
	assert.Equal(t, busmsg.ActionScaleUp, d.Action)
}

func TestHeuristicNoScaleUpAtMaxReplicas(t *testing.T) {
	in := baseInputs()
	in.P95MS = 2400
	in.Replicas = in.MaxReplicas
	d := Heuristic(in)
	assert.NotEqual(t, busmsg.ActionScaleUp, d.Action)
}

func TestHeuristicScaleDownWhenAllLow(t *testing.T) {
	in := baseInputs()
	in.LowFlags = []bool{true, true, true}
	d := Heuristic(in)
	assert.Equal(t, busmsg.ActionScaleDown, d.Action)
	assert.Equal(t, "near baseline for 3w", d.Reason)
}

func TestHeuristicNoScaleDownAtMinReplicas(t *testing.T) {
	in := baseInputs()
	in.LowFlags = []bool{true, true, true}
	in.Replicas = in.MinReplicas
	d := Heuristic(in)
	assert.Equal(t, busmsg.ActionNoop, d.Action)
}

func TestHeuristicNoScaleDownWhenFlagsIncomplete(t *testing.T) {
	in := baseInputs()
	in.LowFlags = []bool{true, true}
	d := Heuristic(in)
	assert.Equal(t, busmsg.ActionNoop, d.Action)
}

func TestHeuristicDefaultNoop(t *testing.T) {
	d := Heuristic(baseInputs())
	assert.Equal(t, busmsg.ActionNoop, d.Action)
	assert.Equal(t, "heuristic", d.Reason)
}
