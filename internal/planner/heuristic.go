package planner

import (
	"fmt"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
)

// HeuristicInputs bundles the values the deterministic fallback needs,
// decoupled from PlannerState so it can be unit tested without a full
// engine.
type HeuristicInputs struct {
	P95MS        float64
	Baseline     float64
	Sigma        float64
	Replicas     int
	HaveBaseline bool
	LowFlags     []bool
	AlphaUp      float64
	LowNeedN     int
	MinReplicas  int
	MaxReplicas  int
}

// Heuristic is the deterministic fallback used whenever the oracle is
// unavailable, refused by a safety gate, or returns an unparseable
// response — the degraded path that keeps the
// system making decisions without its most informed collaborator.
func Heuristic(in HeuristicInputs) busmsg.Decision {
	if !in.HaveBaseline {
		return busmsg.Decision{Action: busmsg.ActionNoop, Reason: "warming"}
	}

	ratio := 0.0
	if in.Baseline > 0 {
		ratio = in.P95MS / in.Baseline
	}
	denom := in.Sigma
	if denom < 1 {
		denom = 1
	}
	z := (in.P95MS - in.Baseline) / denom

	if (ratio >= in.AlphaUp || z >= 6.0) && in.Replicas < in.MaxReplicas {
		return busmsg.Decision{
			Action: busmsg.ActionScaleUp,
			Reason: fmt.Sprintf("%.1fx baseline", ratio),
		}
	}

	if len(in.LowFlags) == in.LowNeedN && allTrue(in.LowFlags) && in.Replicas > in.MinReplicas {
		return busmsg.Decision{
			Action: busmsg.ActionScaleDown,
			Reason: fmt.Sprintf("near baseline for %dw", in.LowNeedN),
		}
	}

	return busmsg.Decision{Action: busmsg.ActionNoop, Reason: "heuristic"}
}

func allTrue(flags []bool) bool {
	if len(flags) == 0 {
		return false
	}
	for _, f := range flags {
		if !f {
			return false
		}
	}
	return true
}
