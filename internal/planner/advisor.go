package planner

import (
	"context"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
)

// AdvisorRequest is everything the oracle needs to recommend an action.
type AdvisorRequest struct {
	P95MS         float64
	BaselineMS    float64
	SigmaMS       float64
	PctOfBaseline float64
	LowWindows    []bool
	Replicas      int
	MinReplicas   int
	MaxReplicas   int
	CooldownOK    bool
	HaveBaseline  bool
	AlphaUp       float64
	BetaDown      float64
	KSigma        float64
}

// AdvisorOutcome distinguishes a real oracle verdict from one of the
// well-understood refusal/failure modes so the engine can pick the right
// reason suffix without string-sniffing an error.
type AdvisorOutcome int

const (
	OutcomeSuccess AdvisorOutcome = iota
	OutcomeRateLimited
	OutcomeParseFailure
	OutcomeCallFailure
)

// AdvisorResponse wraps the decision plus enough context for the engine
// to update backoff state and choose a reason suffix on non-success
// outcomes.
type AdvisorResponse struct {
	Decision      busmsg.Decision
	Outcome       AdvisorOutcome
	Err           error
	RetryAfterSec int // only meaningful when Outcome == OutcomeRateLimited
}

// Advisor is the pluggable oracle interface: a single
// method hides the transport, the circuit breaker, and the fallback
// decision from the engine.
type Advisor interface {
	Advise(ctx context.Context, req AdvisorRequest) AdvisorResponse
}

// HeuristicAdvisor always answers with the deterministic fallback; it is
// the Advisor used when no oracle is configured at all.
type HeuristicAdvisor struct {
	AlphaUp     float64
	LowNeedN    int
	MinReplicas int
	MaxReplicas int
}

func (h HeuristicAdvisor) Advise(_ context.Context, req AdvisorRequest) AdvisorResponse {
	decision := Heuristic(HeuristicInputs{
		P95MS:        req.P95MS,
		Baseline:     req.BaselineMS,
		Sigma:        req.SigmaMS,
		Replicas:     req.Replicas,
		HaveBaseline: req.HaveBaseline,
		LowFlags:     req.LowWindows,
		AlphaUp:      h.AlphaUp,
		LowNeedN:     h.LowNeedN,
		MinReplicas:  h.MinReplicas,
		MaxReplicas:  h.MaxReplicas,
	})
	return AdvisorResponse{Decision: decision, Outcome: OutcomeSuccess}
}

// MockAdvisor is a test double returning a scripted sequence of
// responses, one per call; the last response repeats once the script is
// exhausted.
type MockAdvisor struct {
	Responses []AdvisorResponse
	calls     int
}

func (m *MockAdvisor) Advise(_ context.Context, _ AdvisorRequest) AdvisorResponse {
	if len(m.Responses) == 0 {
		return AdvisorResponse{Decision: busmsg.Decision{Action: busmsg.ActionNoop, Reason: "mock"}, Outcome: OutcomeSuccess}
	}
	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[idx]
}

// Calls reports how many times Advise was invoked.
func (m *MockAdvisor) Calls() int { return m.calls }
