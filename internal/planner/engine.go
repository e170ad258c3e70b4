package planner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
	"github.com/sawpanic/agentic-autoscaler/internal/config"
	"github.com/sawpanic/agentic-autoscaler/internal/metrics"
)

// EngineConfig is the tunable surface the Engine needs, a narrowed view
// of config.PlannerConfig plus the target container identifier.
type EngineConfig struct {
	Target          string
	CooldownSec     int
	MinReplicas     int
	MaxReplicas     int
	HistWindows     int
	WarmupWindows   int
	LowNeedN        int
	AlphaUp         float64
	BetaDown        float64
	KSigma          float64
	IdleHintMS      float64
	LLMRPM          int
	LLMHeartbeatSec int
	LLMBackoffBase  int
	LLMBackoffMax   int
	HasOracle       bool
}

// NewEngineConfig narrows a config.PlannerConfig into an EngineConfig.
func NewEngineConfig(target string, cfg config.PlannerConfig) EngineConfig {
	return EngineConfig{
		Target:          target,
		CooldownSec:     cfg.CooldownSec,
		MinReplicas:     cfg.MinReplicas,
		MaxReplicas:     cfg.MaxReplicas,
		HistWindows:     cfg.HistWindows,
		WarmupWindows:   cfg.WarmupWindows,
		LowNeedN:        cfg.LowNeedN,
		AlphaUp:         cfg.AlphaUp,
		BetaDown:        cfg.BetaDown,
		KSigma:          cfg.KSigma,
		IdleHintMS:      cfg.IdleHintMS,
		LLMRPM:          cfg.LLMRPM,
		LLMHeartbeatSec: cfg.LLMHeartbeatSec,
		LLMBackoffBase:  cfg.LLMBackoffBase,
		LLMBackoffMax:   cfg.LLMBackoffMax,
		HasOracle:       cfg.HasOracle(),
	}
}

// Clock abstracts wall time and jitter so tests can drive the engine
// deterministically, the same injectable-clock idiom used anywhere timing
// tests.
type Clock interface {
	Now() time.Time
	Jitter(lo, hi float64) float64
}

// SystemClock is the production Clock: real time, real randomness.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
func (SystemClock) Jitter(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

// Engine is the planner's decision engine, the single
// owner of PlannerState, consuming one LatencyWindow at a time and
// producing one PlanEnvelope per window.
type Engine struct {
	cfg     EngineConfig
	state   *PlannerState
	advisor Advisor
	clock   Clock
}

// NewEngine wires an Engine. advisor is the oracle-backed Advisor to try
// first when HasOracle is true; a HeuristicAdvisor is used directly when
// it is false.
func NewEngine(cfg EngineConfig, advisor Advisor, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	now := clock.Now()
	return &Engine{
		cfg:     cfg,
		state:   NewPlannerState(cfg.HistWindows, cfg.LowNeedN, cfg.LLMRPM, now),
		advisor: advisor,
		clock:   clock,
	}
}

// Decide processes one LatencyWindow and returns the PlanEnvelope to
// publish. It is the only method that mutates Engine's PlannerState.
func (e *Engine) Decide(ctx context.Context, w busmsg.LatencyWindow) busmsg.PlanEnvelope {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	now := e.clock.Now()

	// rolling baseline and dispersion.
	e.state.p95History.push(w.P95MS)
	e.state.replicas = w.Replicas
	history := e.state.p95History.snapshot()
	baseline, sigma := baselineStats(history)
	haveBaseline := len(history) >= e.cfg.WarmupWindows
	if !haveBaseline && e.cfg.IdleHintMS > 0 {
		baseline = e.cfg.IdleHintMS
	}

	// near-baseline classifier.
	nearBaseline := false
	if haveBaseline && baseline > 0 {
		cushion := 5.0
		if quarterSigma := 0.25 * sigma; quarterSigma > cushion {
			cushion = quarterSigma
		}
		nearBaseline = w.P95MS <= baseline*e.cfg.BetaDown+cushion
	}
	e.state.lowFlags.push(nearBaseline)
	lowFlags := e.state.lowFlags.snapshot()

	// band key and cadence.
	ratio := 0.0
	if baseline > 0 {
		ratio = w.P95MS / baseline
	}
	band := ClassifyBand(ratio, baseline)
	bandKey := MakeBandKey(band, w.Replicas, lowFlags)
	changed := bandKey != e.state.lastBandKey
	e.state.lastBandKey = bandKey

	jitteredHeartbeat := float64(e.cfg.LLMHeartbeatSec) * e.clock.Jitter(0.9, 1.1)
	heartbeat := e.state.lastLLMCallTS.IsZero() ||
		now.Sub(e.state.lastLLMCallTS).Seconds() > jitteredHeartbeat

	// safety gates.
	cooldownClear := e.state.lastActionTS.IsZero() ||
		now.Sub(e.state.lastActionTS).Seconds() >= float64(e.cfg.CooldownSec)

	decision, refusalTag := e.consult(ctx, refusalInputs{
		now:           now,
		changed:       changed,
		heartbeat:     heartbeat,
		cooldownClear: cooldownClear,
		p95:           w.P95MS,
		baseline:      baseline,
		sigma:         sigma,
		ratio:         ratio,
		replicas:      w.Replicas,
		haveBaseline:  haveBaseline,
		lowFlags:      lowFlags,
	})
	if refusalTag != "" {
		decision.Reason = fmt.Sprintf("%s (%s)", decision.Reason, refusalTag)
	}
	decision.Target = e.cfg.Target

	// cooldown override.
	if !cooldownClear && isImpactful(decision.Action) {
		decision = busmsg.Decision{Action: busmsg.ActionNoop, Target: e.cfg.Target, Reason: "cooldown"}
	}
	if isImpactful(decision.Action) {
		e.state.lastActionTS = now
	}
	decision.TruncateReason()

	metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	metrics.TokenBucketOccupancy.Set(e.state.tokens.occupancy())
	metrics.ProbeP95LatencyMS.Set(w.P95MS)
	metrics.ReplicaCount.Set(float64(w.Replicas))

	// emission — telemetry reflects values used to decide.
	return busmsg.NewPlanEnvelope(e.cfg.Target, decision, busmsg.Telemetry{
		P95MS:      w.P95MS,
		BaselineMS: baseline,
		SigmaMS:    sigma,
		LowWindows: lowFlags,
		Replicas:   w.Replicas,
	})
}

func isImpactful(a busmsg.Action) bool {
	return a == busmsg.ActionScaleUp || a == busmsg.ActionScaleDown || a == busmsg.ActionRestart
}

type refusalInputs struct {
	now           time.Time
	changed       bool
	heartbeat     bool
	cooldownClear bool
	p95           float64
	baseline      float64
	sigma         float64
	ratio         float64
	replicas      int
	haveBaseline  bool
	lowFlags      []bool
}

// consult runs the safety gates, in order: backoff, oracle-configured,
// cooldown, cadence, token-bucket, then the oracle or the heuristic,
// returning the decision and a refusal tag to suffix onto the reason
// (empty when the oracle was actually consulted and succeeded). The gate
// order determines which single tag wins when more than one refusal
// condition holds at once — e.g. cooldown takes precedence over cadence.
func (e *Engine) consult(ctx context.Context, in refusalInputs) (busmsg.Decision, string) {
	heuristicDecision := func() busmsg.Decision {
		return Heuristic(HeuristicInputs{
			P95MS:        in.p95,
			Baseline:     in.baseline,
			Sigma:        in.sigma,
			Replicas:     in.replicas,
			HaveBaseline: in.haveBaseline,
			LowFlags:     in.lowFlags,
			AlphaUp:      e.cfg.AlphaUp,
			LowNeedN:     e.cfg.LowNeedN,
			MinReplicas:  e.cfg.MinReplicas,
			MaxReplicas:  e.cfg.MaxReplicas,
		})
	}

	if e.state.backoff.active(in.now) {
		return heuristicDecision(), "llm_backoff"
	}
	if !e.cfg.HasOracle {
		return heuristicDecision(), "no_llm_key"
	}
	if !in.cooldownClear {
		return heuristicDecision(), "cooldown"
	}
	if !in.changed && !in.heartbeat {
		return heuristicDecision(), "cadence"
	}
	if !e.state.tokens.take(in.now) {
		return heuristicDecision(), "cadence"
	}

	pctOfBaseline := 0.0
	if in.baseline > 0 {
		pctOfBaseline = in.p95 / in.baseline * 100
	}
	resp := e.advisor.Advise(ctx, AdvisorRequest{
		P95MS:         in.p95,
		BaselineMS:    in.baseline,
		SigmaMS:       in.sigma,
		PctOfBaseline: pctOfBaseline,
		LowWindows:    in.lowFlags,
		Replicas:      in.replicas,
		MinReplicas:   e.cfg.MinReplicas,
		MaxReplicas:   e.cfg.MaxReplicas,
		CooldownOK:    in.cooldownClear,
		HaveBaseline:  in.haveBaseline,
		AlphaUp:       e.cfg.AlphaUp,
		BetaDown:      e.cfg.BetaDown,
		KSigma:        e.cfg.KSigma,
	})

	switch resp.Outcome {
	case OutcomeSuccess:
		e.state.lastLLMCallTS = in.now
		resetBackoff(&e.state.backoff)
		metrics.OracleCallsTotal.WithLabelValues("success").Inc()
		return resp.Decision, ""
	case OutcomeRateLimited:
		applyBackoff(&e.state.backoff, in.now, resp.RetryAfterSec, e.cfg.LLMBackoffBase, e.cfg.LLMBackoffMax)
		metrics.OracleBackoffTripsTotal.Inc()
		metrics.OracleCallsTotal.WithLabelValues("rate_limited").Inc()
		return heuristicDecision(), "llm_backoff"
	case OutcomeParseFailure:
		metrics.OracleCallsTotal.WithLabelValues("error").Inc()
		return heuristicDecision(), fmt.Sprintf("llm_fallback: %v", resp.Err)
	default: // OutcomeCallFailure
		metrics.OracleCallsTotal.WithLabelValues("error").Inc()
		return heuristicDecision(), fmt.Sprintf("llm_fallback: %v", resp.Err)
	}
}
