// Package busmsg defines the self-describing JSON records exchanged on the
// bus topics (alerts, actions, results). Every record carries a `kind`
// discriminator so a subscriber can filter and skip records it does not
// understand, per the bus contract.
package busmsg

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates record payloads on a topic.
type Kind string

const (
	KindLatencyMetrics Kind = "latency_metrics"
	KindPlan           Kind = "plan"
	KindError          Kind = "error"
)

// Action is the set of decisions the planner can emit.
type Action string

const (
	ActionNoop       Action = "noop"
	ActionRestart    Action = "restart"
	ActionScaleUp    Action = "scale_up"
	ActionScaleDown  Action = "scale_down"
)

// ResultStatus is the outcome the executor reports for a dispatched action.
type ResultStatus string

const (
	StatusOK      ResultStatus = "ok"
	StatusNoop    ResultStatus = "noop"
	StatusSkipped ResultStatus = "skipped"
	StatusError   ResultStatus = "error"
)

const maxReasonLen = 160

// LatencyWindow is the payload the probe publishes on `alerts`, one per
// sampling window.
type LatencyWindow struct {
	Endpoint    string    `json:"endpoint"`
	WindowSec   int       `json:"window_sec"`
	Requests    int       `json:"requests"`
	SuccessRate float64   `json:"success_rate"`
	AvgMS       float64   `json:"avg_ms"`
	P95MS       float64   `json:"p95_ms"`
	Replicas    int       `json:"replicas"`
	TS          time.Time `json:"ts"`
}

// Validate enforces the invariants a LatencyWindow must hold:
// p95 >= avg (up to rounding) and at least one request was sampled.
func (w *LatencyWindow) Validate() error {
	if w.Requests < 1 {
		return fmt.Errorf("latency window: requests must be >= 1, got %d", w.Requests)
	}
	if w.SuccessRate < 0 || w.SuccessRate > 1 {
		return fmt.Errorf("latency window: success_rate out of [0,1]: %f", w.SuccessRate)
	}
	if w.AvgMS < 0 || w.P95MS < 0 {
		return fmt.Errorf("latency window: avg_ms/p95_ms must be >= 0")
	}
	if w.Replicas < 1 {
		return fmt.Errorf("latency window: replicas must be >= 1, got %d", w.Replicas)
	}
	const roundingSlackMS = 0.01
	if w.P95MS+roundingSlackMS < w.AvgMS {
		return fmt.Errorf("latency window: p95_ms (%.3f) must be >= avg_ms (%.3f) up to rounding", w.P95MS, w.AvgMS)
	}
	return nil
}

// Decision is the planner's verdict for a single window, embedded in a
// PlanEnvelope.
type Decision struct {
	Action Action `json:"action"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// TruncateReason clamps Reason to its 160-character limit.
func (d *Decision) TruncateReason() {
	if len(d.Reason) > maxReasonLen {
		d.Reason = d.Reason[:maxReasonLen]
	}
}

// NormalizeAction maps any unrecognized action to noop, per the oracle reply's
// validation of oracle output.
func NormalizeAction(a Action) Action {
	switch a {
	case ActionNoop, ActionRestart, ActionScaleUp, ActionScaleDown:
		return a
	default:
		return ActionNoop
	}
}

// Telemetry is the per-window snapshot of the values the planner used to
// decide, embedded in a PlanEnvelope. It MUST reflect the state computed
// for the window being decided, not the state after the decision.
type Telemetry struct {
	P95MS      float64 `json:"p95_ms"`
	BaselineMS float64 `json:"baseline_ms"`
	SigmaMS    float64 `json:"sigma_ms"`
	LowWindows []bool  `json:"low_windows"`
	Replicas   int     `json:"replicas"`
}

// PlanEnvelope is the payload the planner publishes on `actions` for every
// window it consumes, including noop decisions (the downstream heartbeat).
type PlanEnvelope struct {
	TS        time.Time `json:"ts"`
	Kind      Kind      `json:"kind"`
	Container string    `json:"container"`
	Decision  Decision  `json:"decision"`
	Telemetry Telemetry `json:"telemetry"`
}

// NewPlanEnvelope builds an envelope with Kind fixed to "plan".
func NewPlanEnvelope(container string, decision Decision, telemetry Telemetry) PlanEnvelope {
	decision.TruncateReason()
	return PlanEnvelope{
		TS:        time.Now(),
		Kind:      KindPlan,
		Container: container,
		Decision:  decision,
		Telemetry: telemetry,
	}
}

// ErrorEnvelope is published on `actions` when a window's processing raised
// an error the planner could not otherwise turn into a decision.
type ErrorEnvelope struct {
	Kind  Kind            `json:"kind"`
	Error string          `json:"error"`
	Raw   json.RawMessage `json:"raw,omitempty"`
}

// Result carries the outcome of an executor dispatch.
type Result struct {
	Status  ResultStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// ActionResult is the payload the executor publishes on `results` for every
// action message it processes.
type ActionResult struct {
	TS     time.Time `json:"ts"`
	Action Action    `json:"action"`
	Target string    `json:"target"`
	Reason string    `json:"reason"`
	Result Result    `json:"result"`
}

// NewActionResult stamps the current time onto a result record.
func NewActionResult(action Action, target, reason string, result Result) ActionResult {
	return ActionResult{
		TS:     time.Now(),
		Action: action,
		Target: target,
		Reason: reason,
		Result: result,
	}
}

// PeekKind reads only the `kind` discriminator from a raw bus payload so a
// subscriber can route without fully unmarshalling an unrecognized record.
func PeekKind(payload []byte) (Kind, error) {
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "", fmt.Errorf("peek kind: %w", err)
	}
	return probe.Kind, nil
}
