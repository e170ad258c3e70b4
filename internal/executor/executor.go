package executor

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
	"github.com/sawpanic/agentic-autoscaler/internal/metrics"
)

const restartGraceSec = 5
const stopGraceSec = 5

// siblingPattern builds the `^{target}-dup-\d+$` regexp every
// replica-counting component honors.
func siblingPattern(target string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s-dup-\d+$`, regexp.QuoteMeta(target)))
}

// siblingOrPrimaryRegexp matches either the primary name or its siblings,
// for ContainerRuntime.List callers that want the whole replica set.
func siblingOrPrimaryRegexp(target string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s(-dup-\d+)?$`, regexp.QuoteMeta(target)))
}

// Config is the executor's tunable surface: an
// independent MAX_REPLICAS cap that acts as a last-line safety wall even
// if the planner is misconfigured.
type Config struct {
	Target      string
	MaxReplicas int
}

// Executor dispatches PlanEnvelope decisions against a ContainerRuntime
// and returns the ActionResult to publish, using a single-consumer
// dispatch loop style (one method per inbound command
// handlers): one method per inbound message, no concurrent state beyond
// what the runtime itself serializes.
type Executor struct {
	cfg     Config
	runtime ContainerRuntime
	now     func() time.Time
}

// New builds an Executor. now defaults to time.Now when nil.
func New(cfg Config, runtime ContainerRuntime, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{cfg: cfg, runtime: runtime, now: now}
}

// Dispatch applies one PlanEnvelope's decision and returns the
// ActionResult to publish on `results`.
func (e *Executor) Dispatch(ctx context.Context, env busmsg.PlanEnvelope) busmsg.ActionResult {
	decision := env.Decision

	container, ok, err := e.runtime.Find(ctx, decision.Target)
	if err != nil {
		metrics.ExecutorActionsTotal.WithLabelValues(string(decision.Action), "error").Inc()
		return busmsg.NewActionResult(busmsg.ActionNoop, decision.Target, decision.Reason,
			busmsg.Result{Status: busmsg.StatusError, Message: fmt.Sprintf("runtime lookup failed: %v", err)})
	}
	if !ok {
		metrics.ExecutorActionsTotal.WithLabelValues(string(decision.Action), "error").Inc()
		return busmsg.NewActionResult(busmsg.ActionNoop, decision.Target, decision.Reason,
			busmsg.Result{Status: busmsg.StatusError, Message: "target container not found"})
	}
	if container.Labels["agentic.target"] != "true" {
		metrics.ExecutorActionsTotal.WithLabelValues(string(decision.Action), "skipped").Inc()
		return busmsg.NewActionResult(busmsg.ActionNoop, decision.Target, decision.Reason,
			busmsg.Result{Status: busmsg.StatusSkipped, Message: "target not labeled agentic.target=true"})
	}

	var result busmsg.Result
	switch decision.Action {
	case busmsg.ActionRestart:
		result = e.dispatchRestart(ctx, decision.Target)
	case busmsg.ActionScaleUp:
		result = e.dispatchScaleUp(ctx, container)
	case busmsg.ActionScaleDown:
		result = e.dispatchScaleDown(ctx, decision.Target)
	default:
		result = busmsg.Result{Status: busmsg.StatusOK, Message: "noop"}
	}

	metrics.ExecutorActionsTotal.WithLabelValues(string(decision.Action), string(result.Status)).Inc()
	return busmsg.NewActionResult(decision.Action, decision.Target, decision.Reason, result)
}

func (e *Executor) dispatchRestart(ctx context.Context, target string) busmsg.Result {
	if err := e.runtime.Restart(ctx, target, restartGraceSec); err != nil {
		return busmsg.Result{Status: busmsg.StatusError, Message: fmt.Sprintf("restart failed: %v", err)}
	}
	return busmsg.Result{Status: busmsg.StatusOK}
}

func (e *Executor) dispatchScaleUp(ctx context.Context, primary Container) busmsg.Result {
	siblings, err := e.runtime.List(ctx, primary.Name)
	if err != nil {
		return busmsg.Result{Status: busmsg.StatusError, Message: fmt.Sprintf("list siblings failed: %v", err)}
	}
	if len(siblings) >= e.cfg.MaxReplicas {
		return busmsg.Result{Status: busmsg.StatusNoop, Message: fmt.Sprintf("max replicas %d reached", e.cfg.MaxReplicas)}
	}

	name := siblingName(primary.Name, e.now())
	if err := e.runtime.Start(ctx, name, primary.Image, primary.Network); err != nil {
		return busmsg.Result{Status: busmsg.StatusError, Message: fmt.Sprintf("start failed: %v", err)}
	}
	return busmsg.Result{Status: busmsg.StatusOK}
}

func (e *Executor) dispatchScaleDown(ctx context.Context, target string) busmsg.Result {
	all, err := e.runtime.List(ctx, target)
	if err != nil {
		return busmsg.Result{Status: busmsg.StatusError, Message: fmt.Sprintf("list siblings failed: %v", err)}
	}
	pattern := siblingPattern(target)
	var siblings []Container
	for _, c := range all {
		if pattern.MatchString(c.Name) {
			siblings = append(siblings, c)
		}
	}
	if len(siblings) == 0 {
		return busmsg.Result{Status: busmsg.StatusNoop, Message: "no siblings to remove"}
	}
	// siblings is already sorted by name (ContainerRuntime.List contract);
	// the last one by name is the most recently created since the suffix
	// is an epoch-second timestamp.
	victim := siblings[len(siblings)-1]
	if err := e.runtime.StopAndRemove(ctx, victim.Name, stopGraceSec); err != nil {
		return busmsg.Result{Status: busmsg.StatusError, Message: fmt.Sprintf("stop failed: %v", err)}
	}
	return busmsg.Result{Status: busmsg.StatusOK}
}
