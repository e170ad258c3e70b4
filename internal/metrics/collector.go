// Package metrics exposes the system's Prometheus surface. Counters and
// gauges are registered once at package init and updated by the planner
// and executor as they run (the planner also sets the gauges derived from
// each probe window) — there is no simulated or sampled data
// here, every series reflects an event that actually happened.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OracleCallsTotal counts oracle invocations by outcome: "success",
	// "rate_limited" (429), "error" (unparseable reply or failed call).
	// Windows on which a safety gate refuses the oracle are not counted.
	OracleCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoscaler_oracle_calls_total",
		Help: "Oracle advisor invocations by outcome.",
	}, []string{"outcome"})

	// OracleBackoffTripsTotal counts transitions into an active backoff
	// window triggered by a 429 response from the oracle.
	OracleBackoffTripsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autoscaler_oracle_backoff_trips_total",
		Help: "Number of times the oracle 429 backoff was triggered.",
	})

	// TokenBucketOccupancy reports the fraction of the LLM_RPM token
	// bucket currently available (1.0 = full, 0.0 = empty).
	TokenBucketOccupancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autoscaler_oracle_token_bucket_occupancy",
		Help: "Fraction of the oracle rate limit token bucket currently available.",
	})

	// DecisionsTotal counts planner decisions by the action emitted.
	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoscaler_decisions_total",
		Help: "Planner decisions emitted, by action.",
	}, []string{"action"})

	// ExecutorActionsTotal counts executor dispatch outcomes by action and
	// status.
	ExecutorActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoscaler_executor_actions_total",
		Help: "Executor dispatch outcomes, by action and status.",
	}, []string{"action", "status"})

	// ReplicaCount reports the last replica count the probe observed for
	// the target deployment.
	ReplicaCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autoscaler_replica_count",
		Help: "Replica count last observed by the probe.",
	})

	// ProbeP95LatencyMS reports the most recent window's p95 latency.
	ProbeP95LatencyMS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autoscaler_probe_p95_latency_ms",
		Help: "p95 request latency observed in the most recent probe window.",
	})
)
