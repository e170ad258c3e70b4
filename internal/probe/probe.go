// Package probe samples the target endpoint's latency once per window
// and emits a LatencyWindow. It is intentionally the
// thinnest component: sequential GETs, percentile math delegated to
// internal/telemetry/latency, and replica counting delegated to whatever
// ReplicaCounter the caller wires in (out of scope — container
// introspection as an external collaborator here too).
package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
	"github.com/sawpanic/agentic-autoscaler/internal/telemetry/latency"
)

// ReplicaCounter reports the current replica count for the target,
// honoring the sibling naming contract. Implementations
// typically enumerate containers the same way the executor does.
type ReplicaCounter interface {
	Count(ctx context.Context) (int, error)
}

// FixedReplicaCounter always reports N, or 1 when N <= 0 — the documented
// fallback "if introspection is unavailable it reports 1."
type FixedReplicaCounter struct{ N int }

func (f FixedReplicaCounter) Count(context.Context) (int, error) {
	if f.N <= 0 {
		return 1, nil
	}
	return f.N, nil
}

// Config is the probe's tunable surface.
type Config struct {
	Endpoint       string
	TargetURL      string
	Requests       int
	Timeout        time.Duration
	SampleInterval time.Duration
}

// Sampler issues PROBE_REQUESTS sequential GETs and builds the
// LatencyWindow for the window just completed.
type Sampler struct {
	cfg      Config
	client   *http.Client
	replicas ReplicaCounter
	now      func() time.Time
}

// New builds a Sampler. client defaults to a plain *http.Client sized to
// cfg.Timeout when nil.
func New(cfg Config, client *http.Client, replicas ReplicaCounter, now func() time.Time) *Sampler {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if now == nil {
		now = time.Now
	}
	if replicas == nil {
		replicas = FixedReplicaCounter{N: 1}
	}
	return &Sampler{cfg: cfg, client: client, replicas: replicas, now: now}
}

// Sample runs one window: cfg.Requests sequential GETs against
// cfg.TargetURL, classifying [200,300) as success, then computes
// avg_ms/p95_ms via linear interpolation (internal/telemetry/latency).
func (s *Sampler) Sample(ctx context.Context) busmsg.LatencyWindow {
	samples := make([]float64, 0, s.cfg.Requests)
	successes := 0

	for i := 0; i < s.cfg.Requests; i++ {
		elapsedMS, ok := s.doRequest(ctx)
		samples = append(samples, elapsedMS)
		if ok {
			successes++
		}
	}

	replicas, err := s.replicas.Count(ctx)
	if err != nil || replicas < 1 {
		replicas = 1
	}

	window := busmsg.LatencyWindow{
		Endpoint:    s.cfg.Endpoint,
		WindowSec:   int(s.cfg.SampleInterval.Seconds()),
		Requests:    s.cfg.Requests,
		SuccessRate: float64(successes) / float64(s.cfg.Requests),
		AvgMS:       latency.Average(samples),
		P95MS:       latency.Percentile(samples, 0.95),
		Replicas:    replicas,
		TS:          s.now(),
	}
	// The interpolated p95 ignores the samples above it, so one large
	// outlier at the top of a window can pull the average above the p95;
	// clamp so the window still satisfies p95 >= avg.
	if window.P95MS < window.AvgMS {
		window.P95MS = window.AvgMS
	}
	return window
}

func (s *Sampler) doRequest(ctx context.Context) (elapsedMS float64, success bool) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.cfg.TargetURL, nil)
	if err != nil {
		return 0, false
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)
	elapsedMS = float64(elapsed.Microseconds()) / 1000.0

	if err != nil {
		return elapsedMS, false
	}
	defer resp.Body.Close()
	return elapsedMS, resp.StatusCode >= 200 && resp.StatusCode < 300
}
