// Package client wraps the oracle's outbound HTTP round-trip with a
// rate-limit/circuit/budget middleware stack, narrowed to the single
// external dependency this system has: the LLM oracle endpoint.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sawpanic/agentic-autoscaler/internal/net/budget"
	"github.com/sawpanic/agentic-autoscaler/internal/net/circuit"
	"github.com/sawpanic/agentic-autoscaler/internal/net/ratelimit"
)

// WrapperConfig configures the oracle HTTP client wrapper. RateLimiter and
// CircuitBreaker are required; BudgetTracker is optional (nil disables the
// daily call cap).
type WrapperConfig struct {
	RateLimiter    *ratelimit.Limiter
	CircuitBreaker *circuit.Breaker
	BudgetTracker  *budget.Tracker
}

// Wrapper implements http.RoundTripper, applying the daily budget check,
// then the token bucket wait, then the circuit breaker, around the
// underlying transport.
type Wrapper struct {
	config    WrapperConfig
	transport http.RoundTripper
	userAgent string
}

// NewWrapper builds a Wrapper around transport (http.DefaultTransport if
// nil).
func NewWrapper(cfg WrapperConfig, transport http.RoundTripper) *Wrapper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Wrapper{
		config:    cfg,
		transport: transport,
		userAgent: "agentic-autoscaler-planner/1.0",
	}
}

// RoundTrip implements http.RoundTripper.
func (w *Wrapper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	if w.config.BudgetTracker != nil {
		if err := w.config.BudgetTracker.Allow(); err != nil {
			if _, exhausted := err.(*budget.BudgetExhaustedError); exhausted {
				return nil, &OracleCallError{Type: "budget", Err: err}
			}
		}
	}

	if w.config.RateLimiter != nil {
		if err := w.config.RateLimiter.Wait(req.Context()); err != nil {
			return nil, &OracleCallError{Type: "rate_limit", Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	var response *http.Response
	execute := func(ctx context.Context) error {
		var requestErr error
		response, requestErr = w.transport.RoundTrip(req.WithContext(ctx))
		if requestErr != nil {
			return &OracleCallError{Type: "transport", Err: requestErr}
		}
		if response.StatusCode >= 500 {
			return &OracleCallError{Type: "http_error", StatusCode: response.StatusCode, Err: fmt.Errorf("oracle returned %d", response.StatusCode)}
		}
		return nil
	}

	var err error
	if w.config.CircuitBreaker != nil {
		err = w.config.CircuitBreaker.Call(req.Context(), execute)
	} else {
		err = execute(req.Context())
	}
	if err != nil {
		return nil, err
	}

	if w.config.BudgetTracker != nil {
		_ = w.config.BudgetTracker.Consume()
	}

	return response, nil
}

// OracleCallError wraps a failure at any middleware stage with enough
// context for the planner's fallback-to-heuristic decision.
type OracleCallError struct {
	Type       string // "rate_limit", "budget", "transport", "http_error"; breaker refusals and timeouts are returned unwrapped
	StatusCode int
	Err        error
}

func (e *OracleCallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("oracle call %s error (HTTP %d): %v", e.Type, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("oracle call %s error: %v", e.Type, e.Err)
}

func (e *OracleCallError) Unwrap() error { return e.Err }

// IsRateLimited reports whether the failure came from the local token
// bucket rather than the oracle itself.
func (e *OracleCallError) IsRateLimited() bool { return e.Type == "rate_limit" }

// IsBudgetExhausted reports whether the daily call cap was hit.
func (e *OracleCallError) IsBudgetExhausted() bool { return e.Type == "budget" }

// NewClient builds an *http.Client with the middleware stack installed and
// the given per-request timeout.
func NewClient(cfg WrapperConfig, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewWrapper(cfg, http.DefaultTransport),
		Timeout:   timeout,
	}
}
