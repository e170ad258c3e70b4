// Package circuit wraps github.com/sony/gobreaker around an outbound call,
// guarding repeated network/5xx failures. This is independent of — and
// composes with — any caller-owned exponential-backoff state machine that
// reacts to a specific status code (see internal/planner's 429 handling).
package circuit

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrRequestTimeout is returned when fn does not complete within the
// configured request timeout.
var ErrRequestTimeout = errors.New("circuit: request timeout")

// Config exposes the knobs callers tune, translated into gobreaker.Settings.
type Config struct {
	Name             string
	FailureThreshold uint32        // consecutive failures to trip open
	OpenTimeout      time.Duration // time spent open before a half-open probe
	RequestTimeout   time.Duration // per-call deadline
}

// Breaker wraps a gobreaker.CircuitBreaker with a context-aware, timeout-
// enforcing Call method.
type Breaker struct {
	cb             *gobreaker.CircuitBreaker
	requestTimeout time.Duration
}

// New builds a Breaker that trips after Config.FailureThreshold consecutive
// failures and stays open for Config.OpenTimeout, matching
// infra/breakers.New's ReadyToTrip shape.
func New(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		Interval:    0, // never reset counts while closed; rely on ReadyToTrip
		Timeout:     cfg.OpenTimeout,
		MaxRequests: 1, // single probe request while half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return &Breaker{
		cb:             gobreaker.NewCircuitBreaker(settings),
		requestTimeout: cfg.RequestTimeout,
	}
}

// Call executes fn if the breaker allows it, enforcing the configured
// per-request timeout. Returns gobreaker.ErrOpenState when the breaker is
// open, ErrRequestTimeout when fn overruns its deadline, or fn's own error.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, b.requestTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- fn(timeoutCtx) }()

		select {
		case err := <-done:
			return nil, err
		case <-timeoutCtx.Done():
			return nil, ErrRequestTimeout
		}
	})
	return err
}

// State reports the current breaker state name ("closed", "half-open",
// "open"), for logging/metrics.
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// IsOpen reports whether the breaker is currently refusing calls.
func (b *Breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}
