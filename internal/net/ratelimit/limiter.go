// Package ratelimit implements the planner's oracle call-rate gate on top
// of golang.org/x/time/rate. Unlike a multi-provider rate limiter keyed by
// host, this system has exactly one external dependency to throttle — the
// oracle endpoint — so Limiter wraps a single rate.Limiter directly.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles calls to the oracle using a token bucket algorithm.
type Limiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
	rps     float64
	burst   int
}

// NewLimiter creates a new rate limiter with the given RPS and burst capacity.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
	}
}

// Allow reports whether a call is permitted right now.
func (l *Limiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// Wait blocks until a call is permitted or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()
	return limiter.Wait(ctx)
}

// Reserve reserves a token and returns the reservation.
func (l *Limiter) Reserve() *rate.Reservation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Reserve()
}

// SetRPS updates the requests-per-second rate.
func (l *Limiter) SetRPS(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rps = rps
	l.limiter.SetLimit(rate.Limit(rps))
}

// SetBurst updates the burst capacity.
func (l *Limiter) SetBurst(burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.burst = burst
	l.limiter.SetBurst(burst)
}

// Stats reports the limiter's current configuration and delay.
func (l *Limiter) Stats() LimiterStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := time.Now()
	reservation := l.limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel() // just checking, not actually consuming a token

	return LimiterStats{
		RPS:             float64(l.limiter.Limit()),
		Burst:           l.limiter.Burst(),
		TokensAvailable: l.limiter.Tokens(),
		NextAllowedAt:   now.Add(delay),
		Delay:           delay,
	}
}

// Reset discards accumulated token state, starting fresh at full burst.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
}

// LimiterStats describes a limiter's current throttling state.
type LimiterStats struct {
	RPS             float64       `json:"rps"`
	Burst           int           `json:"burst"`
	TokensAvailable float64       `json:"tokens_available"`
	NextAllowedAt   time.Time     `json:"next_allowed_at"`
	Delay           time.Duration `json:"delay"`
}

// IsThrottled reports whether the limiter is currently delaying requests.
func (s *LimiterStats) IsThrottled() bool {
	return s.Delay > 0
}

// NewOracleLimiter builds a Limiter sized for the planner's LLM_RPM setting:
// requests-per-minute converted to a per-second rate with a one-request
// burst, since the oracle is called at most once per window anyway.
func NewOracleLimiter(rpm int) *Limiter {
	return NewLimiter(float64(rpm)/60.0, 1)
}
