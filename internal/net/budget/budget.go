// Package budget caps the planner's daily oracle call volume, independent
// of the per-minute token bucket in internal/net/ratelimit: the token
// bucket bounds burstiness within a window, this bounds total spend across
// a day so a noisy service can't run the LLM bill up unattended.
package budget

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// BudgetExhaustedError reports that the oracle's daily call limit has been
// reached; the caller should fall back to the heuristic until ETA.
type BudgetExhaustedError struct {
	Used  int64
	Limit int64
	ETA   time.Time
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("oracle budget exhausted: %d/%d requests used, resets at %s",
		e.Used, e.Limit, e.ETA.Format("15:04 UTC"))
}

// BudgetWarningError reports that the oracle's daily call volume has crossed
// the warning threshold, without yet blocking calls.
type BudgetWarningError struct {
	Used      int64
	Limit     int64
	Threshold float64
}

func (e *BudgetWarningError) Error() string {
	utilization := float64(e.Used) / float64(e.Limit) * 100
	return fmt.Sprintf("oracle budget warning: %.1f%% used (%d/%d), threshold %.1f%%",
		utilization, e.Used, e.Limit, e.Threshold*100)
}

// Tracker tracks the oracle's daily call volume against a fixed limit.
type Tracker struct {
	limit         int64     // Daily budget limit
	used          int64     // Requests used today (atomic)
	resetHour     int       // UTC hour to reset (0-23)
	warnThreshold float64   // Warning threshold (0.0-1.0)
	lastReset     time.Time // Last reset timestamp
	mu            sync.RWMutex
}

// NewTracker creates a new budget tracker
func NewTracker(limit int64, resetHour int, warnThreshold float64) *Tracker {
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	if warnThreshold <= 0 || warnThreshold > 1 {
		warnThreshold = 0.8
	}

	now := time.Now().UTC()
	return &Tracker{
		limit:         limit,
		resetHour:     resetHour,
		warnThreshold: warnThreshold,
		lastReset:     getLastResetTime(now, resetHour),
	}
}

// getLastResetTime calculates the last reset time based on current time and reset hour
func getLastResetTime(now time.Time, resetHour int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)
	if now.Hour() >= resetHour {
		return today
	}
	return today.AddDate(0, 0, -1)
}

// getNextResetTime calculates the next reset time
func (t *Tracker) getNextResetTime() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.lastReset.Add(24 * time.Hour)
}

// checkAndResetIfNeeded checks if budget should be reset and resets if necessary
func (t *Tracker) checkAndResetIfNeeded() {
	now := time.Now().UTC()
	nextReset := t.getNextResetTime()

	if now.After(nextReset) {
		t.mu.Lock()
		defer t.mu.Unlock()

		// Double-check after acquiring write lock
		if now.After(t.lastReset.Add(24 * time.Hour)) {
			atomic.StoreInt64(&t.used, 0)
			t.lastReset = getLastResetTime(now, t.resetHour)
		}
	}
}

// Allow returns nil if a request is within budget, a *BudgetWarningError
// (the request is still allowed) once usage reaches the warning threshold,
// or a *BudgetExhaustedError once usage reaches the limit.
func (t *Tracker) Allow() error {
	t.checkAndResetIfNeeded()

	currentUsed := atomic.LoadInt64(&t.used)

	// Check hard limit
	if currentUsed >= t.limit {
		return &BudgetExhaustedError{
			Used:  currentUsed,
			Limit: t.limit,
			ETA:   t.getNextResetTime(),
		}
	}

	// Check warning threshold
	utilizationRate := float64(currentUsed) / float64(t.limit)
	if utilizationRate >= t.warnThreshold {
		return &BudgetWarningError{
			Used:      currentUsed,
			Limit:     t.limit,
			Threshold: t.warnThreshold,
		}
	}

	return nil
}

// Consume increments the usage counter and returns error if budget exceeded
func (t *Tracker) Consume() error {
	t.checkAndResetIfNeeded()

	newUsed := atomic.AddInt64(&t.used, 1)

	// Check hard limit after increment
	if newUsed > t.limit {
		// Decrement back since we exceeded
		atomic.AddInt64(&t.used, -1)
		return &BudgetExhaustedError{
			Used:  newUsed - 1,
			Limit: t.limit,
			ETA:   t.getNextResetTime(),
		}
	}

	// Check warning threshold
	utilizationRate := float64(newUsed) / float64(t.limit)
	if utilizationRate >= t.warnThreshold {
		return &BudgetWarningError{
			Used:      newUsed,
			Limit:     t.limit,
			Threshold: t.warnThreshold,
		}
	}

	return nil
}

// Stats returns current budget statistics
func (t *Tracker) Stats() Stats {
	t.checkAndResetIfNeeded()

	t.mu.RLock()
	defer t.mu.RUnlock()

	currentUsed := atomic.LoadInt64(&t.used)
	utilizationRate := float64(currentUsed) / float64(t.limit)

	return Stats{
		Limit:           t.limit,
		Used:            currentUsed,
		Remaining:       t.limit - currentUsed,
		UtilizationRate: utilizationRate,
		WarnThreshold:   t.warnThreshold,
		ResetHour:       t.resetHour,
		LastReset:       t.lastReset,
		NextReset:       t.getNextResetTime(),
		IsWarning:       utilizationRate >= t.warnThreshold,
		IsExhausted:     currentUsed >= t.limit,
	}
}

// Reset manually resets the budget counter
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	atomic.StoreInt64(&t.used, 0)
	t.lastReset = time.Now().UTC()
}

// SetLimit updates the daily budget limit
func (t *Tracker) SetLimit(limit int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.limit = limit
}

// Stats represents budget tracker statistics
type Stats struct {
	Limit           int64     `json:"limit"`
	Used            int64     `json:"used"`
	Remaining       int64     `json:"remaining"`
	UtilizationRate float64   `json:"utilization_rate"`
	WarnThreshold   float64   `json:"warn_threshold"`
	ResetHour       int       `json:"reset_hour"`
	LastReset       time.Time `json:"last_reset"`
	NextReset       time.Time `json:"next_reset"`
	IsWarning       bool      `json:"is_warning"`
	IsExhausted     bool      `json:"is_exhausted"`
}

// TimeToReset returns the duration until next budget reset
func (s *Stats) TimeToReset() time.Duration {
	return time.Until(s.NextReset)
}
