package planner

import (
	"sync"
	"time"
)

// ringBuffer is a bounded FIFO of float64 samples, used for p95 history.
// A plain slice suffices since the planner needs no per-bucket
// timestamps — only the most recent N samples.
type ringBuffer struct {
	cap    int
	values []float64
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{cap: capacity, values: make([]float64, 0, capacity)}
}

func (r *ringBuffer) push(v float64) {
	r.values = append(r.values, v)
	if len(r.values) > r.cap {
		r.values = r.values[len(r.values)-r.cap:]
	}
}

func (r *ringBuffer) snapshot() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

func (r *ringBuffer) len() int { return len(r.values) }

// boolRing is the same bounded-FIFO idea specialized for the low_flags
// history the near-baseline scale-down condition consumes.
type boolRing struct {
	cap    int
	values []bool
}

func newBoolRing(capacity int) *boolRing {
	return &boolRing{cap: capacity, values: make([]bool, 0, capacity)}
}

func (r *boolRing) push(v bool) {
	r.values = append(r.values, v)
	if len(r.values) > r.cap {
		r.values = r.values[len(r.values)-r.cap:]
	}
}

func (r *boolRing) snapshot() []bool {
	out := make([]bool, len(r.values))
	copy(out, r.values)
	return out
}

func (r *boolRing) full() bool { return len(r.values) == r.cap }

func (r *boolRing) allTrue() bool {
	if len(r.values) == 0 {
		return false
	}
	for _, v := range r.values {
		if !v {
			return false
		}
	}
	return true
}

// tokenBucket implements the oracle call-rate gate: tokens refill
// continuously at rpm/60 per second, capped at rpm, and a call consumes
// one token. Distinct from internal/net/ratelimit.Limiter, which throttles
// the HTTP transport itself — this bucket is the planner's own
// decision-time gate recorded in PlannerState, so it
// survives being inspected/serialized independently of the HTTP client.
type tokenBucket struct {
	tokens    float64
	updatedTS time.Time
	rpm       int
}

func newTokenBucket(rpm int, now time.Time) tokenBucket {
	return tokenBucket{tokens: float64(rpm), updatedTS: now, rpm: rpm}
}

// refill advances the bucket to now, adding rpm/60 tokens per elapsed
// second, capped at rpm.
func (b *tokenBucket) refill(now time.Time) {
	if b.rpm <= 0 {
		b.updatedTS = now
		return
	}
	elapsed := now.Sub(b.updatedTS).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * (float64(b.rpm) / 60.0)
	if b.tokens > float64(b.rpm) {
		b.tokens = float64(b.rpm)
	}
	b.updatedTS = now
}

// take refills to now then consumes one token if available.
func (b *tokenBucket) take(now time.Time) bool {
	b.refill(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// occupancy reports the fraction of the bucket currently full, for the
// autoscaler_oracle_token_bucket_occupancy gauge.
func (b *tokenBucket) occupancy() float64 {
	if b.rpm <= 0 {
		return 0
	}
	return b.tokens / float64(b.rpm)
}

// backoffState is the 429-driven exponential backoff machine.
type backoffState struct {
	untilTS time.Time
	power   int // 0..4
}

func (b *backoffState) active(now time.Time) bool {
	return now.Before(b.untilTS)
}

// PlannerState is the single owner object for everything the planner
// carries between windows, encapsulated here rather than scattered across
// module-scope variables. All mutation happens through
// Engine, which holds the one mutex guarding this struct.
type PlannerState struct {
	mu sync.Mutex

	p95History    *ringBuffer
	lowFlags      *boolRing
	lastActionTS  time.Time
	lastLLMCallTS time.Time
	tokens        tokenBucket
	backoff       backoffState
	lastBandKey   BandKey
	replicas      int
}

// NewPlannerState constructs state sized per the given config, with the
// token bucket starting full and no prior action or backoff recorded.
func NewPlannerState(histWindows, lowNeedN, llmRPM int, now time.Time) *PlannerState {
	return &PlannerState{
		p95History: newRingBuffer(histWindows),
		lowFlags:   newBoolRing(lowNeedN),
		tokens:     newTokenBucket(llmRPM, now),
	}
}
