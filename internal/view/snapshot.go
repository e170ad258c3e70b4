package view

import (
	"sync"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
)

const maxResults = 100

// Snapshot is the shared in-memory state View's two subscriber loops
// (alerts, results) update and the HTTP read path consumes, guarded by a
// single mutex.
type Snapshot struct {
	mu      sync.Mutex
	latest  *busmsg.LatencyWindow
	results []busmsg.ActionResult

	subscribers []chan any
}

// NewSnapshot returns an empty Snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// SetLatestWindow replaces the most recently seen LatencyWindow.
func (s *Snapshot) SetLatestWindow(w busmsg.LatencyWindow) {
	s.mu.Lock()
	s.latest = &w
	s.mu.Unlock()
	s.broadcast(w)
}

// AppendResult appends r, evicting the oldest entry once the bound of 100
// is exceeded.
func (s *Snapshot) AppendResult(r busmsg.ActionResult) {
	s.mu.Lock()
	s.results = append(s.results, r)
	if len(s.results) > maxResults {
		s.results = s.results[len(s.results)-maxResults:]
	}
	s.mu.Unlock()
	s.broadcast(r)
}

// LatestWindow returns the most recent LatencyWindow, or nil if none has
// arrived yet.
func (s *Snapshot) LatestWindow() *busmsg.LatencyWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil
	}
	cp := *s.latest
	return &cp
}

// RecentResults returns a copy of up to the last 100 ActionResults.
func (s *Snapshot) RecentResults() []busmsg.ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]busmsg.ActionResult, len(s.results))
	copy(out, s.results)
	return out
}

// Subscribe registers a channel that receives every future update
// (either a busmsg.LatencyWindow or a busmsg.ActionResult) for the
// websocket live-push surface. The returned func unregisters it.
func (s *Snapshot) Subscribe(ch chan any) func() {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.subscribers {
			if c == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				break
			}
		}
	}
}

func (s *Snapshot) broadcast(update any) {
	s.mu.Lock()
	subs := make([]chan any, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
			// Slow subscriber; drop rather than block the publisher loop.
		}
	}
}
