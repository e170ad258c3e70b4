package view

import (
	"testing"
	"time"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotLatestWindowNilUntilSet(t *testing.T) {
	s := NewSnapshot()
	assert.Nil(t, s.LatestWindow())

	s.SetLatestWindow(busmsg.LatencyWindow{P95MS: 10})
	require.NotNil(t, s.LatestWindow())
	assert.Equal(t, 10.0, s.LatestWindow().P95MS)
}

func TestSnapshotResultsBounded(t *testing.T) {
	s := NewSnapshot()
	for i := 0; i < 120; i++ {
		s.AppendResult(busmsg.ActionResult{Action: busmsg.ActionNoop})
	}
	assert.Len(t, s.RecentResults(), 100)
}

func TestSnapshotBroadcastsToSubscribers(t *testing.T) {
	s := NewSnapshot()
	ch := make(chan any, 4)
	unsubscribe := s.Subscribe(ch)
	defer unsubscribe()

	s.SetLatestWindow(busmsg.LatencyWindow{P95MS: 5})

	select {
	case update := <-ch:
		w, ok := update.(busmsg.LatencyWindow)
		require.True(t, ok)
		assert.Equal(t, 5.0, w.P95MS)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast update")
	}
}

func TestSnapshotUnsubscribeStopsDelivery(t *testing.T) {
	s := NewSnapshot()
	ch := make(chan any, 4)
	unsubscribe := s.Subscribe(ch)
	unsubscribe()

	s.SetLatestWindow(busmsg.LatencyWindow{P95MS: 5})

	select {
	case <-ch:
		t.Fatal("unsubscribed channel should not receive updates")
	case <-time.After(50 * time.Millisecond):
	}
}
