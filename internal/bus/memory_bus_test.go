package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()
	require.NoError(t, b.Start(ctx))
	defer b.Stop(ctx)

	assert.True(t, b.Health().Healthy)

	var mu sync.Mutex
	var received []string

	require.NoError(t, b.Subscribe(ctx, TopicAlerts, func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(msg.Payload))
		return nil
	}))

	require.NoError(t, b.Publish(ctx, TopicAlerts, []byte("one")))
	require.NoError(t, b.Publish(ctx, TopicAlerts, []byte("two")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryBus_NoReplayBeforeSubscribe(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()
	require.NoError(t, b.Start(ctx))
	defer b.Stop(ctx)

	// Published before any subscriber exists; must not be delivered later.
	require.NoError(t, b.Publish(ctx, TopicActions, []byte("early")))

	var mu sync.Mutex
	var received []string
	require.NoError(t, b.Subscribe(ctx, TopicActions, func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(msg.Payload))
		return nil
	}))

	require.NoError(t, b.Publish(ctx, TopicActions, []byte("late")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1 && received[0] == "late"
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryBus_PublishBeforeStartFails(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()
	err := b.Publish(ctx, TopicAlerts, []byte("x"))
	assert.ErrorIs(t, err, ErrBusNotStarted)
}

func TestMemoryBus_HandlerErrorDoesNotStopSubscription(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()
	require.NoError(t, b.Start(ctx))
	defer b.Stop(ctx)

	var mu sync.Mutex
	calls := 0
	require.NoError(t, b.Subscribe(ctx, TopicResults, func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return assert.AnError
		}
		return nil
	}))

	require.NoError(t, b.Publish(ctx, TopicResults, []byte("a")))
	require.NoError(t, b.Publish(ctx, TopicResults, []byte("b")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, 5*time.Millisecond)
}
