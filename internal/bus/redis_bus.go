package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisBus implements EventBus on Redis Pub/Sub. It is the production
// transport for alerts/actions/results; the in-memory bus covers tests and
// single-process demos. A thin wrapper around a concrete client behind the
// same EventBus surface.
type RedisBus struct {
	client *redis.Client

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// NewRedisBus dials nothing eagerly; the client connects lazily on first
// command, matching go-redis idiom.
func NewRedisBus(addr, password string, db int) *RedisBus {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisBus{client: client}
}

// NewRedisBusFromClient wraps an already-configured client, used by tests
// with redismock.
func NewRedisBusFromClient(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis bus: ping failed: %w", err)
	}
	_, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.started = true
	log.Info().Msg("redis bus started")
	return nil
}

func (b *RedisBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return nil
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.started = false
	return b.client.Close()
}

// Publish is fire-and-forget: a PUBLISH failure is logged, never retried,
// for the three fixed topics.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return ErrBusNotStarted
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("redis bus publish failed")
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe spawns one goroutine per call pumping messages from Redis into
// handler. A subscriber only sees messages published after this call, since
// Redis Pub/Sub has no history or replay.
func (b *RedisBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return ErrBusNotStarted
	}

	pubsub := b.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("redis bus: subscribe to %s: %w", topic, err)
	}

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				record := Message{Topic: topic, Payload: []byte(msg.Payload)}
				if err := handler(ctx, record); err != nil {
					log.Error().Err(err).Str("topic", topic).Msg("bus handler returned error")
				}
			}
		}
	}()
	return nil
}

func (b *RedisBus) Health() HealthStatus {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return HealthStatus{Healthy: false, Status: "stopped"}
	}
	if err := b.client.Ping(context.Background()).Err(); err != nil {
		return HealthStatus{Healthy: false, Status: "unreachable: " + err.Error()}
	}
	return HealthStatus{Healthy: true, Status: "running"}
}
