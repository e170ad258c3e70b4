package bus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MemoryBus is an in-process EventBus used by tests and single-binary demo
// wiring. Publish delivers asynchronously (in a goroutine per handler) to
// every handler registered at the time of the call, and returns without
// waiting for the handlers.
type MemoryBus struct {
	mu          sync.RWMutex
	started     bool
	subscribers map[string][]Handler
}

// NewMemoryBus constructs an unconnected in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subscribers: make(map[string][]Handler),
	}
}

func (b *MemoryBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	return nil
}

func (b *MemoryBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	return nil
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[topic]...)
	started := b.started
	b.mu.RUnlock()

	if !started {
		return ErrBusNotStarted
	}

	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...), Timestamp: time.Now()}
	for _, h := range handlers {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("topic", topic).Msg("bus handler panicked")
				}
			}()
			if err := h(ctx, msg); err != nil {
				log.Error().Err(err).Str("topic", topic).Msg("bus handler returned error")
			}
		}()
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return ErrBusNotStarted
	}
	b.subscribers[topic] = append(b.subscribers[topic], handler)
	return nil
}

func (b *MemoryBus) Health() HealthStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.started {
		return HealthStatus{Healthy: true, Status: "running"}
	}
	return HealthStatus{Healthy: false, Status: "stopped"}
}
