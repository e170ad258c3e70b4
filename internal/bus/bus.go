// Package bus implements the control plane's pub/sub broker: a topic-based
// carrier for UTF-8 JSON records. Publishing is non-blocking and
// fire-and-forget; a subscriber sees every message published on its topic
// from the moment it subscribes onward, with no replay of messages that
// predate the subscription, no persistence, no per-subscriber
// acknowledgement, and no exactly-once guarantee.
//
// The interface is narrow on purpose: no partitions, no consumer groups,
// no administrative topic management.
package bus

import (
	"context"
	"time"
)

// Message is a single record delivered on a topic.
type Message struct {
	Topic     string
	Payload   []byte
	Timestamp time.Time
}

// Handler processes one delivered message. A returned error is logged by
// the caller and does not stop the subscription (subscribers MUST
// tolerate malformed messages and continue).
type Handler func(ctx context.Context, msg Message) error

// HealthStatus reports whether the bus is usable.
type HealthStatus struct {
	Healthy bool
	Status  string
}

// EventBus is the pub/sub contract every component depends on. Components
// never talk to a concrete broker directly so the transport (in-memory for
// tests, Redis in production) stays swappable.
type EventBus interface {
	// Start connects the bus. Must be called before Publish/Subscribe.
	Start(ctx context.Context) error
	// Stop disconnects the bus and releases subscriptions.
	Stop(ctx context.Context) error
	// Publish sends payload on topic. Non-blocking; failures are the
	// caller's to log, never retried by the bus itself.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe registers handler for every future message on topic.
	// Subscribe does not replay history.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	// Health reports current connectivity.
	Health() HealthStatus
}

// Topic names fixed across every component.
const (
	TopicAlerts  = "alerts"
	TopicActions = "actions"
	TopicResults = "results"
)
