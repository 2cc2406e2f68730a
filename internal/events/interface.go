package events

import (
	"context"
)

// MessageInterface defines the interface for bus messages
// This enables better testability by allowing mock implementations
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEvent() *Event
}

// Bus is the interface for the lifecycle event bus
type Bus interface {
	// Publish adds an event to the bus
	Publish(ctx context.Context, event *Event) error

	// Consume returns a channel of messages from the bus
	// Messages are delivered asynchronously as they arrive
	// The caller is responsible for acknowledging each message
	// Prefetch controls how many unacknowledged messages each consumer can hold
	// Returns a channel that will be closed when the context is cancelled or an error occurs
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the bus connection
	Close() error

	// HealthCheck verifies the bus connection is healthy
	HealthCheck(ctx context.Context) error
}
