package core

import (
	"context"
)

// EventSink defines the interface for a change-event destination.
// Implementations exist for structured logs, Redis lists, Kafka topics and
// DynamoDB audit tables.
type EventSink interface {
	// Deliver writes a single event to the destination.
	// Returning an error makes the caller retry with backoff.
	Deliver(ctx context.Context, event *ChangeEvent) error

	// Type returns the sink type identifier (e.g. "kafka").
	Type() string

	// Close releases the connection to the destination.
	Close() error
}
