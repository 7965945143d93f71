package core

import (
	"context"
	"time"
)

// OperationType represents the kind of mutation a change event describes.
type OperationType string

const (
	// OperationCreate represents an INSERT.
	OperationCreate OperationType = "created"

	// OperationUpdate represents an UPDATE.
	OperationUpdate OperationType = "updated"

	// OperationDelete represents a DELETE.
	OperationDelete OperationType = "deleted"
)

// ChangeEvent describes one committed mutation of a resource record.
type ChangeEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Resource is the plural name of the resource that changed.
	Resource string `json:"resource"`

	// Operation is the kind of mutation.
	Operation OperationType `json:"operation"`

	// RecordID is the primary key of the affected record.
	RecordID int64 `json:"record_id"`

	// Record is the record as stored after the mutation.
	// For deletes this is nil.
	Record Record `json:"record,omitempty"`

	// Timestamp is when the mutation was committed.
	Timestamp time.Time `json:"timestamp"`

	// RetryCount tracks how many delivery attempts have failed.
	RetryCount int `json:"-"`
}

// EventPublisher accepts change events for asynchronous delivery.
// Publish must not block on the downstream sink.
type EventPublisher interface {
	Publish(ctx context.Context, event *ChangeEvent) error
}
