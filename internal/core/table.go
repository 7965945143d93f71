package core

import (
	"context"
)

// Gateway defines the storage operations available for one resource.
// Every call round-trips to the database; nothing is cached between calls.
type Gateway interface {
	// ListAll returns every record ordered by ascending primary key.
	ListAll(ctx context.Context) ([]Record, error)

	// GetByID returns the record with the given primary key.
	// Returns ErrNotFound when no record matches.
	GetByID(ctx context.Context, id int64) (Record, error)

	// Create inserts a new record and returns it as stored, including
	// the generated primary key.
	// Returns a *ValidationError when the fields violate table constraints.
	Create(ctx context.Context, fields Record) (Record, error)

	// Update merges fields onto the existing record and returns the result.
	// Returns ErrNotFound when no record matches; it never inserts.
	Update(ctx context.Context, id int64, fields Record) (Record, error)

	// DeleteByID removes the record with the given primary key.
	// Returns ErrNotFound when no record matches.
	DeleteByID(ctx context.Context, id int64) error
}
