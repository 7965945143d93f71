package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id does not refer to a live record.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable is matched by every storage failure that is not
	// caused by the request itself (connection loss, timeout, driver fault).
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports fields that violate the resource's constraints.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MalformedRequestError reports a request that cannot be interpreted at all,
// such as a non-numeric path id or an undecodable body.
type MalformedRequestError struct {
	Reason string
}

func (e *MalformedRequestError) Error() string {
	return e.Reason
}

// StorageError wraps a storage failure with the operation context needed to
// diagnose it. Its text must never reach a client.
type StorageError struct {
	Operation string
	Resource  string
	ID        *int64
	Err       error
}

func (e *StorageError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s %s id=%d: %v", e.Operation, e.Resource, *e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Resource, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes every StorageError match ErrStorageUnavailable.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsMalformed reports whether err is, or wraps, a *MalformedRequestError.
func IsMalformed(err error) bool {
	var me *MalformedRequestError
	return errors.As(err, &me)
}
