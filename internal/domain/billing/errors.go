package billing

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports malformed or out-of-range input. Callers must
// correct the input; the operation is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConflictError reports a disallowed state transition, such as deleting a
// paid bill without the administrative override.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// DuplicateBillError is returned when a bill already references the
// appointment a create targets. It carries the existing bill's id so the
// caller can redirect to it instead of treating the attempt as a failure.
type DuplicateBillError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateBillError) Error() string {
	return fmt.Sprintf("a bill already exists for this appointment: %s", e.ExistingID)
}

// NotFoundError reports an unknown or soft-deleted bill or appointment.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StorageError wraps persistence failures that are not translated into a
// more specific domain error. The core does not retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
