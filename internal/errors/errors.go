// Package errors defines the service error taxonomy and its HTTP mapping.
package errors

import (
	"errors"
	"fmt"
)

// ErrNotFound marks reconciliation targets that no longer exist or no longer
// match the issue condition. Callers treat it as an idempotent no-op.
var ErrNotFound = errors.New("record not found")

// InvalidActionError is malformed input (self-action, unknown kind). Never
// retried; surfaced to the caller immediately.
type InvalidActionError struct {
	Reason string
}

func (e *InvalidActionError) Error() string {
	return "invalid action: " + e.Reason
}

// InvalidAction builds an InvalidActionError with a formatted reason.
func InvalidAction(format string, args ...any) error {
	return &InvalidActionError{Reason: fmt.Sprintf(format, args...)}
}

// PersistenceError is a transient storage failure on a single write or read.
// Callers retry with backoff; duplicate successful writes are tolerated by
// design, so retries are safe.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError for the named operation.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// PartialMigrationError reports a duplicate-conversation merge that moved
// some messages but not all. The duplicate conversation must not be deleted;
// re-running the fix completes the migration.
type PartialMigrationError struct {
	ConversationID string
	Remaining      int64
}

func (e *PartialMigrationError) Error() string {
	return fmt.Sprintf("partial message migration: %d messages still attached to conversation %s",
		e.Remaining, e.ConversationID)
}
