package service

import (
	"errors"
	"fmt"
)

// Workflow error taxonomy. Every error here is rejected before (or rolls
// back) the surrounding transaction, so the caller never observes a
// half-settled ledger and may retry the whole operation.
var (
	// ErrInvalidTransition means the operation is not legal from the work
	// order's current status.
	ErrInvalidTransition = errors.New("invalid work order status transition")

	// ErrAlreadyProcessed means the approval left pending_approval before
	// this operation committed; a retry or double-click, safe to surface
	// as-is without any side effect having happened.
	ErrAlreadyProcessed = errors.New("approval already processed")

	// ErrInventoryExceeded means a declared usage quantity exceeds the
	// technician's visible stock at submission time.
	ErrInventoryExceeded = errors.New("declared usage exceeds technician inventory")

	// ErrNotFound wraps missing rows for handlers to map onto 404.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor does not own or administer the target.
	ErrForbidden = errors.New("access denied")
)

// ValidationError marks user-correctable input problems (empty report, blank
// rejection reason, non-positive quantity). Nothing is written when one is
// returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
