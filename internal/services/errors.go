package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrVersion is returned on optimistic concurrency failures. The message
	// is part of the wire contract (E_VERSION -> 409).
	ErrVersion = errors.New("E_VERSION")

	// ErrForbidden is returned when the actor lacks the capability or
	// ownership relation an operation requires.
	ErrForbidden = errors.New("forbidden")
)

// PreconditionError reports a failed transition guard. Handlers surface it as
// a 400 with field-level details so the client can show the failure inline.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s: %s", e.Field, e.Reason)
}
