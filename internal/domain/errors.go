package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrConflict     = errors.New("domain: conflict")
	ErrInvalidInput = errors.New("domain: invalid input")

	ErrUnauthenticated = errors.New("domain: unauthenticated")
	ErrNotAuthorized   = errors.New("domain: not authorized")

	ErrCannotAcceptOwnTask    = errors.New("domain: cannot accept own task")
	ErrTaskNotAvailable       = errors.New("domain: task not available")
	ErrTaskAlreadyFinal       = errors.New("domain: task already final")
	ErrInvalidPhaseTransition = errors.New("domain: invalid phase transition")
	ErrContentBlocked         = errors.New("domain: content blocked")
)

// ContentBlockedError carries the moderation reason for a rejected submission.
type ContentBlockedError struct {
	Category string
	Reason   string
}

func (e *ContentBlockedError) Error() string {
	return fmt.Sprintf("content blocked (%s): %s", e.Category, e.Reason)
}

func (e *ContentBlockedError) Unwrap() error {
	return ErrContentBlocked
}
