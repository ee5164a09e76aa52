package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a notification id does not exist.
	ErrNotFound = errors.New("notification not found")
	// ErrForbidden is returned when the caller is not the recipient.
	ErrForbidden = errors.New("notification belongs to another user")
	// ErrPersistence wraps failures of the underlying store.
	ErrPersistence = errors.New("notification store failure")
)

// ValidationError rejects caller input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
