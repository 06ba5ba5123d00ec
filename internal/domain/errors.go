package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the identifier has no live record.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate maps to a uniqueness violation in the store.
	ErrDuplicate = errors.New("duplicate resource")
)

// ValidationError marks malformed or missing input fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
