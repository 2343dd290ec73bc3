package message

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every DecodeError.
	ErrDecode = errors.New("message: decode failed")

	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("message: validation failed")

	// ErrUnsupportedOperation is returned by Status for messages or payloads
	// that carry no status.
	ErrUnsupportedOperation = errors.New("message: unsupported operation")

	// ErrInvalidKind is returned when a Kind string is not recognised.
	ErrInvalidKind = errors.New("message: invalid kind")
)

// DecodeError reports that a frame matched none of the candidate shapes.
// Reason describes the last structural mismatch seen.
type DecodeError struct {
	Expected Kind
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("message: cannot decode as %s: %s", e.Expected, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ValidationError reports a field that is present and well-typed but violates
// a constraint.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("message: invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
