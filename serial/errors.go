package serial

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated    = errors.New("serial: truncated input")
	ErrMalformed    = errors.New("serial: malformed input")
	ErrTrailingData = errors.New("serial: trailing data after last value")
)

// FormatError reports input that does not decode to the requested value sequence.
//
// Offset is the byte position at which decoding failed. Err is one of ErrTruncated,
// ErrMalformed or ErrTrailingData, optionally wrapping a more specific cause.
type FormatError struct {
	Offset int64
	Err    error
}

func (e *FormatError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v (offset %d)", e.Err, e.Offset)
}

func (e *FormatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsFormatError reports whether err is (or wraps) a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// malformed wraps cause so that errors.Is(err, ErrMalformed) holds.
func malformed(cause error) error {
	if cause == nil {
		return ErrMalformed
	}
	return fmt.Errorf("%w: %w", ErrMalformed, cause)
}
