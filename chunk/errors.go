package chunk

import "errors"

// Kind is a stable category for programmatic error handling.
//
// KindIO means the chunk could not be checked. Every other kind means the chunk was
// checked and rejected; see Rejected.
type Kind string

const (
	KindName       Kind = "Name"
	KindUnhashable Kind = "Unhashable"
	KindMismatch   Kind = "Mismatch"
	KindSignature  Kind = "Signature"
	KindFormat     Kind = "Format"
	KindIO         Kind = "IO"
)

// Error is the structured validation error.
//
// RuleID is a stable identifier (e.g., CHUNK-NAME-001, CHUNK-HASH-002) naming the
// violated rule. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// Rejected reports whether err means "checked and invalid", as opposed to nil
// (valid) or an I/O failure that prevented the check.
func Rejected(err error) bool {
	return err != nil && !IsKind(err, KindIO)
}

// result folds a check error into the boolean contract: validation failures become
// (false, nil), I/O failures are returned.
func result(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case IsKind(err, KindIO):
		return false, err
	default:
		return false, nil
	}
}
