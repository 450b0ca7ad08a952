package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, branchable classification of a domain failure.
type ErrorKind string

const (
	ErrNotFound              ErrorKind = "not_found"
	ErrInvalidState          ErrorKind = "invalid_state"
	ErrInvalidAmount         ErrorKind = "invalid_amount"
	ErrInsufficientFunds     ErrorKind = "insufficient_funds"
	ErrInsufficientLevel     ErrorKind = "insufficient_level"
	ErrPurchaseLimitExceeded ErrorKind = "purchase_limit_exceeded"
	ErrGateway               ErrorKind = "gateway_error"
	ErrReplayConflict        ErrorKind = "replay_conflict"
	ErrInternal              ErrorKind = "internal"
)

// Error carries a kind plus a human-readable message. Internal causes stay
// wrapped and never cross the API boundary.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind from any error in the chain, defaulting to
// ErrInternal for untyped failures.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
