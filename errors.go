package qsim

import (
	"errors"
	"fmt"
)

/*
ErrorKind classifies every failure that can cross the API boundary.
The set is closed: callers can switch exhaustively on it and build a
fallback strategy per kind instead of parsing error strings.
*/
type ErrorKind string

const (
	// CapacityError means an allocation would exceed the configured
	// memory ceiling, either for one circuit or across all of them.
	CapacityError ErrorKind = "CapacityError"

	// DuplicateIdError means the caller reused an identifier that is
	// already registered.
	DuplicateIdError ErrorKind = "DuplicateIdError"

	// UnknownCircuitError means no circuit is registered under the id.
	UnknownCircuitError ErrorKind = "UnknownCircuitError"

	// UnknownProblemError means no search problem is registered under
	// the id.
	UnknownProblemError ErrorKind = "UnknownProblemError"

	// InvalidQubitIndexError means a qubit index is out of range for
	// the addressed circuit, or a qubit count is not positive.
	InvalidQubitIndexError ErrorKind = "InvalidQubitIndexError"

	// InvalidGateError means a gate could not be constructed: unknown
	// kind, wrong arity, non-finite parameter, or a non-unitary matrix.
	InvalidGateError ErrorKind = "InvalidGateError"

	// InvalidProblemError means a search problem is malformed: no
	// objective, no expander, or no seed candidates.
	InvalidProblemError ErrorKind = "InvalidProblemError"

	// ConcurrencyConflictError means two callers raced on the same
	// circuit in a mode where the conflict is rejected rather than
	// serialized.
	ConcurrencyConflictError ErrorKind = "ConcurrencyConflictError"

	// CanceledError means a search run was canceled at an iteration
	// boundary; partial results up to that boundary are still valid.
	CanceledError ErrorKind = "CanceledError"

	// UnavailableError means the subsystem is uninitialized or has been
	// taken offline; callers must never mistake this for a result.
	UnavailableError ErrorKind = "UnavailableError"
)

// Error is the structured failure type carried across the API boundary.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

/*
KindOf extracts the classification from an error returned by this
package. Errors from elsewhere map to UnavailableError, since an
unclassified internal fault must degrade explicitly rather than leak.
*/
func KindOf(err error) ErrorKind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return UnavailableError
}
