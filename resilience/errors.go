package resilience

import (
	"errors"
	"fmt"
)

// Code classifies a resilience failure. The set is closed: callers can
// switch over it exhaustively instead of matching message strings.
type Code string

const (
	// CodeCircuitOpen means the circuit breaker rejected the call.
	CodeCircuitOpen Code = "circuit_open"
	// CodeTimeout means the operation exceeded the breaker's call timeout.
	CodeTimeout Code = "timeout"
	// CodeConfig means a construction-time configuration failure.
	CodeConfig Code = "config"
)

// Error is the structured failure value returned by this package.
//
// It carries enough context (code, retryability, status, cause) that an
// outer layer can re-decide whether to retry without inspecting message
// text.
type Error struct {
	Code       Code
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resilience: %s: %v", e.Message, e.Cause)
	}
	return "resilience: " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so sentinel comparisons via
// errors.Is work for wrapped and freshly constructed values alike.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return e.Code == te.Code
}

// StatusCoder is implemented by errors that carry an HTTP-like status
// code, such as API client errors.
type StatusCoder interface {
	StatusCode() int
}

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	// Non-retryable: the caller should back off entirely.
	ErrCircuitOpen = &Error{Code: CodeCircuitOpen, Message: "circuit breaker is open"}

	// ErrTimeout is returned when an operation exceeds the call timeout.
	// Retryable: the dependency may recover on a later attempt.
	ErrTimeout = &Error{Code: CodeTimeout, Message: "operation timed out", Retryable: true}
)

// IsRetryable reports whether err explicitly declares itself retryable.
func IsRetryable(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

func configError(msg string, cause error) *Error {
	return &Error{Code: CodeConfig, Message: msg, Cause: cause}
}
