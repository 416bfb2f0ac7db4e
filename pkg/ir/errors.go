package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode is the stable, machine-readable classification of a failure.
type ErrorCode string

// Error code constants
const (
	// ErrCodeValidation marks malformed or missing caller input.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeAuthentication marks a rejected credential (HTTP 401/403).
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION_ERROR"

	// ErrCodeRateLimit marks a provider rate limit (HTTP 429).
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT_ERROR"

	// ErrCodeProvider marks a generic provider-side failure.
	ErrCodeProvider ErrorCode = "PROVIDER_ERROR"

	// ErrCodeNetwork marks a transport-level failure before a response.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"

	// ErrCodeTimeout marks an exceeded deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT_ERROR"

	// ErrCodeStream marks a mid-stream abort.
	ErrCodeStream ErrorCode = "STREAM_ERROR"

	// ErrCodeConversion marks an adapter translation failure; it
	// indicates a format mismatch, not a transient condition.
	ErrCodeConversion ErrorCode = "ADAPTER_CONVERSION_ERROR"

	// ErrCodeRoutingFailed marks a strategy unable to choose a backend.
	ErrCodeRoutingFailed ErrorCode = "ROUTING_FAILED"

	// ErrCodeNoBackendAvailable marks an empty candidate set (all
	// circuits open or health-failed).
	ErrCodeNoBackendAvailable ErrorCode = "NO_BACKEND_AVAILABLE"

	// ErrCodeAllBackendsFailed marks an exhausted fallback chain.
	ErrCodeAllBackendsFailed ErrorCode = "ALL_BACKENDS_FAILED"

	// ErrCodeCircuitOpen marks a call rejected by an open circuit
	// breaker without reaching the network.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_BREAKER_OPEN"

	// ErrCodeProviderUnavailable marks a provider reporting itself down
	// (HTTP 503).
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"

	// ErrCodeInternal marks a bug: a panic, an invariant violation, or
	// an unclassified failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Retryable reports the default retryability of the code. Rate limits,
// transient provider and transport failures, and open circuits are worth
// retrying; caller mistakes, credential failures, and translation bugs are
// not. Stream aborts are not retried because the consumer may already have
// observed part of the stream.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrCodeRateLimit, ErrCodeProvider, ErrCodeNetwork, ErrCodeTimeout,
		ErrCodeNoBackendAvailable, ErrCodeCircuitOpen, ErrCodeProviderUnavailable:
		return true
	}
	return false
}

// Error is the single classified error type crossing component boundaries.
// Every failure the gateway surfaces is an *Error carrying a stable code,
// a retryability flag, and the backend that produced it.
type Error struct {
	// Code is the stable classification.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Backend names the backend that produced the failure ("" when the
	// failure is not backend-specific).
	Backend string

	// HTTPStatus is the provider HTTP status (0 if not applicable).
	HTTPStatus int

	// Retryable reports whether retrying the same call may succeed.
	Retryable bool

	// RetryAfter is the provider-suggested wait before retrying
	// (0 if not provided).
	RetryAfter time.Duration

	// Attempted lists the backends tried before this failure, for
	// routing-level aggregates.
	Attempted []string

	// Errs holds the per-backend failures behind an aggregate error.
	Errs []error

	// Cause is the wrapped underlying error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	if e.Backend != "" {
		fmt.Fprintf(&sb, " [backend %q]", e.Backend)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

// Unwrap returns the wrapped cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so errors.Is(err, &Error{Code: c})
// works alongside errors.As.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithBackend returns a copy of the error attributed to backend. Errors
// already carrying a backend name keep it.
func (e *Error) WithBackend(backend string) *Error {
	if e.Backend != "" {
		return e
	}
	out := *e
	out.Backend = backend
	return &out
}

// NewError returns a classified error with the code's default
// retryability.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: code.Retryable()}
}

// Errorf returns a classified error with a formatted message.
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError classifies an underlying error. If cause is already an
// *Error it is returned unchanged so classification sticks to the first
// component that assigned it.
func WrapError(code ErrorCode, cause error, message string) *Error {
	var classified *Error
	if errors.As(cause, &classified) {
		return classified
	}
	e := NewError(code, message)
	e.Cause = cause
	return e
}

// AsError extracts the classified error from err's chain, or nil when
// the chain holds none.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// CodeOf returns the classification of err, mapping unclassified errors
// to ErrCodeInternal and nil to "".
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if e := AsError(err); e != nil {
		return e.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether err carries a retryable classification.
// Unclassified errors are not retried.
func IsRetryable(err error) bool {
	if e := AsError(err); e != nil {
		return e.Retryable
	}
	return false
}

// IsCode reports whether err's classification matches code.
func IsCode(err error, code ErrorCode) bool {
	if e := AsError(err); e != nil {
		return e.Code == code
	}
	return false
}

// errorWire is the JSON encoding of an Error. Nested errors flatten to
// strings: a decoded Error keeps the text but not the original chain.
type errorWire struct {
	Code         ErrorCode `json:"code"`
	Message      string    `json:"message,omitempty"`
	Backend      string    `json:"backend,omitempty"`
	HTTPStatus   int       `json:"httpStatus,omitempty"`
	Retryable    bool      `json:"retryable"`
	RetryAfterMS int64     `json:"retryAfterMs,omitempty"`
	Attempted    []string  `json:"attempted,omitempty"`
	Errs         []string  `json:"errors,omitempty"`
	Cause        string    `json:"cause,omitempty"`
}

// MarshalJSON encodes the error for wire transport.
func (e *Error) MarshalJSON() ([]byte, error) {
	w := errorWire{
		Code:         e.Code,
		Message:      e.Message,
		Backend:      e.Backend,
		HTTPStatus:   e.HTTPStatus,
		Retryable:    e.Retryable,
		RetryAfterMS: e.RetryAfter.Milliseconds(),
		Attempted:    e.Attempted,
	}
	for _, sub := range e.Errs {
		w.Errs = append(w.Errs, sub.Error())
	}
	if e.Cause != nil {
		w.Cause = e.Cause.Error()
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a wire-encoded error.
func (e *Error) UnmarshalJSON(data []byte) error {
	var w errorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Error{
		Code:       w.Code,
		Message:    w.Message,
		Backend:    w.Backend,
		HTTPStatus: w.HTTPStatus,
		Retryable:  w.Retryable,
		RetryAfter: time.Duration(w.RetryAfterMS) * time.Millisecond,
		Attempted:  w.Attempted,
	}
	for _, sub := range w.Errs {
		e.Errs = append(e.Errs, errors.New(sub))
	}
	if w.Cause != "" {
		e.Cause = errors.New(w.Cause)
	}
	return nil
}
