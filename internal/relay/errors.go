package relay

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a relay session failure
type ErrorType int

const (
	// ErrTypeConnection indicates the handshake failed after backoff ran out
	ErrTypeConnection ErrorType = iota
	// ErrTypeConnectionLost indicates a pending request was abandoned by an
	// unexpected disconnect
	ErrTypeConnectionLost
	// ErrTypeRequest indicates the hub returned a protocol-level error for a
	// specific method
	ErrTypeRequest
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnection:
		return "Connection Error"
	case ErrTypeConnectionLost:
		return "Connection Lost"
	case ErrTypeRequest:
		return "Request Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// SessionError represents a relay session failure
type SessionError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Method  string    // Protocol method involved (if applicable)
	Detail  string    // Server-provided error detail (if applicable)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *SessionError) Error() string {
	msg := e.Message
	if e.Method != "" {
		msg = fmt.Sprintf("%s (method %s)", msg, e.Method)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewConnectionError creates a handshake/transport failure
func NewConnectionError(message string, err error) *SessionError {
	return &SessionError{Type: ErrTypeConnection, Message: message, Err: err}
}

// NewConnectionLostError marks a request abandoned by a disconnect
func NewConnectionLostError(method string) *SessionError {
	return &SessionError{
		Type:    ErrTypeConnectionLost,
		Message: "request abandoned, connection lost before response",
		Method:  method,
	}
}

// NewRequestError creates a protocol-level failure reported by the hub
func NewRequestError(method, detail string) *SessionError {
	return &SessionError{
		Type:    ErrTypeRequest,
		Message: "hub rejected request",
		Method:  method,
		Detail:  detail,
	}
}

func sessionErrType(err error) (ErrorType, bool) {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Type, true
	}
	return 0, false
}

// IsConnectionError checks if an error is a handshake/transport failure
func IsConnectionError(err error) bool {
	t, ok := sessionErrType(err)
	return ok && t == ErrTypeConnection
}

// IsConnectionLostError checks if an error marks an abandoned request
func IsConnectionLostError(err error) bool {
	t, ok := sessionErrType(err)
	return ok && t == ErrTypeConnectionLost
}

// IsRequestError checks if an error is a protocol-level failure
func IsRequestError(err error) bool {
	t, ok := sessionErrType(err)
	return ok && t == ErrTypeRequest
}
