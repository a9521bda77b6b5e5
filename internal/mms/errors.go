package mms

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a credential chain failure
type ErrorType int

const (
	// ErrTypeAuthentication indicates the portal login was rejected or unreachable
	ErrTypeAuthentication ErrorType = iota
	// ErrTypeSession indicates the session token could not be obtained
	ErrTypeSession
	// ErrTypeDeviceLookup indicates the device listing failed or was empty
	ErrTypeDeviceLookup
	// ErrTypeRelayResolution indicates the relay assignment could not be fetched
	ErrTypeRelayResolution
	// ErrTypeMalformedResponse indicates a body that could not be parsed as expected
	ErrTypeMalformedResponse
	// ErrTypeHTTP indicates an HTTP-level failure (non-2xx status, error_text body)
	ErrTypeHTTP
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeAuthentication:
		return "Authentication Error"
	case ErrTypeSession:
		return "Session Error"
	case ErrTypeDeviceLookup:
		return "Device Lookup Error"
	case ErrTypeRelayResolution:
		return "Relay Resolution Error"
	case ErrTypeMalformedResponse:
		return "Malformed Response"
	case ErrTypeHTTP:
		return "HTTP Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ChainError represents a failure in one link of the credential chain. The
// failing link is identified by Type and the triggering error is preserved
// for errors.Is/As inspection.
type ChainError struct {
	Type       ErrorType // Category / failing chain link
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *ChainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ChainError) Unwrap() error {
	return e.Err
}

// NewAuthenticationError creates a portal login failure
func NewAuthenticationError(message string, err error) *ChainError {
	return &ChainError{Type: ErrTypeAuthentication, Message: message, Err: err}
}

// NewSessionError creates a session token failure
func NewSessionError(message string, err error) *ChainError {
	return &ChainError{Type: ErrTypeSession, Message: message, Err: err}
}

// NewDeviceLookupError creates a device listing failure
func NewDeviceLookupError(message string, err error) *ChainError {
	return &ChainError{Type: ErrTypeDeviceLookup, Message: message, Err: err}
}

// NewRelayResolutionError creates a relay assignment failure
func NewRelayResolutionError(message string, err error) *ChainError {
	return &ChainError{Type: ErrTypeRelayResolution, Message: message, Err: err}
}

// NewMalformedResponseError creates a parse failure
func NewMalformedResponseError(message string, err error) *ChainError {
	return &ChainError{Type: ErrTypeMalformedResponse, Message: message, Err: err}
}

// NewHTTPError creates an HTTP-level failure
func NewHTTPError(statusCode int, message string) *ChainError {
	return &ChainError{Type: ErrTypeHTTP, Message: message, StatusCode: statusCode}
}

func errType(err error) (ErrorType, bool) {
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Type, true
	}
	return 0, false
}

// IsAuthenticationError checks if an error is a portal login failure
func IsAuthenticationError(err error) bool {
	t, ok := errType(err)
	return ok && t == ErrTypeAuthentication
}

// IsSessionError checks if an error is a session token failure
func IsSessionError(err error) bool {
	t, ok := errType(err)
	return ok && t == ErrTypeSession
}

// IsDeviceLookupError checks if an error is a device listing failure
func IsDeviceLookupError(err error) bool {
	t, ok := errType(err)
	return ok && t == ErrTypeDeviceLookup
}

// IsRelayResolutionError checks if an error is a relay assignment failure
func IsRelayResolutionError(err error) bool {
	t, ok := errType(err)
	return ok && t == ErrTypeRelayResolution
}

// IsMalformedResponseError checks if an error is a parse failure
func IsMalformedResponseError(err error) bool {
	t, ok := errType(err)
	return ok && t == ErrTypeMalformedResponse
}

// IsHTTPError checks if an error is an HTTP-level failure
func IsHTTPError(err error) bool {
	t, ok := errType(err)
	return ok && t == ErrTypeHTTP
}
