// Package errors provides typed errors for extscan-runner
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrConfig indicates a configuration error
	ErrConfig ErrorType = iota
	// ErrNetwork indicates a connection or timeout failure
	ErrNetwork
	// ErrRateLimited indicates the analysis service throttled the request
	ErrRateLimited
	// ErrServer indicates a 5xx response from the analysis service
	ErrServer
	// ErrClient indicates a non-rate-limit 4xx response (permanent)
	ErrClient
	// ErrIntegrity indicates a cache entry failed signature verification
	ErrIntegrity
	// ErrStore indicates a cache store failure (corruption, unopenable)
	ErrStore
	// ErrResponseTooLarge indicates a response body exceeded the size ceiling
	ErrResponseTooLarge
	// ErrValidation indicates an input validation error
	ErrValidation
)

// ScanError is the base error type for all extscan-runner errors
type ScanError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}

	// RetryAfter carries the server-supplied delay hint for rate-limit
	// responses. Zero when the server gave none.
	RetryAfter time.Duration
}

// Error returns the error message
func (e *ScanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", errorTypeString(e.Type), e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", errorTypeString(e.Type), e.Message)
}

// Unwrap returns the underlying cause
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// New creates a new ScanError
func New(errType ErrorType, message string, cause error) *ScanError {
	return &ScanError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *ScanError) WithContext(key string, value interface{}) *ScanError {
	e.Context[key] = value
	return e
}

// WithRetryAfter attaches a server-supplied retry delay hint
func (e *ScanError) WithRetryAfter(d time.Duration) *ScanError {
	e.RetryAfter = d
	return e
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var scanErr *ScanError
	if err == nil {
		return false
	}
	if errors.As(err, &scanErr) {
		return scanErr.Type == errType
	}
	return false
}

// IsRetryable returns true if the error is transient and retryable.
// Rate limits, 5xx responses, and connection/timeout failures retry;
// everything else is permanent.
func IsRetryable(err error) bool {
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		return false
	}

	switch scanErr.Type {
	case ErrNetwork, ErrRateLimited, ErrServer:
		return true
	default:
		return false
	}
}

// RetryAfterHint extracts the server-supplied retry delay from an error.
// Returns zero if the error carries no hint.
func RetryAfterHint(err error) time.Duration {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.RetryAfter
	}
	return 0
}

func errorTypeString(et ErrorType) string {
	switch et {
	case ErrConfig:
		return "CONFIG"
	case ErrNetwork:
		return "NETWORK"
	case ErrRateLimited:
		return "RATE_LIMITED"
	case ErrServer:
		return "SERVER"
	case ErrClient:
		return "CLIENT"
	case ErrIntegrity:
		return "INTEGRITY"
	case ErrStore:
		return "STORE"
	case ErrResponseTooLarge:
		return "RESPONSE_TOO_LARGE"
	case ErrValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// Convenience functions for common errors

// ConfigError creates a configuration error
func ConfigError(message string, cause error) *ScanError {
	return New(ErrConfig, message, cause)
}

// NetworkError creates a connection/timeout error
func NetworkError(message string, cause error) *ScanError {
	return New(ErrNetwork, message, cause)
}

// RateLimitedError creates a rate-limit error
func RateLimitedError(message string, cause error) *ScanError {
	return New(ErrRateLimited, message, cause)
}

// ServerError creates a 5xx server error
func ServerError(message string, cause error) *ScanError {
	return New(ErrServer, message, cause)
}

// ClientError creates a permanent 4xx error
func ClientError(message string, cause error) *ScanError {
	return New(ErrClient, message, cause)
}

// IntegrityError creates a signature verification error
func IntegrityError(message string, cause error) *ScanError {
	return New(ErrIntegrity, message, cause)
}

// StoreError creates a cache store error
func StoreError(message string, cause error) *ScanError {
	return New(ErrStore, message, cause)
}

// ResponseTooLargeError creates an oversized-response error
func ResponseTooLargeError(message string, cause error) *ScanError {
	return New(ErrResponseTooLarge, message, cause)
}

// ValidationError creates a validation error
func ValidationError(message string, cause error) *ScanError {
	return New(ErrValidation, message, cause)
}
