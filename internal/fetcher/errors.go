package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the category of error that occurred during a fetch operation
type ErrorType string

const (
	// ErrorTypeInput indicates the caller supplied a malformed identifier or symbol
	ErrorTypeInput ErrorType = "invalid_input"
	// ErrorTypeConfig indicates a required credential or setting is missing
	ErrorTypeConfig ErrorType = "configuration"
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit indicates the request was rejected due to rate limiting (HTTP 429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates a server error (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeNotFound indicates the provider does not know the requested asset (HTTP 404)
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeClient indicates a client error (HTTP 4xx except 404 and 429)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeValidation indicates the response was received but data validation failed
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout indicates the request timed out
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeUnknown indicates an error of unknown type
	ErrorTypeUnknown ErrorType = "unknown"
)

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the plain-language text placed in a record's error field
func (e *FetchError) UserMessage(provider string) string {
	switch e.Type {
	case ErrorTypeNotFound:
		return fmt.Sprintf("%s: asset not found", provider)
	case ErrorTypeRateLimit:
		return fmt.Sprintf("%s: rate limited, try again later", provider)
	case ErrorTypeServer:
		return fmt.Sprintf("%s: provider unavailable", provider)
	case ErrorTypeTimeout:
		return fmt.Sprintf("%s: request timed out", provider)
	case ErrorTypeNetwork:
		return fmt.Sprintf("%s: provider unreachable", provider)
	case ErrorTypeClient, ErrorTypeUnknown:
		return fmt.Sprintf("%s: request failed (HTTP %d)", provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s", provider, e.Message)
	}
}

// NewInputError creates an input validation error
func NewInputError(message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeInput,
		Message: message,
	}
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeConfig,
		Message: message,
	}
}

// NewNetworkError creates a network error
func NewNetworkError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeRateLimit,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
	}
}

// NewServerError creates a server error
func NewServerError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeServer,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "server returned an error",
	}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeNotFound,
		StatusCode: statusCode,
		Message:    "resource not found",
	}
}

// NewClientError creates a client error
func NewClientError(statusCode int, message string) *FetchError {
	return &FetchError{
		Type:       ErrorTypeClient,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeValidation,
		Retryable: false,
		Message:   message,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == 404:
		return NewNotFoundError(statusCode)
	case statusCode == 429:
		return NewRateLimitError(statusCode)
	case statusCode >= 500:
		return NewServerError(statusCode)
	case statusCode >= 400:
		return NewClientError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return &FetchError{
			Type:       ErrorTypeUnknown,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

// ClassifyTransportError turns an error returned by the HTTP client into a FetchError.
// Context expiry is reported as a timeout so callers treat it like any provider failure.
func ClassifyTransportError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	return NewNetworkError(err)
}

// IsInputError reports whether err is an input validation error
func IsInputError(err error) bool {
	return hasType(err, ErrorTypeInput)
}

// IsConfigError reports whether err is a configuration error
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

func hasType(err error, t ErrorType) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == t
}
