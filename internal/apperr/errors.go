package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP mapping.
type Kind string

const (
	KindNotConfigured Kind = "not_configured"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindProvider      Kind = "provider"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrNotConfigured = &Error{Kind: KindNotConfigured, Message: "not configured"}
	ErrValidation    = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict      = &Error{Kind: KindConflict, Message: "conflict"}
	ErrProvider      = &Error{Kind: KindProvider, Message: "provider error"}
)

// Error is the application error carried across package boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Fields maps request field names to messages for validation failures.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so wrapped errors match the package sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NotConfigured reports a missing credential or integration setting.
func NotConfigured(what string) *Error {
	return &Error{Kind: KindNotConfigured, Message: what + " is not configured"}
}

// Validation reports malformed caller input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown identifier.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports an operation that is invalid for the current state.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps a local failure such as a database error.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// Upstream wraps a failure of an external service other than the catalog
// provider, such as the payment processor.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindProvider, Message: message, Err: err}
}

// ProviderError is a normalized upstream failure.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrProvider) match any ProviderError.
func (e *ProviderError) Is(target error) bool {
	var t *Error
	return errors.As(target, &t) && t.Kind == KindProvider
}

// NewProviderError builds a ProviderError.
func NewProviderError(status int, message string) *ProviderError {
	return &ProviderError{Status: status, Message: message}
}

// InvalidResponse is returned when the provider body cannot be decoded.
func InvalidResponse() *ProviderError {
	return &ProviderError{Status: http.StatusBadGateway, Message: "invalid response"}
}

// Timeout is returned when an outbound call exceeds its deadline.
func Timeout() *ProviderError {
	return &ProviderError{Status: http.StatusGatewayTimeout, Message: "timeout"}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return KindProvider
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// HTTPStatus maps err onto the status code returned to API callers.
func HTTPStatus(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Status == http.StatusGatewayTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindProvider:
		return http.StatusBadGateway
	case KindNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
