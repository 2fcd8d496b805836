package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no tenant/user identity could be resolved
	// for the request. Never downgraded to a permissive default.
	ErrUnauthenticated = errors.New("missing tenant or user context")

	// ErrForbidden means the identity resolved but holds no grant for the
	// requested action.
	ErrForbidden = errors.New("permission denied")

	// ErrUpstreamUnavailable means session setup (schema binding, timeout
	// configuration) itself failed. The request fails closed.
	ErrUpstreamUnavailable = errors.New("tenant session unavailable")
)

// ValidationError names the offending field so the caller can
// self-correct. Maps to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}

func WrongType(field string, expected FieldType) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("expected %s value", expected)}
}
