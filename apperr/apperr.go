// Package apperr defines the error taxonomy used across the API and its
// single mapping to HTTP status codes. Handlers never hand-roll status
// codes for domain failures; they wrap or return one of these kinds.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	// Validation covers malformed or missing input and shape mismatches.
	Validation Kind = iota
	// NotFound covers missing communities, posts, comments and users.
	NotFound
	// Authorization covers mutation attempts by non-authors/non-admins.
	Authorization
	// Authentication covers missing or invalid credentials.
	Authentication
	// Upstream covers object-store, push-transport and database failures.
	Upstream
)

// Error carries a kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to an Error of the given kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Status maps an error to its HTTP status code. Unclassified errors are
// treated as upstream failures.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Authorization:
		return http.StatusForbidden
	case Authentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the message safe to expose to clients. Causes and
// stack details never cross the boundary.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
