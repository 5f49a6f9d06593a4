// Package apperr is the error taxonomy shared by every workflow. Handlers map
// a Kind to an HTTP status once, at the boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUpstream Kind = iota
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	default:
		return "UpstreamFailure"
	}
}

// Error carries a client-facing message, optional details and the cause.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Invalid(msg string, details any) error {
	return &Error{Kind: KindInvalidInput, Message: msg, Details: details}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Upstream wraps a database or third-party failure.
func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// KindOf reports the kind of err. Errors outside the taxonomy are upstream failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Status maps err to the HTTP status code of its kind.
func Status(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message of err; upstream failures only
// reveal their cause when verbose is set.
func Message(err error, verbose bool) string {
	var e *Error
	if !errors.As(err, &e) {
		if verbose {
			return err.Error()
		}
		return "Internal server error"
	}
	if e.Kind == KindUpstream && verbose {
		return e.Error()
	}
	return e.Message
}

// DetailsOf returns the structured details attached to err, if any.
func DetailsOf(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
