package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so the transport layer can pick a status code
// without inspecting error strings.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
)

type Error struct {
	Kind    Kind
	Message string
	// Field names the conflicting or invalid input field, when known.
	// Forbidden errors never carry a field.
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode lets the error middleware map the failure to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Forbidden deliberately takes no detail: authorization failures must not
// reveal which permission was missing.
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: "forbidden"}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func Conflict(message, field string) *Error {
	return &Error{Kind: KindConflict, Message: message, Field: field}
}

func Validation(message, field string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
