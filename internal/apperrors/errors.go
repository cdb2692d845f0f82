// Package apperrors defines the stable error kinds surfaced by the item
// service. Callers never see raw storage errors; every failure is wrapped
// into one of these kinds with a human-readable message.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the target item is missing or soft-deleted.
	KindNotFound
	// KindForbidden: the target exists but belongs to another owner.
	KindForbidden
	// KindInvalidParent: the requested parent does not exist or is not a folder.
	KindInvalidParent
	// KindInvalidMove: the destination is the source or one of its descendants.
	KindInvalidMove
	// KindNameConflict: a sibling already holds the name, or the numbered
	// retry bound was exhausted.
	KindNameConflict
	// KindMalformedEntry: a file row is missing its blob key.
	KindMalformedEntry
	// KindValidation: missing or malformed input fields.
	KindValidation
	// KindInternal: unexpected storage failure.
	KindInternal
)

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

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidParent, KindInvalidMove:
		return http.StatusBadRequest
	case KindNameConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
