// Package apperr is the error taxonomy shared by the store, the lending engine
// and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	NotFound            Kind = "not_found"
	Conflict            Kind = "conflict"
	ConstraintViolation Kind = "constraint_violation"
	Busy                Kind = "busy"
	Validation          Kind = "validation"
	Internal            Kind = "internal"
)

// Error carries a Kind plus a user-facing message. Field is set for
// constraint violations (e.g. "nim", "rfid_uid").
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Duplicate(field string, err error) *Error {
	return &Error{Kind: ConstraintViolation, Message: "duplicate " + field, Field: field, Err: err}
}

// KindOf returns Internal for anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// Message returns the user-facing text, or "" for unclassified errors.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

// FieldOf returns the offending field of a constraint violation.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
