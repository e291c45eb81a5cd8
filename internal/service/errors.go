package service

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule failure so transports can map it to a
// status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a failure the caller can act on. Anything else returned by a
// service is an internal error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

func notFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// ErrAlreadyPaid is returned when a paid order is confirmed again.
var ErrAlreadyPaid = &Error{Kind: KindConflict, Message: "order is already paid"}

// ErrInsufficientStock is returned when a tier cannot cover an order line
// at confirmation time.
var ErrInsufficientStock = &Error{Kind: KindValidation, Message: "insufficient stock"}

// KindOf returns the kind of a service error, or 0 for internal errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
