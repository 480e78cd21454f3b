package domain

import (
	"errors"
	"fmt"
)

// Kind tags an outcome the same way for errors and plain messages.
type Kind string

const (
	KindBooked           Kind = "Booked"
	KindNotBooked        Kind = "NotBooked"
	KindNotFound         Kind = "NotFound"
	KindNotOwner         Kind = "NotOwner"
	KindInvalidPayload   Kind = "InvalidPayload"
	KindPaymentFailed    Kind = "PaymentFailed"
	KindPaymentCompleted Kind = "PaymentCompleted"
)

var (
	ErrBooked         = &Error{Kind: KindBooked}
	ErrNotBooked      = &Error{Kind: KindNotBooked}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrNotOwner       = &Error{Kind: KindNotOwner}
	ErrInvalidPayload = &Error{Kind: KindInvalidPayload}
	ErrPaymentFailed  = &Error{Kind: KindPaymentFailed}
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for every not-found message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message is a non-error outcome, e.g. a completed refund.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}
