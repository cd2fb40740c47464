package puzzle

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRow  = errors.New("malformed row")
	ErrInvalidMove   = errors.New("invalid move")
	ErrInvalidNumber = errors.New("invalid number")
	ErrSchema        = errors.New("invalid corpus schema")
)

// DecodeError describes why a single row could not be decoded. Kind is one of
// ErrMalformedRow, ErrInvalidMove or ErrInvalidNumber.
type DecodeError struct {
	Kind   error
	Column string
	Value  string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := e.Kind.Error()
	if e.Column != "" {
		msg += " in column " + e.Column
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Is(target error) bool {
	return target == e.Kind
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
