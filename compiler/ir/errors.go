package ir

import (
	"fmt"

	"tlog.app/go/loc"
)

type (
	// UnsupportedError is a construct a stage has no rule for.
	UnsupportedError struct {
		Construct string
		At        string
	}

	// InvariantError is an internal logic error.
	InvariantError struct {
		Msg  string
		From loc.PC
	}

	// LiteralError is an integer literal that can't be parsed.
	LiteralError struct {
		Text string
		Err  error
	}
)

func Unsupported(at string, format string, args ...any) error {
	return &UnsupportedError{
		Construct: fmt.Sprintf(format, args...),
		At:        at,
	}
}

func Invariant(format string, args ...any) error {
	return &InvariantError{
		Msg:  fmt.Sprintf(format, args...),
		From: loc.Caller(1),
	}
}

func (e *UnsupportedError) Error() string {
	if e.At == "" {
		return fmt.Sprintf("unsupported construct: %v", e.Construct)
	}

	return fmt.Sprintf("%v: unsupported construct: %v", e.At, e.Construct)
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("internal error: %v (detected at %v)", e.Msg, e.From)
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("malformed integer literal %q: %v", e.Text, e.Err)
}

func (e *LiteralError) Unwrap() error { return e.Err }
