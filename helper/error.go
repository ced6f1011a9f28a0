package helper

import (
	"errors"
	"strings"
)

// Error is an error with a trace of the operations it passed through.
type Error struct {
	Original error
	Trace    []string
}

// NewError wraps err with the given operation trace.
// If err already is an *Error, the trace is prepended to the existing one.
func NewError(trace string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Original: e.Original,
			Trace:    append([]string{trace}, e.Trace...),
		}
	}

	return &Error{
		Original: err,
		Trace:    []string{trace},
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return strings.Join(e.Trace, ": ") + ": " + e.Original.Error()
}

// Unwrap returns the original error
func (e *Error) Unwrap() error {
	return e.Original
}
