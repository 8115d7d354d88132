package store

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies a backend failure.
type Code int

const (
	// CodeUnknown covers every failure without a more specific class.
	CodeUnknown Code = iota
	// CodePermissionDenied means the backend rejected the caller.
	CodePermissionDenied
	// CodeUnavailable means the backend could not be reached.
	CodeUnavailable
	// CodeFailedPrecondition means the backend is missing something it
	// needs to serve the request, such as an index.
	CodeFailedPrecondition
)

func (c Code) String() string {
	switch c {
	case CodePermissionDenied:
		return "permission-denied"
	case CodeUnavailable:
		return "unavailable"
	case CodeFailedPrecondition:
		return "failed-precondition"
	default:
		return "unknown"
	}
}

// Error is a classified backend failure.
type Error struct {
	Op   string
	Code Code
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify returns the failure class of err. Errors that are not
// *Error are classified by their context error, if any.
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeUnavailable
	}
	return CodeUnknown
}

// classifier maps a driver error to a Code.
type classifier func(error) Code

// wrapErr builds a classified error for op, leaving nil and already
// classified errors alone.
func wrapErr(op string, err error, classify classifier) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	code := CodeUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		code = CodeUnavailable
	} else if classify != nil {
		code = classify(err)
	}
	return &Error{Op: op, Code: code, Err: err}
}
