// Package errors provides errors carrying a stack trace for the dever
// optimization service.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// maxDepth bounds the number of frames captured per error.
const maxDepth = 32

// Error is an error annotated with a message, the job it belongs to and
// the call stack at the point it was first created or wrapped.
type Error struct {
	// Err is the wrapped cause, nil for errors created by New.
	Err error
	// Message describes what failed.
	Message string
	// JobID is the optimization job the error belongs to, if any.
	JobID string

	pcs []uintptr
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.JobID != "" {
		b.WriteString("job ")
		b.WriteString(e.JobID)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		if e.Message != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithJob tags the error with an optimization job ID.
func (e *Error) WithJob(id string) *Error {
	e.JobID = id
	return e
}

// StackTrace formats the captured stack, one "function\n\tfile:line" entry
// per frame, skipping the runtime.
func (e *Error) StackTrace() []string {
	if len(e.pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(e.pcs)
	stack := make([]string, 0, len(e.pcs))
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			return stack
		}
	}
}

// New creates an error with a message and the caller's stack.
func New(msg string) *Error {
	return &Error{Message: msg, pcs: callers()}
}

// Errorf creates an error with a formatted message and the caller's stack.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), pcs: callers()}
}

// Wrap adds msg to err. The stack of the innermost *Error in err's chain
// is reused; otherwise the caller's stack is captured. Wrap returns nil
// for a nil err.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	e := &Error{Err: err, Message: msg}
	var inner *Error
	if As(err, &inner) {
		e.pcs = inner.pcs
	} else {
		e.pcs = callers()
	}
	return e
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

func callers() []uintptr {
	var pcs [maxDepth]uintptr
	// Skip runtime.Callers, callers and the constructor.
	n := runtime.Callers(3, pcs[:])
	return append([]uintptr(nil), pcs[:n]...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	if err == nil || target == nil {
		return false
	}
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
