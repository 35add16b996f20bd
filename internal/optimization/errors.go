package optimization

import (
	"errors"
	"fmt"
)

// Kind classifies an optimization error.
type Kind int

const (
	// KindUnknown is the zero Kind, carried by errors built without one.
	KindUnknown Kind = iota
	// KindInvalidConfig marks malformed parameters: a population too small
	// for distinct-index sampling, zero dimensions, inverted bounds or an
	// unknown stop condition.
	KindInvalidConfig
	// KindOutOfMemory marks a failed allocation of population storage.
	KindOutOfMemory
	// KindIntegrityWarning marks a non-fatal logic defect, such as a
	// coordinate observed outside the search box after clamping.
	KindIntegrityWarning
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "invalid config"
	case KindOutOfMemory:
		return "out of memory"
	case KindIntegrityWarning:
		return "integrity warning"
	default:
		return "unknown"
	}
}

// Sentinel errors for use with errors.Is. Any *Error of the same Kind
// matches.
var (
	ErrInvalidConfig = &Error{Kind: KindInvalidConfig, Message: "invalid configuration"}
	ErrOutOfMemory   = &Error{Kind: KindOutOfMemory, Message: "out of memory"}
	ErrIntegrity     = &Error{Kind: KindIntegrityWarning, Message: "integrity warning"}
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error of the same, known Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind != KindUnknown && t.Kind == e.Kind
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// InvalidConfigf creates a KindInvalidConfig error.
func InvalidConfigf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInvalidConfig,
		Message: fmt.Sprintf(format, args...),
	}
}

// OutOfMemoryf creates a KindOutOfMemory error.
func OutOfMemoryf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindOutOfMemory,
		Message: fmt.Sprintf(format, args...),
	}
}

// IntegrityWarningf creates a KindIntegrityWarning error.
func IntegrityWarningf(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindIntegrityWarning,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kindOf(err),
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsOptimizationError checks if an error is, or wraps, an *Error.
// If so, it returns the outermost such error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// kindOf carries the Kind of a wrapped optimization error forward.
func kindOf(err error) Kind {
	if e, ok := IsOptimizationError(err); ok {
		return e.Kind
	}
	return KindUnknown
}
