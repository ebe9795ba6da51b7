// Package errors provides stack-capturing errors for the SWEEPR service
// layer. The sweep packages carry their own lighter error type; this one
// is for process-level failures where the stack is worth keeping.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Error is an error with component context and a captured stack trace.
type Error struct {
	// Err is the wrapped cause, if any.
	Err error
	// Message describes the failure.
	Message string
	// Operation names what was being attempted.
	Operation string
	// Component names the package or subsystem.
	Component string
	// Stack is the call stack at construction time.
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Operation != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString("operation=")
		b.WriteString(e.Operation)
	}
	if e.Component != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString("component=")
		b.WriteString(e.Component)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation sets the operation name.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent sets the component name.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// StackTrace returns the captured stack.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates an Error with a message and a captured stack.
func New(msg string) *Error {
	return &Error{Message: msg, Stack: captureStack()}
}

// Errorf creates an Error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Stack: captureStack()}
}

// Wrap annotates err with msg, capturing the stack if err is not
// already an *Error. A nil err returns nil.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if !stderrors.As(err, &e) {
		e = &Error{Err: err, Stack: captureStack()}
	}
	if msg != "" {
		e.Message = msg
	}
	return e
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain matching target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// captureStack records the call stack, skipping the runtime and this
// package's own frames.
func captureStack() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}
