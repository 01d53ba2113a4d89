// Package errors provides a single error shape used across every syncer,
// linker pass, and specialist so failures carry enough context to act on
// without a stack trace.
package errors

import "fmt"

// OperationError describes a failed operation against a component and,
// optionally, a specific resource. Component and Resource are omitted from
// the message when empty.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("failed to %s", e.Operation)
	if e.Component != "" {
		msg += fmt.Sprintf(", component: %s", e.Component)
	}
	if e.Resource != "" {
		msg += fmt.Sprintf(", resource: %s", e.Resource)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(", cause: %s", e.Cause.Error())
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo builds an OperationError with just an action and its cause.
func FailedTo(action string, cause error) error {
	return &OperationError{Operation: action, Cause: cause}
}

// FailedToWithDetails builds an OperationError with component and resource
// context attached.
func FailedToWithDetails(operation, component, resource string, cause error) error {
	return &OperationError{
		Operation: operation,
		Component: component,
		Resource:  resource,
		Cause:     cause,
	}
}

// Wrapf wraps err with an additional formatted message, returning nil if
// err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Transient is implemented by errors that represent a transient source
// failure (network timeout, 5xx) as opposed to an authentication or parse
// failure; IsTransient checks for it. No syncer consults it (in-call retry
// decisions go through retry.IsRetryableError), and it never gates whether
// the cycle continues — all syncer failures are non-fatal regardless of
// class.
type Transient interface {
	Transient() bool
}

// TransientError marks a cause as a transient source failure.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string { return e.Cause.Error() }
func (e *TransientError) Unwrap() error { return e.Cause }
func (e *TransientError) Transient() bool { return true }

// IsTransient reports whether err (or something it wraps) is a TransientError.
func IsTransient(err error) bool {
	for err != nil {
		if tr, ok := err.(Transient); ok {
			return tr.Transient()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
