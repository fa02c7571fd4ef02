package errors

import (
	goErrors "errors"
	"fmt"
)

// New creates a new error with the given message. Errors created with New
// compare equal if their messages are equal, which keeps them usable in
// table-driven tests.
func New(msg string, args ...interface{}) error {
	if len(args) == 0 {
		return basicError{msg}
	}
	return basicError{fmt.Sprintf(msg, args...)}
}

type basicError struct {
	msg string
}

func (err basicError) Error() string {
	return err.msg
}

// WithContext annotates `err` with a short description of what was being
// attempted when it occurred.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

type contextError struct {
	context string
	err     error
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// RootCause strips all context from `err`, and returns the error that
// originally triggered it.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}

// FriendlyError is an error with a message that's meant to be shown directly
// to the user, without any of the context that's been added to it.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	msg string
}

// NewFriendlyError creates an error whose message is printed as-is by the
// CLI.
func NewFriendlyError(msg string, args ...interface{}) error {
	return friendlyError{fmt.Sprintf(msg, args...)}
}

func (err friendlyError) Error() string {
	return err.msg
}

func (err friendlyError) FriendlyMessage() string {
	return err.msg
}

// GetPrintableMessage returns the message that should be shown to users for
// `err`. If any error in the chain is friendly, only its message is shown.
func GetPrintableMessage(err error) string {
	var friendly FriendlyError
	if As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}
