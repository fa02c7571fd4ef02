package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// StructuralError aborts a whole sync pass, e.g. when the source root is
// missing.
type StructuralError struct {
	Reason string
}

func (err StructuralError) Error() string {
	return fmt.Sprintf("sync aborted: %s", err.Reason)
}

// EntryError is a failure confined to a single file or directory during a
// sync pass.
type EntryError struct {
	Action string
	Path   string
	Err    error
}

func (err EntryError) Error() string {
	return fmt.Sprintf("failed to %s %s: %s", err.Action, err.Path, err.Err)
}

func (err EntryError) Unwrap() error {
	return err.Err
}
