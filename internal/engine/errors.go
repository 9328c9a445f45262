package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while rendering or committing.
//
// Runtime errors include:
//   - Uncaught render error: user code failed with no enclosing boundary
//   - Commit failed: a host mutation call failed mid-commit
//   - Root not mounted: an operation referenced a released root
//
// RuntimeError includes structured fields for diagnostics and recovery.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RootID identifies the affected root.
	RootID int64

	// FiberID identifies the fiber whose work failed, when known.
	FiberID int64

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUncaughtRender indicates a render error with no boundary above it.
	ErrCodeUncaughtRender RuntimeErrorCode = "UNCAUGHT_RENDER"

	// ErrCodeCommitFailed indicates a host mutation failed during commit.
	ErrCodeCommitFailed RuntimeErrorCode = "COMMIT_FAILED"

	// ErrCodeRootNotMounted indicates the root was released or never created.
	ErrCodeRootNotMounted RuntimeErrorCode = "ROOT_NOT_MOUNTED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (root=%d): %v", e.Code, e.Message, e.RootID, e.Err)
	}
	return fmt.Sprintf("%s: %s (root=%d)", e.Code, e.Message, e.RootID)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsUncaughtRenderError returns true if the error is an uncaught render
// error. Uses errors.As to handle wrapped errors.
func IsUncaughtRenderError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUncaughtRender
	}
	return false
}

// IsCommitError returns true if the error is a failed commit.
// Uses errors.As to handle wrapped errors.
func IsCommitError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCommitFailed
	}
	return false
}
