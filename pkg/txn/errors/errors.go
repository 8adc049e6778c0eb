// Package errors provides error types and error codes for the transaction
// package. This is a leaf package with no internal dependencies, designed to
// be imported by the txn package, the plan loader, and CLI commands without
// causing circular imports.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred.
type ErrorCode int

const (
	// ErrInvalidPath indicates a caller-supplied path is empty or escapes
	// the project root.
	ErrInvalidPath ErrorCode = iota + 1

	// ErrNotFound indicates the requested path does not exist in the
	// projected state (never existed, or a delete is staged).
	ErrNotFound

	// ErrCreateConflict indicates a create was staged for a path that
	// already exists in the projected state.
	ErrCreateConflict

	// ErrMissingFile indicates a modify/append/prepend/delete was staged
	// for a path that does not exist in the projected state.
	ErrMissingFile

	// ErrAlreadyCommitted indicates commit was called on a transaction
	// that has already been committed.
	ErrAlreadyCommitted

	// ErrCommitFailed indicates a directory creation, file write, or file
	// removal failed while materializing the projection.
	ErrCommitFailed

	// ErrRollbackFailed indicates restoring the pre-transaction state
	// failed for at least one captured path.
	ErrRollbackFailed

	// ErrReadFailed indicates an I/O error occurred while reading the
	// real filesystem.
	ErrReadFailed

	// ErrInvalidUpdate indicates a bulk fs-update could not be staged.
	ErrInvalidUpdate
)

// String returns a human-readable name for the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrInvalidPath:
		return "InvalidPath"
	case ErrNotFound:
		return "NotFound"
	case ErrCreateConflict:
		return "CreateConflict"
	case ErrMissingFile:
		return "MissingFile"
	case ErrAlreadyCommitted:
		return "AlreadyCommitted"
	case ErrCommitFailed:
		return "CommitFailed"
	case ErrRollbackFailed:
		return "RollbackFailed"
	case ErrReadFailed:
		return "ReadFailed"
	case ErrInvalidUpdate:
		return "InvalidUpdate"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// TxError represents a transaction error with an error code. Op names the
// staging or control operation that failed ("create", "commit", ...), Path
// is the canonical relative key when one applies, and Err carries the
// underlying I/O cause for environment failures.
type TxError struct {
	Code    ErrorCode
	Op      string
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TxError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s (op: %s)", e.Code, e.Message, e.Op)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path: %s)", e.Path)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *TxError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Factory Functions
// ============================================================================

// NewInvalidPathError creates an InvalidPath error.
func NewInvalidPathError(path, reason string) *TxError {
	return &TxError{
		Code:    ErrInvalidPath,
		Path:    path,
		Message: reason,
	}
}

// NewNotFoundError creates a NotFound error for a projected path.
func NewNotFoundError(op, path string) *TxError {
	return &TxError{
		Code:    ErrNotFound,
		Op:      op,
		Path:    path,
		Message: "file does not exist",
	}
}

// NewCreateConflictError creates a CreateConflict error.
func NewCreateConflictError(path string) *TxError {
	return &TxError{
		Code:    ErrCreateConflict,
		Op:      "create",
		Path:    path,
		Message: "file already exists",
	}
}

// NewMissingFileError creates a MissingFile error.
func NewMissingFileError(op, path string) *TxError {
	return &TxError{
		Code:    ErrMissingFile,
		Op:      op,
		Path:    path,
		Message: "file does not exist",
	}
}

// NewAlreadyCommittedError creates an AlreadyCommitted error.
func NewAlreadyCommittedError() *TxError {
	return &TxError{
		Code:    ErrAlreadyCommitted,
		Op:      "commit",
		Message: "transaction has already been committed",
	}
}

// NewCommitFailedError creates a CommitFailed error wrapping the I/O cause.
func NewCommitFailedError(path string, err error) *TxError {
	return &TxError{
		Code:    ErrCommitFailed,
		Op:      "commit",
		Path:    path,
		Message: "failed to materialize staged state",
		Err:     err,
	}
}

// NewRollbackFailedError creates a RollbackFailed error wrapping the I/O cause.
func NewRollbackFailedError(path string, err error) *TxError {
	return &TxError{
		Code:    ErrRollbackFailed,
		Op:      "rollback",
		Path:    path,
		Message: "failed to restore original state",
		Err:     err,
	}
}

// NewReadFailedError creates a ReadFailed error wrapping the I/O cause.
func NewReadFailedError(op, path string, err error) *TxError {
	return &TxError{
		Code:    ErrReadFailed,
		Op:      op,
		Path:    path,
		Message: "failed to read file",
		Err:     err,
	}
}

// NewInvalidUpdateError creates an InvalidUpdate error.
func NewInvalidUpdateError(path, reason string) *TxError {
	return &TxError{
		Code:    ErrInvalidUpdate,
		Op:      "import",
		Path:    path,
		Message: reason,
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// code extracts the ErrorCode from an error chain, or 0 if the chain does
// not contain a TxError.
func code(err error) ErrorCode {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr.Code
	}
	return 0
}

// IsInvalidPathError checks if an error is a TxError with ErrInvalidPath code.
func IsInvalidPathError(err error) bool {
	return code(err) == ErrInvalidPath
}

// IsNotFoundError checks if an error is a TxError with ErrNotFound code.
func IsNotFoundError(err error) bool {
	return code(err) == ErrNotFound
}

// IsCreateConflictError checks if an error is a TxError with ErrCreateConflict code.
func IsCreateConflictError(err error) bool {
	return code(err) == ErrCreateConflict
}

// IsMissingFileError checks if an error is a TxError with ErrMissingFile code.
func IsMissingFileError(err error) bool {
	return code(err) == ErrMissingFile
}

// IsAlreadyCommittedError checks if an error is a TxError with ErrAlreadyCommitted code.
func IsAlreadyCommittedError(err error) bool {
	return code(err) == ErrAlreadyCommitted
}

// IsCommitFailedError checks if an error is a TxError with ErrCommitFailed code.
func IsCommitFailedError(err error) bool {
	return code(err) == ErrCommitFailed
}

// IsRollbackFailedError checks if an error is a TxError with ErrRollbackFailed code.
func IsRollbackFailedError(err error) bool {
	return code(err) == ErrRollbackFailed
}

// IsReadFailedError checks if an error is a TxError with ErrReadFailed code.
func IsReadFailedError(err error) bool {
	return code(err) == ErrReadFailed
}

// IsInvalidUpdateError checks if an error is a TxError with ErrInvalidUpdate code.
func IsInvalidUpdateError(err error) bool {
	return code(err) == ErrInvalidUpdate
}
