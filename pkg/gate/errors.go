package gate

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gate's error taxonomy. Transport layers map
// these onto HTTP status codes; none of them is retried by the core.
var (
	// ErrUnauthorized means the presented API key resolves to no user.
	ErrUnauthorized = errors.New("invalid API key")

	// ErrForbidden means the caller lacks the admin role required by
	// the operation.
	ErrForbidden = errors.New("admin access required")

	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError describes a violated input constraint (bad rule pattern,
// unknown action or role, duplicate username, negative credits).
type ValidationError struct {
	Field   string // Offending field ("pattern", "action", "username", ...)
	Message string // Description of the violated constraint
	Cause   error  // Underlying error, if any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, cause error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// StorageError represents a failure in the storage backend. The in-flight
// mutation is rolled back in full before one of these surfaces.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("commit_decision", "query_logs", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
