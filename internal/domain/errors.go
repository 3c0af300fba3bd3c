package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSchema signals a structurally invalid item document.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidSyntax signals a missing mandatory identifier.
	ErrInvalidSyntax = errors.New("invalid syntax")
	// ErrDocAlreadyExists signals a duplicate (id, type) pair.
	ErrDocAlreadyExists = errors.New("document already exists")
	// ErrDocNotFound signals a missing document.
	ErrDocNotFound = errors.New("document not found")
	// ErrOperationNotAllowed signals a blocked operation (dependents exist,
	// or a declared instance could not be resolved).
	ErrOperationNotAllowed = errors.New("operation not allowed")
	// ErrDatabaseFailure signals a backend-level failure during a write.
	ErrDatabaseFailure = errors.New("database failure")
	// ErrInternal signals an unexpected, unmapped failure.
	ErrInternal = errors.New("internal server error")
)

// Operation names the item lifecycle step an error occurred in.
type Operation string

// Lifecycle operations reported inside typed errors.
const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpSearch Operation = "SEARCH"
	OpCount  Operation = "COUNT"
)

// DocAlreadyExistsError wraps ErrDocAlreadyExists with the offending item id.
type DocAlreadyExistsError struct {
	ID string
}

func (e *DocAlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDocAlreadyExists.Error(), e.ID)
}

func (e *DocAlreadyExistsError) Unwrap() error { return ErrDocAlreadyExists }

// DocNotFoundError wraps ErrDocNotFound with the item id and the operation.
type DocNotFoundError struct {
	ID string
	Op Operation
}

func (e *DocNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrDocNotFound.Error(), e.ID, e.Op)
}

func (e *DocNotFoundError) Unwrap() error { return ErrDocNotFound }

// OperationNotAllowedError wraps ErrOperationNotAllowed with the item id.
type OperationNotAllowedError struct {
	ID     string
	Reason string
}

func (e *OperationNotAllowedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", ErrOperationNotAllowed.Error(), e.ID)
	}
	return fmt.Sprintf("%s: %s: %s", ErrOperationNotAllowed.Error(), e.ID, e.Reason)
}

func (e *OperationNotAllowedError) Unwrap() error { return ErrOperationNotAllowed }

// DatabaseFailureError wraps ErrDatabaseFailure with the item id and the
// backend message.
type DatabaseFailureError struct {
	ID      string
	Message string
}

func (e *DatabaseFailureError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrDatabaseFailure.Error(), e.ID, e.Message)
}

func (e *DatabaseFailureError) Unwrap() error { return ErrDatabaseFailure }
