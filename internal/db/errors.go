package db

import "errors"

// Sentinel errors for gateway operations.
var (
	ErrDocNotFound   = errors.New("db: document not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrBadQuery      = errors.New("db: malformed query")
	ErrBackend       = errors.New("db: backend failure")
	ErrKeyNotFound   = errors.New("db: key not found")
)

// Op constants name the backend operation for error context.
const (
	OpSearch = "SEARCH"
	OpCount  = "COUNT"
	OpCreate = "CREATE"
	OpUpdate = "UPDATE"
	OpPatch  = "PATCH"
	OpDelete = "DELETE"
	OpGet    = "GET"
	OpSet    = "SET"
	OpPing   = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
