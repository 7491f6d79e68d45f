package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a malformed or out-of-range parameter.
	// It is returned before any storage access.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("storage failure")
)

// StorageError reports a failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports ErrStorage as a match so callers can test the category
// without caring about the driver error underneath.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// InvalidInput wraps a validation message so that errors.Is(err, ErrInvalidInput) holds.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
