// Package transactions provides transaction persistence, the transaction store service
// and bulk re-conversion of stored amounts.
package transactions

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a transaction does not exist or belongs to another user.
// The two cases are indistinguishable to callers.
var ErrNotFound = errors.New("transaction not found")

// PersistenceError wraps a storage-layer failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("transactions: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationError reports malformed input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPersistence reports whether err is or wraps a PersistenceError
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
