package store

import (
	"errors"
	"fmt"
)

// Sentinel failure kinds returned by store operations. Callers classify
// failures with errors.Is; the facades surface the kind string from Kind.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrCheckout   = errors.New("checkout conflict")
	ErrDatabase   = errors.New("database error")
)

// Kind returns the classification string for a store error. Unrecognized
// errors classify as "database" since anything the store did not reject
// deliberately is a storage fault.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrCheckout):
		return "checkout"
	default:
		return "database"
	}
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func checkoutf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCheckout, fmt.Sprintf(format, args...))
}

func dbErr(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDatabase, operation, err)
}
